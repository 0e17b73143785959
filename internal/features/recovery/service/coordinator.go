package service

import (
	"context"
	"log"
	"time"

	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/recovery/domain"

	monitordomain "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/monitor/domain"
)

const (
	defaultConfirmAttempts = 2
	defaultConfirmDelay    = 500 * time.Millisecond
)

// Coordinator drives on-demand recovery of the store connection and the
// ledger client. Each service is recovered independently; one service's
// failure never blocks the other's attempt.
type Coordinator struct {
	health          domain.HealthProvider
	store           domain.StoreRecoverer
	ledger          domain.LedgerRecoverer
	confirmAttempts int
	confirmDelay    time.Duration
	metrics         domain.RecoveryMetrics
}

// CoordinatorOption defines functional options for the coordinator
type CoordinatorOption func(*Coordinator)

// WithConfirmAttempts sets how many verification probes may run after a
// recovery action before the attempt is declared failed
func WithConfirmAttempts(attempts int) CoordinatorOption {
	return func(c *Coordinator) {
		if attempts > 0 {
			c.confirmAttempts = attempts
		}
	}
}

// WithConfirmDelay sets the pause between verification probes
func WithConfirmDelay(delay time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if delay > 0 {
			c.confirmDelay = delay
		}
	}
}

// WithMetrics attaches a metrics recorder for recovery outcomes
func WithMetrics(metrics domain.RecoveryMetrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = metrics
	}
}

// NewCoordinator creates a recovery coordinator
func NewCoordinator(health domain.HealthProvider, store domain.StoreRecoverer, ledger domain.LedgerRecoverer, options ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		health:          health,
		store:           store,
		ledger:          ledger,
		confirmAttempts: defaultConfirmAttempts,
		confirmDelay:    defaultConfirmDelay,
	}

	for _, option := range options {
		option(c)
	}

	return c
}

// Recover inspects the last published health snapshot and attempts to
// restore each unhealthy service. Services that are already healthy are
// skipped and count as recovered. Recover never returns an error: partial
// and total failure are expressed in the result.
func (c *Coordinator) Recover(ctx context.Context) domain.RecoveryResult {
	status := c.health.GetStatus()
	result := domain.RecoveryResult{Store: true, Ledger: true}

	if !status.Store.Connected {
		result.Store, result.StoreError = c.recoverStore(ctx)
		c.record("store", result.Store)
	}

	if !status.Ledger.Connected {
		result.Ledger, result.LedgerError = c.recoverLedger(ctx)
		c.record("ledger", result.Ledger)
	}

	// Refresh the published snapshot so callers polling health see the
	// post-recovery state immediately.
	c.health.CheckSystemHealth(ctx)

	return result
}

// ForceCheck runs an immediate health check outside the periodic schedule
func (c *Coordinator) ForceCheck(ctx context.Context) monitordomain.HealthStatus {
	return c.health.CheckSystemHealth(ctx)
}

// recoverStore reconnects the store and confirms with fresh probes
func (c *Coordinator) recoverStore(ctx context.Context) (bool, string) {
	log.Println("Recovery: attempting store reconnect")

	if _, err := c.store.Connect(ctx); err != nil {
		log.Printf("Recovery: store reconnect failed: %v", err)
		return false, err.Error()
	}

	return c.confirm(ctx, func(probeCtx context.Context) monitordomain.ServiceStatus {
		return c.health.CheckStore(probeCtx)
	})
}

// recoverLedger rebuilds the ledger client and confirms with fresh probes
func (c *Coordinator) recoverLedger(ctx context.Context) (bool, string) {
	log.Println("Recovery: attempting ledger client rebuild")

	if err := c.ledger.Reinitialize(ctx); err != nil {
		log.Printf("Recovery: ledger rebuild failed: %v", err)
		return false, err.Error()
	}

	return c.confirm(ctx, func(probeCtx context.Context) monitordomain.ServiceStatus {
		return c.health.CheckLedger(probeCtx)
	})
}

// confirm runs up to confirmAttempts verification probes, pausing between
// them, and succeeds on the first probe that reports the service up.
func (c *Coordinator) confirm(ctx context.Context, probe func(context.Context) monitordomain.ServiceStatus) (bool, string) {
	var lastErr string

	for attempt := 1; attempt <= c.confirmAttempts; attempt++ {
		status := probe(ctx)
		if status.Connected {
			return true, ""
		}
		lastErr = status.Error

		if attempt < c.confirmAttempts {
			select {
			case <-ctx.Done():
				return false, ctx.Err().Error()
			case <-time.After(c.confirmDelay):
			}
		}
	}

	if lastErr == "" {
		lastErr = "service did not confirm healthy"
	}
	return false, lastErr
}

func (c *Coordinator) record(service string, successful bool) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordRecoveryAttempt(service, successful)
}
