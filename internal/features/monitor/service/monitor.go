package service

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/monitor/domain"
)

const defaultProbeTimeout = 5 * time.Second

// Service periodically probes the store and the ledger endpoint and
// publishes an immutable HealthStatus snapshot. Readers never block on a
// check in progress; GetStatus returns the last completed snapshot.
type Service struct {
	store        domain.StoreChecker
	ledger       domain.LedgerChecker
	probeTimeout time.Duration
	metrics      domain.MetricsRecorder
	startTime    time.Time

	mu       sync.RWMutex
	snapshot *domain.HealthStatus
	running  bool
	stopCh   chan struct{}
}

// ServiceOption defines functional options for the monitor
type ServiceOption func(*Service)

// WithProbeTimeout bounds each individual probe
func WithProbeTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		s.probeTimeout = timeout
	}
}

// WithMetrics attaches a metrics recorder for probe outcomes
func WithMetrics(metrics domain.MetricsRecorder) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// NewService creates a health monitor. Until the first probe completes the
// published snapshot reports both services disconnected.
func NewService(store domain.StoreChecker, ledger domain.LedgerChecker, options ...ServiceOption) *Service {
	now := time.Now()
	s := &Service{
		store:        store,
		ledger:       ledger,
		probeTimeout: defaultProbeTimeout,
		startTime:    now,
		snapshot: &domain.HealthStatus{
			Healthy:   false,
			Store:     domain.ServiceStatus{Connected: false, LastCheckedAt: now, Error: "not checked yet"},
			Ledger:    domain.ServiceStatus{Connected: false, LastCheckedAt: now, Error: "not checked yet"},
			Timestamp: now,
		},
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// Start begins periodic ticking at the given interval. Returns an error if
// the monitor is already running.
func (s *Service) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("probe interval must be positive, got %s", interval)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("health monitor already running")
	}
	s.running = true
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.mu.Unlock()

	go s.run(ctx, interval, stopCh)
	log.Printf("Health monitor started (interval: %s)", interval)
	return nil
}

// Stop cancels the timer. A check already issued completes but its result
// is discarded.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	log.Println("Health monitor stopped")
}

// GetStatus returns the last published snapshot. Never performs I/O.
func (s *Service) GetStatus() domain.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.snapshot
}

// CheckStore probes the store connection, measuring latency from call
// issuance to response. A failed probe is data, not a fault.
func (s *Service) CheckStore(ctx context.Context) domain.ServiceStatus {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	start := time.Now()
	status := domain.ServiceStatus{LastCheckedAt: start}

	if !s.store.IsConnected() {
		status.Error = fmt.Sprintf("store not connected (state: %s)", s.store.Status())
		s.recordProbe("store", status)
		return status
	}

	err := s.store.Ping(probeCtx)
	status.Latency = time.Since(start)
	if err != nil {
		status.Error = err.Error()
	} else {
		status.Connected = true
	}

	s.recordProbe("store", status)
	return status
}

// CheckLedger probes the ledger endpoint via its network id
func (s *Service) CheckLedger(ctx context.Context) domain.ServiceStatus {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	start := time.Now()
	status := domain.ServiceStatus{LastCheckedAt: start}

	_, err := s.ledger.NetworkID(probeCtx)
	status.Latency = time.Since(start)
	if err != nil {
		status.Error = err.Error()
	} else {
		status.Connected = true
	}

	s.recordProbe("ledger", status)
	return status
}

// CheckSystemHealth probes both services concurrently, publishes the new
// snapshot atomically and returns it.
func (s *Service) CheckSystemHealth(ctx context.Context) domain.HealthStatus {
	snapshot := s.check(ctx)
	s.publish(snapshot)
	return snapshot
}

// GetDiagnostics performs a fresh synchronous check of both services plus
// process-level metrics. One service's failure never aborts the other's
// check; both are always reported.
func (s *Service) GetDiagnostics(ctx context.Context) domain.DiagnosticsReport {
	snapshot := s.check(ctx)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return domain.DiagnosticsReport{
		Healthy: snapshot.Healthy,
		Store:   snapshot.Store,
		Ledger:  snapshot.Ledger,
		Process: domain.ProcessStats{
			UptimeSeconds:  time.Since(s.startTime).Seconds(),
			Goroutines:     runtime.NumGoroutine(),
			HeapAllocBytes: memStats.HeapAlloc,
			HeapSysBytes:   memStats.HeapSys,
			NumGC:          memStats.NumGC,
		},
		Timestamp: snapshot.Timestamp,
	}
}

// Uptime reports how long the monitor has existed
func (s *Service) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// run drives the periodic tick loop. The first check fires immediately.
func (s *Service) run(ctx context.Context, interval time.Duration, stopCh chan struct{}) {
	s.tick(ctx, stopCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, stopCh)
		}
	}
}

// tick runs one check cycle and publishes unless the monitor was stopped
// while the checks were in flight.
func (s *Service) tick(ctx context.Context, stopCh chan struct{}) {
	snapshot := s.check(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	// A stop (or stop/start) while the probes ran makes this result stale.
	if !s.running || s.stopCh != stopCh {
		return
	}
	s.publishLocked(snapshot)
}

// check probes both services concurrently and assembles a snapshot
func (s *Service) check(ctx context.Context) domain.HealthStatus {
	var (
		wg           sync.WaitGroup
		storeStatus  domain.ServiceStatus
		ledgerStatus domain.ServiceStatus
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		storeStatus = s.CheckStore(ctx)
	}()
	go func() {
		defer wg.Done()
		ledgerStatus = s.CheckLedger(ctx)
	}()
	wg.Wait()

	return domain.HealthStatus{
		Healthy:   storeStatus.Connected && ledgerStatus.Connected,
		Store:     storeStatus,
		Ledger:    ledgerStatus,
		Timestamp: time.Now(),
	}
}

func (s *Service) publish(snapshot domain.HealthStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(snapshot)
}

// publishLocked swaps in a fully-built snapshot. The caller must hold s.mu.
// Timestamps never move backwards even if the wall clock does.
func (s *Service) publishLocked(snapshot domain.HealthStatus) {
	if snapshot.Timestamp.Before(s.snapshot.Timestamp) {
		snapshot.Timestamp = s.snapshot.Timestamp
	}
	s.snapshot = &snapshot
}

func (s *Service) recordProbe(service string, status domain.ServiceStatus) {
	if s.metrics == nil {
		return
	}
	s.metrics.SetServiceUp(service, status.Connected)
	if status.Latency > 0 {
		s.metrics.ObserveProbeDuration(service, status.Latency.Seconds())
	}
}
