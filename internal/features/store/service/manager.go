package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/common"
	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/store/domain"
)

const defaultWaitTimeout = 30 * time.Second

// Manager owns the lifecycle of the single persistent-store connection.
// Concurrent Connect callers coalesce onto one underlying attempt; at most
// one driver dial is in flight at any time.
type Manager struct {
	driver      domain.Driver
	policy      domain.RetryPolicy
	waitTimeout time.Duration
	metrics     domain.MetricsRecorder

	mu      sync.Mutex
	state   domain.ConnectionState
	conn    domain.Conn
	attempt *connectAttempt
}

// connectAttempt carries the shared outcome of one in-flight connect.
// conn and err are written before done is closed and never afterwards.
type connectAttempt struct {
	done chan struct{}
	conn domain.Conn
	err  error
}

// ManagerOption defines functional options for Manager
type ManagerOption func(*Manager)

// WithWaitTimeout sets the bounded wait for callers joining an in-flight attempt
func WithWaitTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.waitTimeout = timeout
	}
}

// WithMetrics attaches a metrics recorder for connect attempt outcomes
func WithMetrics(metrics domain.MetricsRecorder) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a new connection manager
func NewManager(driver domain.Driver, policy domain.RetryPolicy, options ...ManagerOption) *Manager {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}

	m := &Manager{
		driver:      driver,
		policy:      policy,
		waitTimeout: defaultWaitTimeout,
		state:       domain.StateDisconnected,
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// Connect returns the live connection, establishing one if needed. If
// another caller's attempt is already in flight, Connect waits for that
// attempt's outcome instead of starting a second one; the wait is bounded
// and fails with common.ErrWaitTimeout when exceeded.
func (m *Manager) Connect(ctx context.Context) (domain.Conn, error) {
	m.mu.Lock()

	if m.state == domain.StateConnected && m.conn != nil {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}

	if m.attempt != nil {
		attempt := m.attempt
		m.mu.Unlock()
		return m.await(ctx, attempt)
	}

	attempt := &connectAttempt{done: make(chan struct{})}
	m.attempt = attempt
	if m.state == domain.StateDisconnected {
		m.state = domain.StateConnecting
	} else {
		m.state = domain.StateReconnecting
	}
	m.mu.Unlock()

	// The initiating caller performs the attempt; backoff sleeps happen
	// without holding the lock so Disconnect and Status stay responsive.
	m.run(ctx, attempt)

	return attempt.conn, attempt.err
}

// Disconnect closes the connection and moves to Disconnected. Idempotent.
// An in-flight connect attempt is not canceled; its result is abandoned
// when it completes and finds the desired state has moved on.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == domain.StateDisconnected && m.conn == nil {
		m.mu.Unlock()
		return nil
	}

	conn := m.conn
	m.conn = nil
	m.state = domain.StateDisconnected
	m.mu.Unlock()

	if conn == nil {
		return nil
	}

	if err := conn.Close(ctx); err != nil {
		log.Printf("Store disconnect returned error: %v", err)
		return err
	}

	log.Println("Store connection closed")
	return nil
}

// IsConnected reports the last known state without probing the store
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == domain.StateConnected && m.conn != nil
}

// Status returns the current connection state
func (m *Manager) Status() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ping probes the live connection, failing fast when disconnected
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if conn == nil {
		return common.NotConnectedError("ping skipped (state: %s)", state)
	}

	return conn.Ping(ctx)
}

// await blocks on an attempt started by another caller
func (m *Manager) await(ctx context.Context, attempt *connectAttempt) (domain.Conn, error) {
	timer := time.NewTimer(m.waitTimeout)
	defer timer.Stop()

	select {
	case <-attempt.done:
		return attempt.conn, attempt.err
	case <-timer.C:
		return nil, common.WaitTimeoutError(m.waitTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run executes the connect attempt and resolves it for all waiters
func (m *Manager) run(ctx context.Context, attempt *connectAttempt) {
	conn, attempts, err := m.dial(ctx)

	m.mu.Lock()
	m.attempt = nil

	var stale domain.Conn
	switch {
	case err != nil && common.IsContextCanceled(err):
		// The cap was not exhausted; don't advertise a fatal state.
		m.state = domain.StateDisconnected
		attempt.err = err
	case err != nil:
		m.state = domain.StateFailed
		attempt.err = common.NewConnectFailedError(attempts, err)
	case m.state == domain.StateDisconnected:
		// Disconnect raced the attempt: the desired state moved on, so the
		// fresh connection is discarded rather than resurrected.
		stale = conn
		attempt.err = common.ErrConnectAborted
	default:
		m.state = domain.StateConnected
		m.conn = conn
		attempt.conn = conn
	}
	m.mu.Unlock()

	if stale != nil {
		if closeErr := stale.Close(context.Background()); closeErr != nil {
			log.Printf("Failed to close abandoned store connection: %v", closeErr)
		}
		log.Println("Abandoned store connect attempt: disconnect requested mid-flight")
	}

	close(attempt.done)
}

// dial performs the driver dials with exponential backoff between failures.
// Returns the connection, the number of attempts issued, and the last error.
func (m *Manager) dial(ctx context.Context) (domain.Conn, int, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = m.policy.BaseDelay
	expBackoff.Multiplier = 2
	expBackoff.RandomizationFactor = 0
	expBackoff.MaxInterval = m.policy.BaseDelay << 16
	expBackoff.MaxElapsedTime = 0

	var conn domain.Conn
	attempts := 0

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		attempts++
		c, err := m.driver.Connect(ctx)
		if err != nil {
			if m.metrics != nil {
				m.metrics.RecordConnectAttempt(false)
			}
			if common.IsContextCanceled(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		if m.metrics != nil {
			m.metrics.RecordConnectAttempt(true)
		}
		conn = c
		return nil
	}

	err := backoff.RetryNotify(
		operation,
		backoff.WithMaxRetries(expBackoff, uint64(m.policy.MaxAttempts-1)),
		func(err error, delay time.Duration) {
			log.Printf("Store connect attempt %d failed: %v, retrying in %s",
				attempts, err, delay)
		},
	)
	if err != nil {
		return nil, attempts, err
	}

	log.Printf("Store connected after %d attempt(s)", attempts)
	return conn, attempts, nil
}
