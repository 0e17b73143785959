package service

import (
	"sync"
	"time"

	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/common"
	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/ledger/domain"
)

// throttleWindow is the fixed accounting window for every operation type
const throttleWindow = time.Minute

// Throttler tracks per-operation-type usage against configured ceilings.
// The ledger network charges per operation, so this is advisory budget
// protection enforced entirely in-process.
type Throttler struct {
	defaults  domain.Ceiling
	overrides map[string]domain.Ceiling
	metrics   domain.ThrottleMetrics
	now       func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// window is the mutable accounting state for one operation type
type window struct {
	count       int
	windowStart time.Time
	locked      bool
	ceiling     domain.Ceiling
}

// ThrottlerOption defines functional options for Throttler
type ThrottlerOption func(*Throttler)

// WithCeilingOverride sets per-type limits that replace the defaults
func WithCeilingOverride(operationType string, ceiling domain.Ceiling) ThrottlerOption {
	return func(t *Throttler) {
		t.overrides[operationType] = ceiling
	}
}

// WithThrottleMetrics attaches a metrics recorder for rejections
func WithThrottleMetrics(metrics domain.ThrottleMetrics) ThrottlerOption {
	return func(t *Throttler) {
		t.metrics = metrics
	}
}

// WithClock overrides the time source (tests)
func WithClock(now func() time.Time) ThrottlerOption {
	return func(t *Throttler) {
		t.now = now
	}
}

// NewThrottler creates a throttler with the given default ceilings
func NewThrottler(defaults domain.Ceiling, options ...ThrottlerOption) *Throttler {
	if defaults.MaxOpsPerMinute <= 0 {
		defaults.MaxOpsPerMinute = 60
	}
	if defaults.MaxBatchSize <= 0 {
		defaults.MaxBatchSize = 50
	}

	t := &Throttler{
		defaults:  defaults,
		overrides: make(map[string]domain.Ceiling),
		now:       time.Now,
		windows:   make(map[string]*window),
	}

	for _, option := range options {
		option(t)
	}

	return t
}

// TryAcquire accepts or rejects a batch of n operations of the given type.
// Rejections never mutate the window count.
func (t *Throttler) TryAcquire(operationType string, n int) error {
	if n <= 0 {
		n = 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.windowLocked(operationType)
	now := t.now()

	if w.locked {
		t.recordRejection(operationType, "locked")
		return common.OperationLockedError{OperationType: operationType}
	}

	if now.Sub(w.windowStart) >= throttleWindow {
		w.count = 0
		w.windowStart = now
	}

	if w.count+n > w.ceiling.MaxOpsPerMinute {
		t.recordRejection(operationType, "throttle_exceeded")
		return common.ThrottleExceededError{
			OperationType:   operationType,
			MaxOpsPerMinute: w.ceiling.MaxOpsPerMinute,
		}
	}

	if n > w.ceiling.MaxBatchSize {
		t.recordRejection(operationType, "batch_too_large")
		return common.BatchTooLargeError{
			OperationType: operationType,
			Requested:     n,
			MaxBatchSize:  w.ceiling.MaxBatchSize,
		}
	}

	w.count += n
	return nil
}

// SetOperationLock sets or clears the administrative lock for a type.
// While locked, every TryAcquire for the type rejects regardless of the
// window state.
func (t *Throttler) SetOperationLock(operationType string, locked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.windowLocked(operationType).locked = locked
}

// Status reports every known operation window
func (t *Throttler) Status() map[string]domain.WindowStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := make(map[string]domain.WindowStatus, len(t.windows))
	for operationType, w := range t.windows {
		status[operationType] = domain.WindowStatus{
			Count:           w.count,
			WindowStart:     w.windowStart,
			Locked:          w.locked,
			MaxOpsPerMinute: w.ceiling.MaxOpsPerMinute,
			MaxBatchSize:    w.ceiling.MaxBatchSize,
		}
	}

	return status
}

// windowLocked returns the window for a type, seeding it on first use.
// The caller must hold t.mu.
func (t *Throttler) windowLocked(operationType string) *window {
	if w, exists := t.windows[operationType]; exists {
		return w
	}

	ceiling := t.defaults
	if override, exists := t.overrides[operationType]; exists {
		if override.MaxOpsPerMinute > 0 {
			ceiling.MaxOpsPerMinute = override.MaxOpsPerMinute
		}
		if override.MaxBatchSize > 0 {
			ceiling.MaxBatchSize = override.MaxBatchSize
		}
	}

	w := &window{windowStart: t.now(), ceiling: ceiling}
	t.windows[operationType] = w
	return w
}

func (t *Throttler) recordRejection(operationType, reason string) {
	if t.metrics != nil {
		t.metrics.RecordThrottleRejection(operationType, reason)
	}
}
