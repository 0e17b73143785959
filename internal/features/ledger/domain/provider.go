package domain

import (
	"context"
	"time"
)

// Client issues operations against the ledger-network endpoint
type Client interface {
	// NetworkID returns the ledger network identifier
	NetworkID(ctx context.Context) (uint64, error)

	// BlockNumber returns the latest block height
	BlockNumber(ctx context.Context) (uint64, error)

	// Accounts lists the accounts exposed by the endpoint
	Accounts(ctx context.Context) ([]string, error)

	// Reinitialize tears down and re-dials the underlying RPC client
	Reinitialize(ctx context.Context) error

	// Close releases the underlying RPC client
	Close()
}

// Ceiling holds the throttle limits for one operation type
type Ceiling struct {
	// MaxOpsPerMinute is the rolling-window operation budget
	MaxOpsPerMinute int

	// MaxBatchSize is the largest batch accepted in a single acquire
	MaxBatchSize int
}

// WindowStatus is a point-in-time view of one operation type's window
type WindowStatus struct {
	Count           int       `json:"count"`
	WindowStart     time.Time `json:"windowStart"`
	Locked          bool      `json:"locked"`
	MaxOpsPerMinute int       `json:"maxOpsPerMinute"`
	MaxBatchSize    int       `json:"maxBatchSize"`
}

// Throttler enforces client-side rate ceilings on metered ledger operations
type Throttler interface {
	// TryAcquire accepts or rejects a batch of n operations of the given type
	TryAcquire(operationType string, n int) error

	// SetOperationLock sets or clears the administrative lock for a type
	SetOperationLock(operationType string, locked bool)

	// Status reports every known operation window
	Status() map[string]WindowStatus
}

// ThrottleMetrics receives throttle rejection outcomes
type ThrottleMetrics interface {
	RecordThrottleRejection(operationType, reason string)
}
