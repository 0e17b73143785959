package domain

import (
	"context"
	"time"
)

// ConnectionState represents the lifecycle state of the store connection.
// Exactly one instance exists process-wide, owned by the connection manager.
type ConnectionState string

// Connection states
const (
	StateDisconnected ConnectionState = "Disconnected"
	StateConnecting   ConnectionState = "Connecting"
	StateConnected    ConnectionState = "Connected"
	StateReconnecting ConnectionState = "Reconnecting"
	StateFailed       ConnectionState = "Failed"
)

// RetryPolicy configures connect retry behavior. Backoff delay for
// attempt n is BaseDelay * 2^n.
type RetryPolicy struct {
	// MaxAttempts is the total number of connect attempts before giving up
	MaxAttempts int

	// BaseDelay is the delay before the first retry
	BaseDelay time.Duration
}

// Conn is a live connection to the persistent store
type Conn interface {
	// Ping verifies the connection is still usable
	Ping(ctx context.Context) error

	// Close releases the connection
	Close(ctx context.Context) error
}

// Driver establishes connections to the persistent store
type Driver interface {
	// Connect performs a single connection attempt
	Connect(ctx context.Context) (Conn, error)
}

// MetricsRecorder receives connect attempt outcomes
type MetricsRecorder interface {
	RecordConnectAttempt(success bool)
}
