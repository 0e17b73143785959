package domain

import (
	"context"
	"time"

	storedomain "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/store/domain"
)

// ServiceStatus is the outcome of one probe against one service
type ServiceStatus struct {
	Connected     bool          `json:"connected"`
	LastCheckedAt time.Time     `json:"lastCheckedAt"`
	Latency       time.Duration `json:"latency,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// HealthStatus is the point-in-time snapshot published after each tick.
// Snapshots are immutable; readers always see a fully-formed value.
type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	Store     ServiceStatus `json:"store"`
	Ledger    ServiceStatus `json:"ledger"`
	Timestamp time.Time     `json:"timestamp"`
}

// ProcessStats holds process-level diagnostics
type ProcessStats struct {
	UptimeSeconds  float64 `json:"uptimeSeconds"`
	Goroutines     int     `json:"goroutines"`
	HeapAllocBytes uint64  `json:"heapAllocBytes"`
	HeapSysBytes   uint64  `json:"heapSysBytes"`
	NumGC          uint32  `json:"numGC"`
}

// DiagnosticsReport is the result of a fresh, synchronous deep check
type DiagnosticsReport struct {
	Healthy   bool          `json:"healthy"`
	Store     ServiceStatus `json:"store"`
	Ledger    ServiceStatus `json:"ledger"`
	Process   ProcessStats  `json:"process"`
	Timestamp time.Time     `json:"timestamp"`
}

// StoreChecker is the slice of the connection manager the monitor probes
type StoreChecker interface {
	IsConnected() bool
	Status() storedomain.ConnectionState
	Ping(ctx context.Context) error
}

// LedgerChecker is the slice of the ledger client the monitor probes
type LedgerChecker interface {
	NetworkID(ctx context.Context) (uint64, error)
}

// MetricsRecorder receives probe outcomes
type MetricsRecorder interface {
	SetServiceUp(service string, up bool)
	ObserveProbeDuration(service string, seconds float64)
}
