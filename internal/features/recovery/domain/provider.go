package domain

import (
	"context"

	monitordomain "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/monitor/domain"
	storedomain "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/store/domain"
)

// RecoveryResult reports the per-service outcome of one recovery pass.
// A service that was already healthy counts as recovered.
type RecoveryResult struct {
	Store       bool   `json:"store"`
	StoreError  string `json:"storeError,omitempty"`
	Ledger      bool   `json:"ledger"`
	LedgerError string `json:"ledgerError,omitempty"`
}

// HealthProvider is the slice of the health monitor the coordinator
// consults before and after recovery attempts
type HealthProvider interface {
	GetStatus() monitordomain.HealthStatus
	CheckStore(ctx context.Context) monitordomain.ServiceStatus
	CheckLedger(ctx context.Context) monitordomain.ServiceStatus
	CheckSystemHealth(ctx context.Context) monitordomain.HealthStatus
}

// StoreRecoverer re-establishes the store connection
type StoreRecoverer interface {
	Connect(ctx context.Context) (storedomain.Conn, error)
}

// LedgerRecoverer rebuilds the ledger client against its endpoint
type LedgerRecoverer interface {
	Reinitialize(ctx context.Context) error
}

// RecoveryMetrics receives recovery attempt outcomes
type RecoveryMetrics interface {
	RecordRecoveryAttempt(service string, successful bool)
}
