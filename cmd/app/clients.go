package app

import (
	"fmt"
	"net/http"

	ledgerservice "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/ledger/service"

	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/ledger/adapter/transport"
	mongoadapter "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/store/adapter/mongo"
)

// NewStoreDriver creates the persistent store driver from configuration
func NewStoreDriver(cfg *StoreConfig) (*mongoadapter.Driver, error) {
	driver, err := mongoadapter.NewDriver(mongoadapter.Config{
		URI:                    cfg.URI,
		Database:               cfg.Database,
		MinPoolSize:            cfg.MinPoolSize,
		MaxPoolSize:            cfg.MaxPoolSize,
		ServerSelectionTimeout: cfg.ServerSelectionTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create store driver: %w", err)
	}
	return driver, nil
}

// NewLedgerHTTPClient creates the HTTP client the ledger RPC client rides on
func NewLedgerHTTPClient(cfg *LedgerConfig) (*http.Client, error) {
	transportConfig := transport.DefaultConfig()
	if cfg.RequestTimeout > 0 {
		transportConfig.Timeout = cfg.RequestTimeout
	}

	httpClient, err := transport.NewHTTPClient(transportConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger HTTP client: %w", err)
	}
	return httpClient, nil
}

// NewLedgerClient creates the ledger RPC client from configuration
func NewLedgerClient(cfg *LedgerConfig, options ...ledgerservice.ClientOption) (*ledgerservice.Client, error) {
	httpClient, err := NewLedgerHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	client, err := ledgerservice.NewClient(cfg.Endpoint, httpClient, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger client: %w", err)
	}
	return client, nil
}
