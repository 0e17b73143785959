// Package transport builds the HTTP client used to reach the ledger-network
// RPC endpoint.
package transport

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// Config holds configuration for the RPC transport
type Config struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	EnableHTTP2        bool
}

// DefaultConfig returns the default transport configuration
func DefaultConfig() Config {
	return Config{
		Timeout:            10 * time.Second,
		InsecureSkipVerify: false, // Only set to true in development
		EnableHTTP2:        true,
	}
}

// NewHTTPClient creates the HTTP client the RPC dialer runs over
func NewHTTPClient(config Config) (*http.Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify,
		},
	}

	if config.EnableHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			return nil, fmt.Errorf("failed to configure HTTP/2 transport: %w", err)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}, nil
}
