package service

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/common"
	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/ledger/domain"
)

// Client implements domain.Client over an Ethereum JSON-RPC endpoint. The
// underlying RPC client can be swapped at runtime by Reinitialize, which
// recovery uses when the endpoint has gone stale.
type Client struct {
	endpoint   string
	httpClient *http.Client
	throttler  domain.Throttler

	mu  sync.RWMutex
	rpc *rpc.Client
	eth *ethclient.Client
}

// ClientOption defines functional options for Client
type ClientOption func(*Client)

// WithThrottler attaches the throttler consulted by metered operations
func WithThrottler(throttler domain.Throttler) ClientOption {
	return func(c *Client) {
		c.throttler = throttler
	}
}

// NewClient creates a ledger client for the given endpoint. No connection
// is dialed until Initialize is called.
func NewClient(endpoint string, httpClient *http.Client, options ...ClientOption) (*Client, error) {
	if endpoint == "" {
		return nil, common.InvalidInputError("ledger endpoint is required")
	}

	client := &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
	}

	for _, option := range options {
		option(client)
	}

	return client, nil
}

// Initialize dials the RPC endpoint. Safe to call again after a failure.
func (c *Client) Initialize(ctx context.Context) error {
	return c.Reinitialize(ctx)
}

// Reinitialize dials a fresh RPC client and swaps it in, closing the old
// one. Callers holding a stale handle finish their call against it; the
// next operation picks up the new client.
func (c *Client) Reinitialize(ctx context.Context) error {
	var (
		rpcClient *rpc.Client
		err       error
	)

	if c.httpClient != nil {
		rpcClient, err = rpc.DialOptions(ctx, c.endpoint, rpc.WithHTTPClient(c.httpClient))
	} else {
		rpcClient, err = rpc.DialContext(ctx, c.endpoint)
	}
	if err != nil {
		return common.NotInitializedError("ledger dial %s failed: %v", c.endpoint, err)
	}

	c.mu.Lock()
	old := c.rpc
	c.rpc = rpcClient
	c.eth = ethclient.NewClient(rpcClient)
	c.mu.Unlock()

	if old != nil {
		old.Close()
		log.Println("Ledger client reinitialized")
	}

	return nil
}

// NetworkID returns the ledger network identifier
func (c *Client) NetworkID(ctx context.Context) (uint64, error) {
	eth, err := c.ethClient()
	if err != nil {
		return 0, err
	}

	id, err := eth.NetworkID(ctx)
	if err != nil {
		return 0, err
	}

	return id.Uint64(), nil
}

// BlockNumber returns the latest block height
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	eth, err := c.ethClient()
	if err != nil {
		return 0, err
	}

	return eth.BlockNumber(ctx)
}

// Accounts lists the accounts exposed by the endpoint
func (c *Client) Accounts(ctx context.Context) ([]string, error) {
	rpcClient, err := c.rpcClient()
	if err != nil {
		return nil, err
	}

	var accounts []string
	if err := rpcClient.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}

	return accounts, nil
}

// Do runs one metered operation of the given type after consulting the
// throttler. A rejection is returned without executing fn; the caller
// decides whether to retry later.
func (c *Client) Do(ctx context.Context, operationType string, batch int, fn func(context.Context, *ethclient.Client) error) error {
	if err := common.HandleContextError(ctx, "ledger operation"); err != nil {
		return err
	}

	if c.throttler != nil {
		if err := c.throttler.TryAcquire(operationType, batch); err != nil {
			return err
		}
	}

	eth, err := c.ethClient()
	if err != nil {
		return err
	}

	return fn(ctx, eth)
}

// Close releases the underlying RPC client
func (c *Client) Close() {
	c.mu.Lock()
	rpcClient := c.rpc
	c.rpc = nil
	c.eth = nil
	c.mu.Unlock()

	if rpcClient != nil {
		rpcClient.Close()
	}
}

func (c *Client) ethClient() (*ethclient.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.eth == nil {
		return nil, common.NotInitializedError("ledger client not initialized")
	}
	return c.eth, nil
}

func (c *Client) rpcClient() (*rpc.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.rpc == nil {
		return nil, common.NotInitializedError("ledger client not initialized")
	}
	return c.rpc, nil
}
