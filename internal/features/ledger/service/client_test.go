package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/common"
	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/ledger/domain"
)

// newRPCServer serves a minimal JSON-RPC endpoint for the methods the
// client issues
func newRPCServer(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result interface{}
		switch req.Method {
		case "net_version":
			result = "5777"
		case "eth_blockNumber":
			result = "0x10"
		case "eth_accounts":
			result = []string{"0x627306090abaB3A6e1400e9345bC60c78a8BEf57"}
		default:
			t.Fatalf("unexpected RPC method %q", req.Method)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
}

func TestClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient("", nil)
	require.Error(t, err)
	assert.True(t, common.IsInvalidInput(err))
}

func TestClientFailsBeforeInitialize(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:8545", nil)
	require.NoError(t, err)

	_, err = client.NetworkID(context.Background())
	require.ErrorIs(t, err, common.ErrNotInitialized)

	_, err = client.Accounts(context.Background())
	require.ErrorIs(t, err, common.ErrNotInitialized)
}

func TestClientOperations(t *testing.T) {
	server := newRPCServer(t)
	defer server.Close()

	client, err := NewClient(server.URL, server.Client())
	require.NoError(t, err)
	require.NoError(t, client.Initialize(context.Background()))
	defer client.Close()

	id, err := client.NetworkID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5777), id)

	height, err := client.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10), height)

	accounts, err := client.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "0x627306090abaB3A6e1400e9345bC60c78a8BEf57", accounts[0])
}

func TestReinitializeSwapsClient(t *testing.T) {
	server := newRPCServer(t)
	defer server.Close()

	client, err := NewClient(server.URL, server.Client())
	require.NoError(t, err)
	require.NoError(t, client.Initialize(context.Background()))
	defer client.Close()

	require.NoError(t, client.Reinitialize(context.Background()))

	id, err := client.NetworkID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5777), id)
}

func TestDoConsultsThrottlerBeforeExecuting(t *testing.T) {
	server := newRPCServer(t)
	defer server.Close()

	throttler := NewThrottler(domain.Ceiling{MaxOpsPerMinute: 1, MaxBatchSize: 1})
	client, err := NewClient(server.URL, server.Client(), WithThrottler(throttler))
	require.NoError(t, err)
	require.NoError(t, client.Initialize(context.Background()))
	defer client.Close()

	executed := 0
	op := func(ctx context.Context, eth *ethclient.Client) error {
		executed++
		return nil
	}

	require.NoError(t, client.Do(context.Background(), "write", 1, op))
	assert.Equal(t, 1, executed)

	err = client.Do(context.Background(), "write", 1, op)
	require.Error(t, err)
	assert.True(t, common.IsThrottleExceeded(err))
	assert.Equal(t, 1, executed, "rejected operation must not execute")
}
