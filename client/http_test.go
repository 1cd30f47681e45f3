package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        2,
		InitialDelay:      1,
		MaxDelay:          2,
		BackoffMultiplier: 2,
	}
}

func TestHTTPClient_ErrorHandling(t *testing.T) {
	tests := []struct {
		name         string
		responseBody string
		statusCode   int
		checkFunc    func(*testing.T, json.RawMessage, error)
	}{
		{
			name:         "result is returned raw",
			responseBody: `{"jsonrpc":"2.0","result":"0xa4ec","id":1}`,
			statusCode:   200,
			checkFunc: func(t *testing.T, res json.RawMessage, err error) {
				require.NoError(t, err)
				assert.Equal(t, `"0xa4ec"`, string(res))
			},
		},
		{
			name:         "provider rejection keeps its code",
			responseBody: `{"jsonrpc":"2.0","error":{"code":4001,"message":"User rejected the request."},"id":1}`,
			statusCode:   200,
			checkFunc: func(t *testing.T, _ json.RawMessage, err error) {
				rpcErr, ok := AsRPCError(err)
				require.True(t, ok, "expected RPCError, got %v", err)
				assert.Equal(t, RPCCodeUserRejected, rpcErr.Code)
			},
		},
		{
			name:         "non-retryable HTTP status",
			responseBody: `forbidden`,
			statusCode:   403,
			checkFunc: func(t *testing.T, _ json.RawMessage, err error) {
				require.Error(t, err)
				var cErr *Error
				require.ErrorAs(t, err, &cErr)
				assert.Equal(t, ErrCodeHTTPStatus, cErr.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			c, err := NewClient(&Config{Endpoint: server.URL, Protocol: ProtocolHTTP, Retry: fastRetry()})
			require.NoError(t, err)
			defer c.Close()

			res, err := c.Call(context.Background(), "eth_chainId", nil)
			tt.checkFunc(t, res, err)
		})
	}
}

func TestHTTPClient_RetriesReads(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":"0x1","id":1}`))
	}))
	defer server.Close()

	c, err := NewHTTPClient(&Config{Endpoint: server.URL, Protocol: ProtocolHTTP, Retry: fastRetry()})
	require.NoError(t, err)

	res, err := c.Call(context.Background(), "eth_blockNumber", nil)
	require.NoError(t, err)
	assert.Equal(t, `"0x1"`, string(res))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestHTTPClient_NeverRetriesSends(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c, err := NewHTTPClient(&Config{Endpoint: server.URL, Protocol: ProtocolHTTP, Retry: fastRetry()})
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "eth_sendTransaction", []interface{}{})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

// rpcHandler answers JSON-RPC requests from a method table.
func rpcHandler(t *testing.T, results map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req jsonRPCRequest
		require.NoError(t, json.Unmarshal(body, &req))
		result, ok := results[req.Method]
		if !ok {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32601,"message":"method not found"},"id":1}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":` + result + `,"id":1}`))
	}
}

func TestEthClient_TypedCalls(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, map[string]string{
		"eth_chainId":               `"0xa4ec"`,
		"eth_getTransactionCount":   `"0x7"`,
		"eth_gasPrice":              `"0x3b9aca00"`,
		"eth_call":                  `"0x0000000000000000000000000000000000000000000000000000000000000001"`,
		"eth_getTransactionReceipt": `{"transactionHash":"0x1111111111111111111111111111111111111111111111111111111111111111","status":"0x0","blockNumber":"0x10","gasUsed":"0x5208"}`,
	}))
	defer server.Close()

	ec, err := NewEthClient(&Config{Endpoint: server.URL, Protocol: ProtocolHTTP, Retry: fastRetry()})
	require.NoError(t, err)
	defer ec.Close()
	ctx := context.Background()

	chainID, err := ec.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42220), chainID.Int64())

	nonce, err := ec.PendingNonceAt(ctx, common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	price, err := ec.SuggestGasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), price.Int64())

	out, err := ec.CallContract(ctx, &CallMsg{To: common.HexToAddress("0x02"), Data: []byte{0x01}})
	require.NoError(t, err)
	assert.Len(t, out, 32)

	receipt, err := ec.TransactionReceipt(ctx, common.HexToHash("0x11"))
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.False(t, receipt.Succeeded())
}

func TestEthClient_PendingReceipt(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, map[string]string{
		"eth_getTransactionReceipt": `null`,
	}))
	defer server.Close()

	ec, err := NewEthClient(&Config{Endpoint: server.URL, Protocol: ProtocolHTTP})
	require.NoError(t, err)

	receipt, err := ec.TransactionReceipt(context.Background(), common.HexToHash("0x11"))
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestTxArgs_MarshalJSON(t *testing.T) {
	cusd := common.HexToAddress("0x765DE816845861e75A25fCA122bb6898B8B1282a")
	args := &TxArgs{
		From:        common.HexToAddress("0x01"),
		To:          common.HexToAddress("0x02"),
		Data:        []byte{0xde, 0xad},
		Gas:         500000,
		FeeCurrency: &cusd,
	}

	raw, err := json.Marshal(args)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "0x7a120", decoded["gas"])
	assert.Equal(t, "0xdead", decoded["data"])
	assert.Equal(t, "0x0", decoded["value"])
	assert.Equal(t, cusd.Hex(), decoded["feeCurrency"])

	args.Gas = 0
	args.FeeCurrency = nil
	raw, err = json.Marshal(args)
	require.NoError(t, err)
	decoded = map[string]string{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	_, hasGas := decoded["gas"]
	assert.False(t, hasGas, "gas must be left to the wallet")
}
