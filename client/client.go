package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// Client JSON-RPC 客户端接口
type Client interface {
	// Call 调用 JSON-RPC 方法，返回原始 result
	Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error)

	// Close 关闭连接
	Close() error
}

// NewClient 创建新的客户端
func NewClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Protocol {
	case ProtocolHTTP:
		return NewHTTPClient(config)
	case ProtocolWebSocket:
		return NewWebSocketClient(config)
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", config.Protocol)
	}
}

// sendMethods never go through the retry loop: a send that timed out may
// already be in the mempool, and resending it risks a double submission.
var sendMethods = map[string]bool{
	"eth_sendTransaction":    true,
	"eth_sendRawTransaction": true,
}

func isSendMethod(method string) bool {
	return sendMethods[method]
}

// jsonRPCRequest JSON-RPC请求结构
type jsonRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      uint64      `json:"id"`
}

// jsonRPCResponse JSON-RPC响应结构
type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}
