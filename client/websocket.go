package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// websocketClient WebSocket 客户端实现
type websocketClient struct {
	endpoint string
	conn     *websocket.Conn
	timeout  time.Duration
	logger   Logger
	mu       sync.Mutex
	closed   int32
	nextID   uint64
	requests map[uint64]chan *jsonRPCResponse
	muReq    sync.Mutex
}

// NewWebSocketClient 创建 WebSocket 客户端
func NewWebSocketClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	endpoint := toWebSocketURL(config.Endpoint)

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(endpoint, nil)
	if err != nil {
		return nil, NewNetworkError(fmt.Errorf("dial websocket: %w", err))
	}

	c := &websocketClient{
		endpoint: endpoint,
		conn:     conn,
		timeout:  timeout,
		logger:   config.Logger,
		requests: make(map[uint64]chan *jsonRPCResponse),
	}

	go c.readLoop()

	return c, nil
}

// toWebSocketURL 将 http(s):// 转换为 ws(s)://
func toWebSocketURL(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "ws://"), strings.HasPrefix(endpoint, "wss://"):
		return endpoint
	default:
		return "ws://" + endpoint
	}
}

// readLoop 消息读取循环
func (c *websocketClient) readLoop() {
	defer atomic.StoreInt32(&c.closed, 1)

	for {
		var resp jsonRPCResponse
		if err := c.conn.ReadJSON(&resp); err != nil {
			if c.logger != nil && atomic.LoadInt32(&c.closed) == 0 {
				c.logger.Warn("websocket read failed", "endpoint", c.endpoint, "error", err)
			}
			// 连接关闭：通知所有等待中的请求
			c.muReq.Lock()
			for id, ch := range c.requests {
				ch <- &jsonRPCResponse{
					ID:    id,
					Error: &RPCError{Code: -1, Message: fmt.Sprintf("websocket read error: %v", err)},
				}
			}
			c.requests = make(map[uint64]chan *jsonRPCResponse)
			c.muReq.Unlock()
			return
		}

		c.muReq.Lock()
		ch, exists := c.requests[resp.ID]
		if exists {
			delete(c.requests, resp.ID)
		}
		c.muReq.Unlock()

		if exists {
			ch <- &resp
		}
	}
}

// Call 调用 JSON-RPC 方法
func (c *websocketClient) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return nil, NewNetworkError(fmt.Errorf("websocket client is closed"))
	}
	if params == nil {
		params = []interface{}{}
	}

	reqID := atomic.AddUint64(&c.nextID, 1)
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      reqID,
	}

	// buffered so readLoop never blocks on an abandoned request
	respCh := make(chan *jsonRPCResponse, 1)
	c.muReq.Lock()
	c.requests[reqID] = respCh
	c.muReq.Unlock()

	c.mu.Lock()
	err := c.conn.WriteJSON(req)
	c.mu.Unlock()
	if err != nil {
		c.forget(reqID)
		return nil, NewNetworkError(fmt.Errorf("write request: %w", err))
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil

	case <-ctx.Done():
		c.forget(reqID)
		return nil, ctx.Err()

	case <-timer.C:
		c.forget(reqID)
		return nil, NewTimeoutError()
	}
}

func (c *websocketClient) forget(id uint64) {
	c.muReq.Lock()
	delete(c.requests, id)
	c.muReq.Unlock()
}

// Close 关闭连接
func (c *websocketClient) Close() error {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.conn.Close()
	}
	return nil
}
