package client

import (
	"errors"
	"fmt"
	"strings"
)

// Error 客户端错误
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("client error [%d]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("client error [%d]: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// 错误码定义
const (
	ErrCodeNetwork         = 1000 // 网络错误
	ErrCodeTimeout         = 1001 // 超时错误
	ErrCodeInvalidResponse = 1002 // 无效响应
	ErrCodeHTTPStatus      = 1003 // 非 200 响应
)

// NewNetworkError 创建网络错误
func NewNetworkError(err error) *Error {
	return &Error{
		Code:    ErrCodeNetwork,
		Message: "network error",
		Err:     err,
	}
}

// NewTimeoutError 创建超时错误
func NewTimeoutError() *Error {
	return &Error{
		Code:    ErrCodeTimeout,
		Message: "request timeout",
	}
}

// NewInvalidResponseError 创建无效响应错误
func NewInvalidResponseError(message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidResponse,
		Message: message,
	}
}

// RPCError JSON-RPC 错误对象
//
// Wallet providers follow EIP-1193 codes (4001 user rejected, 4100
// unauthorized); nodes use the -32xxx range.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("JSON-RPC error: code=%d, message=%s, data=%v", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("JSON-RPC error: code=%d, message=%s", e.Code, e.Message)
}

// EIP-1193 provider error codes
const (
	RPCCodeUserRejected = 4001
	RPCCodeUnauthorized = 4100
	RPCCodeDisconnected = 4900

	RPCCodeMethodNotFound = -32601
)

// AsRPCError 从错误链中提取 RPCError
func AsRPCError(err error) (*RPCError, bool) {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	return nil, false
}

// IsNotFound reports node answers meaning "no such object yet".
func IsNotFound(err error) bool {
	rpcErr, ok := AsRPCError(err)
	if !ok || rpcErr.Code == RPCCodeMethodNotFound {
		return false
	}
	return strings.Contains(strings.ToLower(rpcErr.Message), "not found")
}
