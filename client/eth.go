package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EthClient 类型化的 EVM JSON-RPC 封装
// 避免上层直接使用 Call(method, params)
type EthClient interface {
	// ChainID 链 ID（eth_chainId）
	ChainID(ctx context.Context) (*big.Int, error)

	// CallContract 只读合约调用（eth_call, latest）
	CallContract(ctx context.Context, msg *CallMsg) ([]byte, error)

	// SendTransaction 由节点/钱包签名并广播（eth_sendTransaction）
	SendTransaction(ctx context.Context, args *TxArgs) (common.Hash, error)

	// SendRawTransaction 广播已签名交易（eth_sendRawTransaction）
	SendRawTransaction(ctx context.Context, signedTx []byte) (common.Hash, error)

	// TransactionReceipt 查询收据；交易未上链时返回 (nil, nil)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error)

	// PendingNonceAt 账户 pending nonce
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)

	// SuggestGasPrice 建议 gas price
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// EstimateGas 估算 gas
	EstimateGas(ctx context.Context, msg *CallMsg) (uint64, error)

	// Close 关闭底层连接
	Close() error
}

// CallMsg 只读调用参数
type CallMsg struct {
	From common.Address
	To   common.Address
	Data []byte
}

// TxArgs eth_sendTransaction 参数
//
// Gas == 0 leaves the limit to the wallet. FeeCurrency is the Celo
// fee-abstraction field (pay gas in an ERC-20).
type TxArgs struct {
	From        common.Address
	To          common.Address
	Data        []byte
	Gas         uint64
	Value       *big.Int
	FeeCurrency *common.Address
}

// MarshalJSON encodes the args the way wallets expect them.
func (a *TxArgs) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"from": a.From.Hex(),
		"to":   a.To.Hex(),
		"data": hexutil.Encode(a.Data),
	}
	if a.Gas > 0 {
		out["gas"] = hexutil.EncodeUint64(a.Gas)
	}
	value := a.Value
	if value == nil {
		value = new(big.Int)
	}
	out["value"] = hexutil.EncodeBig(value)
	if a.FeeCurrency != nil {
		out["feeCurrency"] = a.FeeCurrency.Hex()
	}
	return json.Marshal(out)
}

// Receipt 交易收据（只保留编排需要的字段）
type Receipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber *hexutil.Big   `json:"blockNumber"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
}

// Receipt status values
const (
	ReceiptStatusFailed     = 0
	ReceiptStatusSuccessful = 1
)

// Succeeded 交易是否执行成功
func (r *Receipt) Succeeded() bool {
	return uint64(r.Status) == ReceiptStatusSuccessful
}

// ethClient EthClient 实现
type ethClient struct {
	client Client
}

// NewEthClient 创建 EthClient 实例
func NewEthClient(config *Config) (EthClient, error) {
	c, err := NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &ethClient{client: c}, nil
}

// NewEthClientFromClient 从现有 Client 创建 EthClient
func NewEthClientFromClient(c Client) EthClient {
	return &ethClient{client: c}
}

func (c *ethClient) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := c.call(ctx, &id, "eth_chainId"); err != nil {
		return nil, err
	}
	return (*big.Int)(&id), nil
}

func (c *ethClient) CallContract(ctx context.Context, msg *CallMsg) ([]byte, error) {
	var out hexutil.Bytes
	if err := c.call(ctx, &out, "eth_call", toCallArg(msg), "latest"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ethClient) SendTransaction(ctx context.Context, args *TxArgs) (common.Hash, error) {
	var hash common.Hash
	if err := c.call(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func (c *ethClient) SendRawTransaction(ctx context.Context, signedTx []byte) (common.Hash, error) {
	var hash common.Hash
	if err := c.call(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(signedTx)); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func (c *ethClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	raw, err := c.client.Call(ctx, "eth_getTransactionReceipt", []interface{}{txHash.Hex()})
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("call eth_getTransactionReceipt failed: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var receipt Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, NewInvalidResponseError(fmt.Sprintf("decode receipt: %v", err))
	}
	return &receipt, nil
}

func (c *ethClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var nonce hexutil.Uint64
	if err := c.call(ctx, &nonce, "eth_getTransactionCount", account.Hex(), "pending"); err != nil {
		return 0, err
	}
	return uint64(nonce), nil
}

func (c *ethClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var price hexutil.Big
	if err := c.call(ctx, &price, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return (*big.Int)(&price), nil
}

func (c *ethClient) EstimateGas(ctx context.Context, msg *CallMsg) (uint64, error) {
	var gas hexutil.Uint64
	if err := c.call(ctx, &gas, "eth_estimateGas", toCallArg(msg)); err != nil {
		return 0, err
	}
	return uint64(gas), nil
}

func (c *ethClient) Close() error {
	return c.client.Close()
}

// call 调用并解码 result
func (c *ethClient) call(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	raw, err := c.client.Call(ctx, method, params)
	if err != nil {
		return fmt.Errorf("call %s failed: %w", method, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return NewInvalidResponseError(fmt.Sprintf("%s returned empty result", method))
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return NewInvalidResponseError(fmt.Sprintf("decode %s result: %v", method, err))
	}
	return nil
}

func toCallArg(msg *CallMsg) map[string]interface{} {
	arg := map[string]interface{}{
		"to":   msg.To.Hex(),
		"data": hexutil.Encode(msg.Data),
	}
	if msg.From != (common.Address{}) {
		arg["from"] = msg.From.Hex()
	}
	return arg
}
