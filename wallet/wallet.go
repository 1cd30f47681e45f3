package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/quesster/client-sdk-go/client"
)

// ErrNotConnected 未连接钱包
var ErrNotConnected = errors.New("wallet not connected")

// Sender 交易发送方
//
// Implementations either hand the request to an injected provider that signs
// it (ProviderSender) or sign locally and broadcast a raw transaction
// (KeyWallet). Neither simulates the call first.
type Sender interface {
	SendTransaction(ctx context.Context, from common.Address, req *TxRequest) (common.Hash, error)
}

// TxRequest 待发送交易
type TxRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int

	// Gas 为 0 时由钱包估算
	Gas uint64

	// FeeCurrency 以 ERC-20 支付 gas（Celo fee abstraction），nil 表示 CELO
	FeeCurrency *common.Address
}

// Context 调用方的钱包上下文
type Context struct {
	Address common.Address
	ChainID *big.Int
	Sender  Sender
}

// Connected 是否已连接
func (c *Context) Connected() bool {
	return c != nil && c.Sender != nil && c.Address != (common.Address{})
}

// Send 以当前账户发送交易
func (c *Context) Send(ctx context.Context, req *TxRequest) (common.Hash, error) {
	if !c.Connected() {
		return common.Hash{}, ErrNotConnected
	}
	return c.Sender.SendTransaction(ctx, c.Address, req)
}

// ProviderSender 通过 eth_sendTransaction 交给钱包签名
type ProviderSender struct {
	eth client.EthClient
}

// NewProviderSender 创建 ProviderSender
func NewProviderSender(eth client.EthClient) *ProviderSender {
	return &ProviderSender{eth: eth}
}

// SendTransaction 发送交易
func (p *ProviderSender) SendTransaction(ctx context.Context, from common.Address, req *TxRequest) (common.Hash, error) {
	return p.eth.SendTransaction(ctx, &client.TxArgs{
		From:        from,
		To:          req.To,
		Data:        req.Data,
		Gas:         req.Gas,
		Value:       req.Value,
		FeeCurrency: req.FeeCurrency,
	})
}

// KeyWallet 本地私钥钱包（用于脚本和测试）
//
// go-ethereum cannot sign Celo fee-currency transactions, so FeeCurrency is
// ignored and gas is paid in CELO.
type KeyWallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
	eth        client.EthClient
}

// NewKeyWallet 生成新私钥
func NewKeyWallet(eth client.EthClient, chainID *big.Int) (*KeyWallet, error) {
	privateKey, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}
	return newKeyWallet(privateKey, eth, chainID), nil
}

// NewKeyWalletFromHex 从十六进制私钥创建
func NewKeyWalletFromHex(privateKeyHex string, eth client.EthClient, chainID *big.Int) (*KeyWallet, error) {
	privateKey, err := ethcrypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return newKeyWallet(privateKey, eth, chainID), nil
}

func newKeyWallet(privateKey *ecdsa.PrivateKey, eth client.EthClient, chainID *big.Int) *KeyWallet {
	return &KeyWallet{
		privateKey: privateKey,
		address:    ethcrypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    chainID,
		eth:        eth,
	}
}

// Address 钱包地址
func (w *KeyWallet) Address() common.Address {
	return w.address
}

// Context 绑定到该钱包的上下文
func (w *KeyWallet) Context() *Context {
	return &Context{Address: w.address, ChainID: w.chainID, Sender: w}
}

// SignTx 签名交易
func (w *KeyWallet) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}

// SendTransaction 签名并广播
func (w *KeyWallet) SendTransaction(ctx context.Context, from common.Address, req *TxRequest) (common.Hash, error) {
	if from != w.address {
		return common.Hash{}, fmt.Errorf("sender %s does not match wallet %s", from.Hex(), w.address.Hex())
	}

	// 1. nonce
	nonce, err := w.eth.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce failed: %w", err)
	}

	// 2. gas price
	gasPrice, err := w.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get gas price failed: %w", err)
	}

	// 3. gas limit
	gas := req.Gas
	if gas == 0 {
		gas, err = w.eth.EstimateGas(ctx, &client.CallMsg{From: w.address, To: req.To, Data: req.Data})
		if err != nil {
			return common.Hash{}, fmt.Errorf("estimate gas failed: %w", err)
		}
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     req.Data,
	})

	// 4. 签名并广播
	signed, err := w.SignTx(tx)
	if err != nil {
		return common.Hash{}, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode transaction: %w", err)
	}
	return w.eth.SendRawTransaction(ctx, raw)
}
