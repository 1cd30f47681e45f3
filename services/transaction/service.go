package transaction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"

	"github.com/quesster/client-sdk-go/client"
	"github.com/quesster/client-sdk-go/services"
	"github.com/quesster/client-sdk-go/types"
	"github.com/quesster/client-sdk-go/wallet"
)

// User-facing submission messages
const (
	MsgWalletNotConnected = "Wallet not connected"
	MsgUserRejected       = "Transaction rejected in wallet."
	MsgInsufficientFunds  = "Insufficient cUSD."
	MsgTxReverted         = "Transaction failed on-chain."
	MsgTxNotConfirmed     = "Transaction not confirmed yet. Please refresh."
)

// Status 交易结果状态
type Status string

const (
	StatusSent      Status = "sent"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Outcome 交易结果
type Outcome struct {
	Hash    common.Hash
	Status  Status
	Receipt *client.Receipt
	Err     error
}

// Service 交易提交与确认
type Service interface {
	// Submit 通过钱包原始发送原语广播，不做预执行模拟，也从不自动重试
	Submit(ctx context.Context, w *wallet.Context, intent *Intent) (common.Hash, error)

	// AwaitReceipt 轮询收据直到确认、回滚或超时
	AwaitReceipt(ctx context.Context, hash common.Hash) (*Outcome, error)
}

// transactionService Service 实现
type transactionService struct {
	eth    client.EthClient
	policy services.ReceiptPolicy
	clock  clockwork.Clock
	logger client.Logger
}

// Option 服务选项
type Option func(*transactionService)

// WithClock 替换时钟（测试用）
func WithClock(clock clockwork.Clock) Option {
	return func(s *transactionService) { s.clock = clock }
}

// WithLogger 设置日志
func WithLogger(logger client.Logger) Option {
	return func(s *transactionService) { s.logger = logger }
}

// NewService 创建交易服务
func NewService(eth client.EthClient, config *services.Config, opts ...Option) Service {
	if config == nil {
		config = services.DefaultConfig()
	}
	s := &transactionService{
		eth:    eth,
		policy: config.Receipt,
		clock:  clockwork.NewRealClock(),
		logger: client.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *transactionService) Submit(ctx context.Context, w *wallet.Context, intent *Intent) (common.Hash, error) {
	if !w.Connected() {
		return common.Hash{}, Classify(wallet.ErrNotConnected)
	}

	hash, err := w.Send(ctx, &wallet.TxRequest{
		To:          intent.To,
		Data:        intent.Data,
		Gas:         intent.Gas,
		FeeCurrency: intent.FeeCurrency,
	})
	if err != nil {
		qe := Classify(err)
		s.logger.Warn("submit failed", "kind", intent.Kind, "error_kind", qe.Kind, "error", err)
		return common.Hash{}, qe
	}

	s.logger.Info("transaction sent", "kind", intent.Kind, "hash", hash.Hex(), "from", w.Address.Hex())
	return hash, nil
}

func (s *transactionService) AwaitReceipt(ctx context.Context, hash common.Hash) (*Outcome, error) {
	interval := s.policy.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	deadline := s.clock.After(s.policy.Timeout)

	for {
		receipt, err := s.eth.TransactionReceipt(ctx, hash)
		switch {
		case err != nil:
			// Transient; the node may not have indexed the transaction yet.
			s.logger.Debug("receipt query failed", "hash", hash.Hex(), "error", err)
		case receipt != nil && receipt.Succeeded():
			return &Outcome{Hash: hash, Status: StatusConfirmed, Receipt: receipt}, nil
		case receipt != nil:
			qe := types.NewQuestError(types.KindReceipt, types.CodeTxReverted, MsgTxReverted,
				errors.New("transaction reverted: "+hash.Hex()))
			return &Outcome{Hash: hash, Status: StatusFailed, Receipt: receipt, Err: qe}, qe
		}

		select {
		case <-ctx.Done():
			qe := types.NewQuestError(types.KindReceipt, types.CodeTxNotConfirmed, MsgTxNotConfirmed, ctx.Err())
			return &Outcome{Hash: hash, Status: StatusSent, Err: qe}, qe
		case <-deadline:
			qe := types.NewQuestError(types.KindReceipt, types.CodeTxNotConfirmed, MsgTxNotConfirmed,
				errors.New("no receipt for "+hash.Hex()+" within "+s.policy.Timeout.String()))
			return &Outcome{Hash: hash, Status: StatusFailed, Err: qe}, qe
		case <-s.clock.After(interval):
		}
	}
}

// Classify 将提交错误映射为 QuestError
func Classify(err error) *types.QuestError {
	if qe, ok := types.IsQuestError(err); ok {
		return qe
	}
	if errors.Is(err, wallet.ErrNotConnected) {
		return types.NewQuestError(types.KindWallet, types.CodeWalletNotConnected, MsgWalletNotConnected, err)
	}

	msg := strings.ToLower(err.Error())
	if rpcErr, ok := client.AsRPCError(err); ok && rpcErr.Code == client.RPCCodeUserRejected ||
		strings.Contains(msg, "user rejected") || strings.Contains(msg, "user denied") {
		return types.NewQuestError(types.KindWallet, types.CodeUserRejected, MsgUserRejected, err)
	}
	if strings.Contains(msg, "insufficient funds") || strings.Contains(msg, "transfer value exceeded") {
		return types.NewQuestError(types.KindFunds, types.CodeInsufficientFunds, MsgInsufficientFunds, err)
	}
	return types.NewQuestError(types.KindNetwork, types.CodeRPCError, "Error: "+err.Error(), err)
}
