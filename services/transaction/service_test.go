package transaction

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quesster/client-sdk-go/client"
	"github.com/quesster/client-sdk-go/services"
	"github.com/quesster/client-sdk-go/services/commitment"
	"github.com/quesster/client-sdk-go/types"
	"github.com/quesster/client-sdk-go/utils"
	"github.com/quesster/client-sdk-go/wallet"
)

type recordingSender struct {
	mu   sync.Mutex
	reqs []*wallet.TxRequest
	err  error
}

func (s *recordingSender) SendTransaction(ctx context.Context, from common.Address, req *wallet.TxRequest) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return common.Hash{}, s.err
	}
	return common.HexToHash(fmt.Sprintf("0x%x", len(s.reqs))), nil
}

type receiptChain struct {
	client.EthClient

	mu       sync.Mutex
	receipts []*client.Receipt
	errs     []error
	queries  int
}

func (c *receiptChain) TransactionReceipt(ctx context.Context, hash common.Hash) (*client.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.queries
	c.queries++
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i < len(c.receipts) {
		return c.receipts[i], nil
	}
	return nil, nil
}

var player = common.HexToAddress("0x1111111111111111111111111111111111111111")

func connected(s wallet.Sender) *wallet.Context {
	return &wallet.Context{Address: player, ChainID: big.NewInt(42220), Sender: s}
}

func TestBuilder_GasPolicy(t *testing.T) {
	cfg := services.DefaultConfig()
	b := NewBuilder(cfg)
	commits := commitment.CommitAll([]string{"Paris", "4", "Blue"})

	approve, err := b.Approve(cfg.EntryFee)
	require.NoError(t, err)
	assert.Equal(t, cfg.TokenAddress, approve.To)
	assert.Zero(t, approve.Gas)
	require.NotNil(t, approve.FeeCurrency)
	assert.Equal(t, cfg.TokenAddress, *approve.FeeCurrency)

	join, err := b.Join(commits)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x7A120), join.Gas)
	assert.Equal(t, cfg.GameAddress, join.To)
	assert.Nil(t, join.FeeCurrency)

	create, err := b.Create(cfg.EntryFee, 24, commits)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), create.Gas)

	mint, err := b.MintBadge()
	require.NoError(t, err)
	assert.Zero(t, mint.Gas)
	assert.Equal(t, cfg.BadgesAddress, mint.To)

	dist, err := b.DistributeRewards(big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(0xC3500), dist.Gas)

	withdraw, err := b.Withdraw()
	require.NoError(t, err)
	assert.Zero(t, withdraw.Gas)
}

func TestBuilder_JoinEncodesCommitmentsInOrder(t *testing.T) {
	commits := commitment.CommitAll([]string{"Paris", "4", "Blue"})
	intent, err := NewBuilder(nil).Join(commits)
	require.NoError(t, err)

	args, err := utils.QuestGameABI.Methods[utils.MethodJoinQuest].Inputs.Unpack(intent.Data[4:])
	require.NoError(t, err)
	decoded := args[0].([][32]byte)
	require.Len(t, decoded, 3)
	for i, c := range commits {
		assert.Equal(t, [32]byte(c), decoded[i])
	}
}

func TestBuilder_Validation(t *testing.T) {
	b := NewBuilder(nil)
	commits := commitment.CommitAll([]string{"a"})

	_, err := b.Join(nil)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
	_, err = b.Create(big.NewInt(0), 24, commits)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
	_, err = b.Create(big.NewInt(1), 0, commits)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
	_, err = b.DistributeRewards(big.NewInt(-1))
	assert.Equal(t, types.KindValidation, types.KindOf(err))
	_, err = b.Approve(nil)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestSubmit_PassesIntentThrough(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(&receiptChain{}, nil)
	intent, err := NewBuilder(nil).Join(commitment.CommitAll([]string{"x"}))
	require.NoError(t, err)

	hash, err := svc.Submit(context.Background(), connected(sender), intent)
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)
	require.Len(t, sender.reqs, 1)
	assert.Equal(t, intent.Data, sender.reqs[0].Data)
	assert.Equal(t, intent.Gas, sender.reqs[0].Gas)
}

func TestSubmit_NotConnected(t *testing.T) {
	svc := NewService(&receiptChain{}, nil)
	intent, _ := NewBuilder(nil).MintBadge()

	_, err := svc.Submit(context.Background(), &wallet.Context{}, intent)
	qe, ok := types.IsQuestError(err)
	require.True(t, ok)
	assert.Equal(t, types.KindWallet, qe.Kind)
	assert.Equal(t, types.CodeWalletNotConnected, qe.Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind types.ErrorKind
		code string
	}{
		{"eip-1193 rejection", &client.RPCError{Code: 4001, Message: "User rejected the request."}, types.KindWallet, types.CodeUserRejected},
		{"wrapped rejection", fmt.Errorf("send: %w", &client.RPCError{Code: 4001, Message: "denied"}), types.KindWallet, types.CodeUserRejected},
		{"rejection text", errors.New("MetaMask Tx Signature: User denied transaction signature."), types.KindWallet, types.CodeUserRejected},
		{"insufficient funds", &client.RPCError{Code: -32000, Message: "insufficient funds for gas * price + value"}, types.KindFunds, types.CodeInsufficientFunds},
		{"transfer value exceeded", errors.New("execution reverted: transfer value exceeded balance of sender"), types.KindFunds, types.CodeInsufficientFunds},
		{"not connected", wallet.ErrNotConnected, types.KindWallet, types.CodeWalletNotConnected},
		{"network", client.NewNetworkError(errors.New("connection refused")), types.KindNetwork, types.CodeRPCError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qe := Classify(tt.err)
			assert.Equal(t, tt.kind, qe.Kind)
			assert.Equal(t, tt.code, qe.Code)
			assert.ErrorIs(t, qe, tt.err)
		})
	}

	assert.Equal(t, MsgInsufficientFunds, Classify(errors.New("insufficient funds")).UserMessage)
}

func TestSubmit_NeverRetries(t *testing.T) {
	sender := &recordingSender{err: client.NewNetworkError(errors.New("EOF"))}
	svc := NewService(&receiptChain{}, nil)
	intent, _ := NewBuilder(nil).Withdraw()

	_, err := svc.Submit(context.Background(), connected(sender), intent)
	assert.Equal(t, types.KindNetwork, types.KindOf(err))
	assert.Len(t, sender.reqs, 1)
}

func fastConfig() *services.Config {
	cfg := services.DefaultConfig()
	cfg.Receipt = services.ReceiptPolicy{Interval: time.Second, Timeout: 10 * time.Second}
	return cfg
}

func TestAwaitReceipt_ConfirmedAfterPending(t *testing.T) {
	chain := &receiptChain{
		receipts: []*client.Receipt{nil, nil, {Status: hexutil.Uint64(1)}},
		errs:     []error{errors.New("flaky"), nil, nil},
	}
	clock := clockwork.NewFakeClock()
	svc := NewService(chain, fastConfig(), WithClock(clock))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan *Outcome, 1)
	go func() {
		out, _ := svc.AwaitReceipt(ctx, common.HexToHash("0x1"))
		done <- out
	}()

	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 2))
		clock.Advance(time.Second)
	}

	out := <-done
	assert.Equal(t, StatusConfirmed, out.Status)
	assert.NoError(t, out.Err)
	assert.Equal(t, 3, chain.queries)
}

func TestAwaitReceipt_Reverted(t *testing.T) {
	chain := &receiptChain{receipts: []*client.Receipt{{Status: hexutil.Uint64(0)}}}
	svc := NewService(chain, fastConfig(), WithClock(clockwork.NewFakeClock()))

	out, err := svc.AwaitReceipt(context.Background(), common.HexToHash("0x1"))
	require.Error(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	qe, _ := types.IsQuestError(err)
	assert.Equal(t, types.CodeTxReverted, qe.Code)
}

func TestAwaitReceipt_Timeout(t *testing.T) {
	chain := &receiptChain{}
	clock := clockwork.NewFakeClock()
	svc := NewService(chain, fastConfig(), WithClock(clock))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := svc.AwaitReceipt(ctx, common.HexToHash("0x1"))
		done <- err
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	clock.Advance(10 * time.Second)

	err := <-done
	qe, ok := types.IsQuestError(err)
	require.True(t, ok)
	assert.Equal(t, types.KindReceipt, qe.Kind)
	assert.Equal(t, types.CodeTxNotConfirmed, qe.Code)
}
