package contract

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quesster/client-sdk-go/client"
	"github.com/quesster/client-sdk-go/services"
	"github.com/quesster/client-sdk-go/utils"
)

// Service 合约只读接口
type Service interface {
	// ReadAllowance cUSD allowance(owner, spender)
	ReadAllowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)

	// ReadHasJoined 是否已加入当前每日任务
	ReadHasJoined(ctx context.Context, player common.Address) (bool, error)

	// ReadBadgeBalance 徽章 NFT 数量
	ReadBadgeBalance(ctx context.Context, owner common.Address) (*big.Int, error)

	// ReadState 并行刷新以上三项
	ReadState(ctx context.Context, player common.Address) (*State, error)
}

// State 缓存的链上读状态
//
// Refreshed explicitly after each confirmed mutation; it may be stale in
// between.
type State struct {
	Player       common.Address
	Allowance    *big.Int
	EntryFee     *big.Int
	HasJoined    bool
	BadgeBalance *big.Int
	ReadAt       time.Time
}

// SufficientAllowance allowance >= entry fee
func (s *State) SufficientAllowance() bool {
	return s != nil && s.Allowance != nil && s.EntryFee != nil && s.Allowance.Cmp(s.EntryFee) >= 0
}

// HasBadge 持有至少一枚徽章（Pro 模式门槛）
func (s *State) HasBadge() bool {
	return s != nil && s.BadgeBalance != nil && s.BadgeBalance.Sign() > 0
}

// contractService Service 实现
type contractService struct {
	eth    client.EthClient
	config *services.Config
	now    func() time.Time
}

// NewService 创建合约读服务；config 为 nil 时使用主网默认配置
func NewService(eth client.EthClient, config *services.Config) Service {
	if config == nil {
		config = services.DefaultConfig()
	}
	return &contractService{eth: eth, config: config, now: time.Now}
}

func (s *contractService) ReadAllowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return s.viewBigInt(ctx, s.config.TokenAddress, utils.ERC20ABI, utils.MethodAllowance, owner, spender)
}

func (s *contractService) ReadHasJoined(ctx context.Context, player common.Address) (bool, error) {
	return s.viewBool(ctx, s.config.GameAddress, utils.QuestGameABI, utils.MethodHasJoinedCurrent, player)
}

func (s *contractService) ReadBadgeBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return s.viewBigInt(ctx, s.config.BadgesAddress, utils.BadgesABI, utils.MethodBalanceOf, owner)
}

func (s *contractService) ReadState(ctx context.Context, player common.Address) (*State, error) {
	state := &State{Player: player, EntryFee: s.config.EntryFee}

	reads := []func(ctx context.Context) error{
		func(ctx context.Context) (err error) {
			state.Allowance, err = s.ReadAllowance(ctx, player, s.config.GameAddress)
			return err
		},
		func(ctx context.Context) (err error) {
			state.HasJoined, err = s.ReadHasJoined(ctx, player)
			return err
		},
		func(ctx context.Context) (err error) {
			state.BadgeBalance, err = s.ReadBadgeBalance(ctx, player)
			return err
		},
	}
	_, err := utils.ParallelExecute(ctx, reads, func(ctx context.Context, read func(context.Context) error) (struct{}, error) {
		return struct{}{}, read(ctx)
	}, len(reads))
	if err != nil {
		return nil, fmt.Errorf("read state failed: %w", err)
	}

	state.ReadAt = s.now()
	return state, nil
}
