package services

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config 业务服务统一配置：合约地址、入场费、gas 策略与轮询参数。
//
// Network discovery is out of scope; callers either use DefaultConfig (Celo
// mainnet deployment) or build one from config.Load.
type Config struct {
	// GameAddress 游戏合约（joinQuest / createCommunityQuest / distributeRewards / withdraw）
	GameAddress common.Address

	// BadgesAddress 徽章 NFT 合约
	BadgesAddress common.Address

	// TokenAddress 入场费代币（cUSD，18 位精度）
	TokenAddress common.Address

	// EntryFee 每日任务入场费（最小单位）
	EntryFee *big.Int

	Gas GasPolicy

	AllowancePoll PollPolicy

	Receipt ReceiptPolicy
}

// GasPolicy 各操作的固定 gas 上限；0 表示交给钱包估算
type GasPolicy struct {
	Approve    uint64
	Join       uint64
	Create     uint64
	Mint       uint64
	Distribute uint64
	Withdraw   uint64
}

// PollPolicy allowance 轮询参数
type PollPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// ReceiptPolicy 收据等待参数
type ReceiptPolicy struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Celo mainnet deployment
var (
	DefaultGameAddress   = common.HexToAddress("0xb1aAe9a1480c685375fcBC5072Ccc9f3EFd5c51C")
	DefaultBadgesAddress = common.HexToAddress("0x6F9fb4a3BdeB7391E0Fb035365f21433E2595c1C")
	DefaultTokenAddress  = common.HexToAddress("0x765DE816845861e75A25fCA122bb6898B8B1282a")
)

// DefaultEntryFee 0.1 cUSD
func DefaultEntryFee() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)
}

// DefaultConfig 返回主网默认配置
func DefaultConfig() *Config {
	return &Config{
		GameAddress:   DefaultGameAddress,
		BadgesAddress: DefaultBadgesAddress,
		TokenAddress:  DefaultTokenAddress,
		EntryFee:      DefaultEntryFee(),
		Gas: GasPolicy{
			Join:       500_000,
			Create:     500_000,
			Distribute: 800_000,
		},
		AllowancePoll: PollPolicy{
			MaxAttempts: 20,
			Interval:    2 * time.Second,
		},
		Receipt: ReceiptPolicy{
			Interval: 2 * time.Second,
			Timeout:  3 * time.Minute,
		},
	}
}
