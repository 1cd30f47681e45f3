// Package config loads application settings from a config file, a .env file
// and QUESSTER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/quesster/client-sdk-go/client"
	"github.com/quesster/client-sdk-go/services"
	"github.com/quesster/client-sdk-go/utils"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "QUESSTER"

// 配置键
const (
	KeyRPCEndpoint      = "rpc.endpoint"
	KeyRPCProtocol      = "rpc.protocol"
	KeyRPCTimeout       = "rpc.timeout"
	KeyChainID          = "chain_id"
	KeyLogLevel         = "log.level"
	KeyDatabaseURL      = "database.url"
	KeyPrivateKey       = "wallet.private_key"
	KeyKeystorePath     = "wallet.keystore"
	KeyKeystorePassword = "wallet.password"
	KeyGameAddress      = "contracts.game"
	KeyBadgesAddress    = "contracts.badges"
	KeyTokenAddress     = "contracts.token"
	KeyEntryFee         = "entry_fee"
	KeyGasApprove       = "gas.approve"
	KeyGasJoin          = "gas.join"
	KeyGasCreate        = "gas.create"
	KeyGasMint          = "gas.mint"
	KeyGasDistribute    = "gas.distribute"
	KeyGasWithdraw      = "gas.withdraw"
	KeyPollAttempts     = "allowance_poll.max_attempts"
	KeyPollInterval     = "allowance_poll.interval"
	KeyReceiptInterval  = "receipt.interval"
	KeyReceiptTimeout   = "receipt.timeout"
	KeyMetricsAddr      = "metrics.addr"
	KeyDistributeAt     = "schedule.distribute_at"
)

// Settings 应用配置
type Settings struct {
	RPC      *client.Config
	ChainID  *big.Int
	LogLevel string

	// DatabaseURL 为空时使用内存存储
	DatabaseURL string

	PrivateKey       string
	KeystorePath     string
	KeystorePassword string

	// MetricsAddr 为空时不暴露 /metrics
	MetricsAddr string

	// DistributeAt 每日自动分发奖励的时间（HH:MM，本地时区）
	DistributeAt string

	Services *services.Config
}

// NewViper 带默认值与环境变量绑定的 viper 实例
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	def := services.DefaultConfig()
	rpc := client.DefaultConfig()

	v.SetDefault(KeyRPCEndpoint, rpc.Endpoint)
	v.SetDefault(KeyRPCProtocol, string(rpc.Protocol))
	v.SetDefault(KeyRPCTimeout, rpc.Timeout)
	v.SetDefault(KeyChainID, 42220)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyDatabaseURL, "")
	v.SetDefault(KeyPrivateKey, "")
	v.SetDefault(KeyKeystorePath, "")
	v.SetDefault(KeyKeystorePassword, "")
	v.SetDefault(KeyGameAddress, def.GameAddress.Hex())
	v.SetDefault(KeyBadgesAddress, def.BadgesAddress.Hex())
	v.SetDefault(KeyTokenAddress, def.TokenAddress.Hex())
	v.SetDefault(KeyEntryFee, "0.1")
	v.SetDefault(KeyGasApprove, def.Gas.Approve)
	v.SetDefault(KeyGasJoin, def.Gas.Join)
	v.SetDefault(KeyGasCreate, def.Gas.Create)
	v.SetDefault(KeyGasMint, def.Gas.Mint)
	v.SetDefault(KeyGasDistribute, def.Gas.Distribute)
	v.SetDefault(KeyGasWithdraw, def.Gas.Withdraw)
	v.SetDefault(KeyPollAttempts, def.AllowancePoll.MaxAttempts)
	v.SetDefault(KeyPollInterval, def.AllowancePoll.Interval)
	v.SetDefault(KeyReceiptInterval, def.Receipt.Interval)
	v.SetDefault(KeyReceiptTimeout, def.Receipt.Timeout)
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyDistributeAt, "00:05")
}

// LoadDotEnv 加载 .env；文件不存在不是错误
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env failed: %w", err)
	}
	return nil
}

// Load 读取配置
//
// Precedence, highest first: values set on v (e.g. bound flags),
// QUESSTER_* environment (including .env), the config file at path, defaults.
func Load(v *viper.Viper, path string) (*Settings, error) {
	if v == nil {
		v = NewViper()
	}
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s failed: %w", path, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Settings, error) {
	// 1. 合约地址
	game, err := address(v, KeyGameAddress)
	if err != nil {
		return nil, err
	}
	badges, err := address(v, KeyBadgesAddress)
	if err != nil {
		return nil, err
	}
	token, err := address(v, KeyTokenAddress)
	if err != nil {
		return nil, err
	}

	// 2. 入场费
	fee, err := utils.ParseUnits(v.GetString(KeyEntryFee), utils.TokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyEntryFee, err)
	}
	if fee.Sign() <= 0 {
		return nil, fmt.Errorf("invalid %s: must be positive", KeyEntryFee)
	}

	// 3. 轮询参数
	svc := &services.Config{
		GameAddress:   game,
		BadgesAddress: badges,
		TokenAddress:  token,
		EntryFee:      fee,
		Gas: services.GasPolicy{
			Approve:    v.GetUint64(KeyGasApprove),
			Join:       v.GetUint64(KeyGasJoin),
			Create:     v.GetUint64(KeyGasCreate),
			Mint:       v.GetUint64(KeyGasMint),
			Distribute: v.GetUint64(KeyGasDistribute),
			Withdraw:   v.GetUint64(KeyGasWithdraw),
		},
		AllowancePoll: services.PollPolicy{
			MaxAttempts: v.GetInt(KeyPollAttempts),
			Interval:    v.GetDuration(KeyPollInterval),
		},
		Receipt: services.ReceiptPolicy{
			Interval: v.GetDuration(KeyReceiptInterval),
			Timeout:  v.GetDuration(KeyReceiptTimeout),
		},
	}
	if svc.AllowancePoll.MaxAttempts <= 0 {
		return nil, fmt.Errorf("invalid %s: must be positive", KeyPollAttempts)
	}
	if svc.AllowancePoll.Interval <= 0 || svc.Receipt.Interval <= 0 || svc.Receipt.Timeout <= 0 {
		return nil, errors.New("poll intervals and receipt timeout must be positive")
	}

	// 4. 节点
	protocol := client.Protocol(strings.ToLower(v.GetString(KeyRPCProtocol)))
	if protocol != client.ProtocolHTTP && protocol != client.ProtocolWebSocket {
		return nil, fmt.Errorf("unsupported rpc protocol %q", protocol)
	}
	chainID := v.GetInt64(KeyChainID)
	if chainID <= 0 {
		return nil, fmt.Errorf("invalid %s: %d", KeyChainID, chainID)
	}

	return &Settings{
		RPC: &client.Config{
			Endpoint: v.GetString(KeyRPCEndpoint),
			Protocol: protocol,
			Timeout:  v.GetInt(KeyRPCTimeout),
		},
		ChainID:          big.NewInt(chainID),
		LogLevel:         v.GetString(KeyLogLevel),
		DatabaseURL:      v.GetString(KeyDatabaseURL),
		PrivateKey:       v.GetString(KeyPrivateKey),
		KeystorePath:     v.GetString(KeyKeystorePath),
		KeystorePassword: v.GetString(KeyKeystorePassword),
		MetricsAddr:      v.GetString(KeyMetricsAddr),
		DistributeAt:     v.GetString(KeyDistributeAt),
		Services:         svc,
	}, nil
}

func address(v *viper.Viper, key string) (common.Address, error) {
	addr, err := utils.ParseAddress(v.GetString(key))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return addr, nil
}
