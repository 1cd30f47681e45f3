package integration

import (
	"context"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quesster/client-sdk-go/client"
	"github.com/quesster/client-sdk-go/wallet"
)

const (
	// EnvNodeEndpoint 节点端点环境变量；未设置时跳过集成测试
	EnvNodeEndpoint = "QUESSTER_TEST_RPC"
	// EnvPrivateKey 有 cUSD 余额的测试账户私钥（写操作测试需要）
	EnvPrivateKey = "QUESSTER_TEST_PRIVATE_KEY"

	// DefaultTimeout 默认超时时间
	DefaultTimeout = 30 * time.Second
	// TransactionConfirmTimeout 交易确认超时时间
	TransactionConfirmTimeout = 3 * time.Minute
)

// SetupEthClient 连接测试节点并返回链 ID
//
// **功能**：
// - 读取 QUESSTER_TEST_RPC，未设置时跳过测试
// - 调用 eth_chainId 验证节点可用
func SetupEthClient(t *testing.T) (client.EthClient, *big.Int) {
	t.Helper()
	endpoint := os.Getenv(EnvNodeEndpoint)
	if endpoint == "" {
		t.Skipf("%s not set, skipping integration test", EnvNodeEndpoint)
	}

	cfg := client.DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.Timeout = int(DefaultTimeout.Seconds())
	if len(endpoint) > 2 && endpoint[:2] == "ws" {
		cfg.Protocol = client.ProtocolWebSocket
	}

	eth, err := client.NewEthClient(cfg)
	require.NoError(t, err, "创建客户端失败")
	t.Cleanup(func() {
		if err := eth.Close(); err != nil {
			t.Logf("关闭客户端时出现警告: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	chainID, err := eth.ChainID(ctx)
	require.NoError(t, err, "节点未响应: %s", endpoint)
	return eth, chainID
}

// FundedWallet 从 QUESSTER_TEST_PRIVATE_KEY 加载钱包，未设置时跳过测试
func FundedWallet(t *testing.T, eth client.EthClient, chainID *big.Int) *wallet.KeyWallet {
	t.Helper()
	key := os.Getenv(EnvPrivateKey)
	if key == "" {
		t.Skipf("%s not set, skipping write test", EnvPrivateKey)
	}
	w, err := wallet.NewKeyWalletFromHex(key, eth, chainID)
	require.NoError(t, err, "从私钥创建测试钱包失败")
	return w
}

// FreshWallet 新生成的空账户
func FreshWallet(t *testing.T, eth client.EthClient, chainID *big.Int) *wallet.KeyWallet {
	t.Helper()
	w, err := wallet.NewKeyWallet(eth, chainID)
	require.NoError(t, err, "创建测试钱包失败")
	return w
}
