package wallet

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quesster/client-sdk-go/client"
)

type fakeEth struct {
	client.EthClient

	estimated int
	raw       []byte
	sent      *client.TxArgs
}

func (f *fakeEth) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 3, nil
}

func (f *fakeEth) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(5_000_000_000), nil
}

func (f *fakeEth) EstimateGas(ctx context.Context, msg *client.CallMsg) (uint64, error) {
	f.estimated++
	return 46_000, nil
}

func (f *fakeEth) SendRawTransaction(ctx context.Context, signedTx []byte) (common.Hash, error) {
	f.raw = signedTx
	return common.HexToHash("0xabc"), nil
}

func (f *fakeEth) SendTransaction(ctx context.Context, args *client.TxArgs) (common.Hash, error) {
	f.sent = args
	return common.HexToHash("0xdef"), nil
}

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestKeyWallet_SendTransaction(t *testing.T) {
	eth := &fakeEth{}
	chainID := big.NewInt(42220)
	w, err := NewKeyWalletFromHex("0x"+testKey, eth, chainID)
	require.NoError(t, err)

	to := common.HexToAddress("0xb1aAe9a1480c685375fcBC5072Ccc9f3EFd5c51C")
	hash, err := w.Context().Send(context.Background(), &TxRequest{To: to, Data: []byte{0x3c, 0xcf, 0xd6, 0x0b}, Gas: 500_000})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xabc"), hash)
	assert.Zero(t, eth.estimated, "explicit gas must not be estimated")

	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(eth.raw))
	assert.Equal(t, uint64(3), tx.Nonce())
	assert.Equal(t, uint64(500_000), tx.Gas())
	assert.Equal(t, to, *tx.To())

	from, err := types.Sender(types.LatestSignerForChainID(chainID), &tx)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), from)
}

func TestKeyWallet_EstimatesWhenGasUnset(t *testing.T) {
	eth := &fakeEth{}
	w, err := NewKeyWallet(eth, big.NewInt(42220))
	require.NoError(t, err)

	_, err = w.SendTransaction(context.Background(), w.Address(), &TxRequest{To: common.HexToAddress("0x01")})
	require.NoError(t, err)
	assert.Equal(t, 1, eth.estimated)

	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(eth.raw))
	assert.Equal(t, uint64(46_000), tx.Gas())
}

func TestKeyWallet_RejectsForeignSender(t *testing.T) {
	w, err := NewKeyWallet(&fakeEth{}, big.NewInt(42220))
	require.NoError(t, err)

	_, err = w.SendTransaction(context.Background(), common.HexToAddress("0x02"), &TxRequest{})
	assert.Error(t, err)
}

func TestProviderSender_ForwardsFeeCurrency(t *testing.T) {
	eth := &fakeEth{}
	cusd := common.HexToAddress("0x765DE816845861e75A25fCA122bb6898B8B1282a")
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	wctx := &Context{Address: from, ChainID: big.NewInt(42220), Sender: NewProviderSender(eth)}

	hash, err := wctx.Send(context.Background(), &TxRequest{To: cusd, FeeCurrency: &cusd})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xdef"), hash)
	require.NotNil(t, eth.sent)
	assert.Equal(t, from, eth.sent.From)
	assert.Equal(t, &cusd, eth.sent.FeeCurrency)
	assert.Zero(t, eth.sent.Gas)
}

func TestContext_NotConnected(t *testing.T) {
	var nilCtx *Context
	assert.False(t, nilCtx.Connected())

	_, err := (&Context{}).Send(context.Background(), &TxRequest{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestKeystore_RoundTrip(t *testing.T) {
	eth := &fakeEth{}
	w, err := NewKeyWallet(eth, big.NewInt(44787))
	require.NoError(t, err)

	path, err := SaveKeystore(w, t.TempDir(), "secret")
	require.NoError(t, err)

	loaded, err := LoadKeystore(path, "secret", eth, big.NewInt(44787))
	require.NoError(t, err)
	assert.Equal(t, w.Address(), loaded.Address())

	_, err = LoadKeystore(path, "wrong", eth, big.NewInt(44787))
	assert.Error(t, err)
}
