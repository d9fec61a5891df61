package client

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"wallet_tracker/internal/domain/entity"
	"wallet_tracker/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	walletAddr = "0x742d35cc6634c0532925a3b8d4c9db96c4b4d8b6"
	usdcAddr   = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
)

var testNetwork = entity.NetworkDefinition{
	ChainID:        1,
	Name:           "Ethereum Mainnet",
	Identifier:     "ethereum",
	NativeCurrency: entity.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
}

type fixedPrices struct{ price float64 }

func (p fixedPrices) GetPriceUSD(context.Context, entity.NetworkDefinition, string) float64 {
	return p.price
}

func (p fixedPrices) GetNativePriceUSD(context.Context, entity.NetworkDefinition) float64 {
	return p.price
}

func newTestClient(t *testing.T, node *fakeNode, prices fixedPrices) *EVMClient {
	t.Helper()
	srv := node.serve(t)
	rpcClient, err := rpc.DialContext(context.Background(), srv.URL)
	require.NoError(t, err)
	t.Cleanup(rpcClient.Close)
	return NewEVMClientFromRPC(rpcClient, testNetwork, prices, logger.NewNop(), 2*time.Second)
}

func TestEVMClient_GetNativeBalance(t *testing.T) {
	node := newFakeNode()
	node.balances[walletAddr] = big.NewInt(1_500_000_000_000_000_000)
	c := newTestClient(t, node, fixedPrices{})

	got, err := c.GetNativeBalance(context.Background(), walletAddr)
	require.NoError(t, err)
	assert.Equal(t, "1.5", got)

	_, err = c.GetNativeBalance(context.Background(), "not-an-address")
	require.Error(t, err)
	assert.True(t, entity.IsKind(err, entity.KindInvalidInput))
	assert.Equal(t, 1, node.calls["eth_getBalance"], "invalid address must not reach the node")
}

func TestEVMClient_GetNativeBalanceUnreachable(t *testing.T) {
	node := newFakeNode()
	srv := node.serve(t)
	rpcClient, err := rpc.DialContext(context.Background(), srv.URL)
	require.NoError(t, err)
	srv.Close()

	c := NewEVMClientFromRPC(rpcClient, testNetwork, nil, logger.NewNop(), time.Second)
	_, err = c.GetNativeBalance(context.Background(), walletAddr)
	require.Error(t, err)
	assert.True(t, entity.IsKind(err, entity.KindUpstreamUnavailable))
	assert.Contains(t, err.Error(), "failed to get native balance")
}

func TestEVMClient_GetTokenBalance(t *testing.T) {
	node := newFakeNode()
	node.tokenBalances[usdcAddr] = map[string]*big.Int{walletAddr: big.NewInt(2_500_000)}
	c := newTestClient(t, node, fixedPrices{price: 2})

	entry := entity.TokenInfo{ChainID: 1, Address: usdcAddr, Symbol: "USDC", Name: "USD Coin", Decimals: 6}
	bal, err := c.GetTokenBalance(context.Background(), walletAddr, entry)
	require.NoError(t, err)
	assert.Equal(t, "2.5", bal.Balance)
	assert.Equal(t, int64(2_500_000), bal.BalanceRaw.Int64())
	assert.Equal(t, 2.0, bal.Price)
	assert.InDelta(t, 5.0, bal.ValueUSD, 1e-9)
	assert.Equal(t, "ethereum", bal.Network)

	missing := entity.TokenInfo{ChainID: 1, Address: "0x" + strings.Repeat("ab", 20), Symbol: "NOPE", Decimals: 18}
	_, err = c.GetTokenBalance(context.Background(), walletAddr, missing)
	assert.Error(t, err)
}

func TestEVMClient_GetTokenMetadata(t *testing.T) {
	node := newFakeNode()
	node.tokenMeta[usdcAddr] = [3]any{"USDC", "USD Coin", uint8(6)}
	c := newTestClient(t, node, fixedPrices{})

	meta, err := c.GetTokenMetadata(context.Background(), usdcAddr)
	require.NoError(t, err)
	assert.Equal(t, "USDC", meta.Symbol)
	assert.Equal(t, "USD Coin", meta.Name)
	assert.Equal(t, uint8(6), meta.Decimals)
	assert.Equal(t, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", meta.Address)
}

func TestEVMClient_ReceiptStatusAndConfirmations(t *testing.T) {
	okHash := "0x" + strings.Repeat("aa", 32)
	failedHash := "0x" + strings.Repeat("bb", 32)
	pendingHash := "0x" + strings.Repeat("cc", 32)

	node := newFakeNode()
	node.head = 120
	node.receipts[okHash] = receiptJSON(okHash, 100, 1)
	node.receipts[failedHash] = receiptJSON(failedHash, 110, 0)
	c := newTestClient(t, node, fixedPrices{})
	ctx := context.Background()

	status, err := c.GetTransactionStatus(ctx, okHash)
	require.NoError(t, err)
	assert.Equal(t, entity.TxStatusConfirmed, status)

	status, err = c.GetTransactionStatus(ctx, failedHash)
	require.NoError(t, err)
	assert.Equal(t, entity.TxStatusFailed, status)

	status, err = c.GetTransactionStatus(ctx, pendingHash)
	require.NoError(t, err)
	assert.Equal(t, entity.TxStatusPending, status)

	confs, err := c.GetTransactionConfirmations(ctx, okHash)
	require.NoError(t, err)
	assert.Equal(t, uint64(21), confs)

	confs, err = c.GetTransactionConfirmations(ctx, pendingHash)
	require.NoError(t, err)
	assert.Zero(t, confs)

	receipt, err := c.GetTransactionReceipt(ctx, pendingHash)
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestEVMClient_GetBlockWithTransactions(t *testing.T) {
	node := newFakeNode()
	node.blocks[7] = map[string]any{
		"number":    "0x7",
		"timestamp": hexutil.EncodeUint64(1_700_000_000),
		"transactions": []any{
			map[string]any{
				"hash":     "0x" + strings.Repeat("01", 32),
				"from":     walletAddr,
				"to":       usdcAddr,
				"value":    "0xde0b6b3a7640000",
				"gasPrice": "0x3b9aca00",
				"type":     "0x6a",
			},
			map[string]any{
				"hash":  "0x" + strings.Repeat("02", 32),
				"from":  usdcAddr,
				"to":    nil,
				"value": "0x0",
			},
		},
	}
	c := newTestClient(t, node, fixedPrices{})

	blk, err := c.GetBlockWithTransactions(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), blk.Number)
	assert.Equal(t, uint64(1_700_000_000), blk.Timestamp)
	require.Len(t, blk.Transactions, 2)
	assert.True(t, strings.EqualFold(walletAddr, blk.Transactions[0].From))
	assert.Equal(t, "1000000000000000000", blk.Transactions[0].Value.String())
	assert.Empty(t, blk.Transactions[1].To)

	_, err = c.GetBlockWithTransactions(context.Background(), 8)
	require.Error(t, err)
	assert.True(t, entity.IsKind(err, entity.KindNotFound))
}

func TestEVMClient_GetGasPrice(t *testing.T) {
	node := newFakeNode()
	c := newTestClient(t, node, fixedPrices{})
	assert.Equal(t, int64(0), c.GetGasPrice(context.Background()).Int64())

	node.mu.Lock()
	node.gasPrice = big.NewInt(30_000_000_000)
	node.mu.Unlock()
	assert.Equal(t, int64(30_000_000_000), c.GetGasPrice(context.Background()).Int64())
}

func TestEVMClient_EstimateGas(t *testing.T) {
	c := newTestClient(t, newFakeNode(), fixedPrices{})

	gas, err := c.EstimateGas(context.Background(), entity.GasEstimateRequest{From: walletAddr, To: usdcAddr, Value: big.NewInt(1)})
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), gas)

	_, err = c.EstimateGas(context.Background(), entity.GasEstimateRequest{From: "bad"})
	assert.True(t, entity.IsKind(err, entity.KindInvalidInput))
}

func TestEVMClient_AddressHelpers(t *testing.T) {
	c := newTestClient(t, newFakeNode(), fixedPrices{})

	assert.True(t, c.ValidateAddress("0x742d35Cc6634C0532925a3b8D4C9db96C4b4d8b6"))
	assert.False(t, c.ValidateAddress("not-an-address"))
	assert.False(t, c.ValidateAddress("742d35Cc6634C0532925a3b8D4C9db96C4b4d8b6"))
	assert.False(t, c.ValidateAddress("0x742d35Cc6634C0532925a3b8D4C9db96C4b4d8"))

	formatted, err := c.FormatAddress(usdcAddr)
	require.NoError(t, err)
	assert.Equal(t, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", formatted)

	_, err = c.FormatAddress("0x123")
	assert.True(t, entity.IsKind(err, entity.KindInvalidInput))
}

func TestConfirmations(t *testing.T) {
	assert.Equal(t, uint64(1), Confirmations(10, 10))
	assert.Equal(t, uint64(0), Confirmations(9, 10))
	assert.Equal(t, uint64(11), Confirmations(20, 10))
}
