package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"
	"wallet_tracker/internal/infrastructure/cache"
	"wallet_tracker/internal/pkg/logger"
	"wallet_tracker/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wallet = "0x742d35cc6634c0532925a3b8d4c9db96c4b4d8b6"
	peer   = "0x1111111111111111111111111111111111111111"
)

var ethDef = entity.NetworkDefinition{
	ChainID: 1, Identifier: "ethereum", Name: "Ethereum",
	NativeCurrency: entity.NativeCurrency{Symbol: "ETH", Decimals: 18}, PrimaryRPCURL: "http://rpc",
}

type stubExplorer struct {
	rows     []entity.ExplorerTx
	err      error
	gate     chan struct{}
	calls    atomic.Int32
	mu       sync.Mutex
	queries  []entity.ExplorerQuery
	proxyTx  *entity.ExplorerProxyTx
	receipt  *entity.ExplorerProxyReceipt
	head     uint64
	blockTS  uint64
	proxyErr error
}

func (e *stubExplorer) TxList(ctx context.Context, q entity.ExplorerQuery) ([]entity.ExplorerTx, error) {
	e.calls.Add(1)
	e.mu.Lock()
	e.queries = append(e.queries, q)
	e.mu.Unlock()
	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return nil, &entity.ExplorerError{Category: entity.ExplorerTimeout, Err: ctx.Err()}
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	if q.Offset < len(e.rows) {
		return e.rows[:q.Offset], nil
	}
	return e.rows, nil
}

func (e *stubExplorer) TokenTxList(context.Context, entity.ExplorerQuery) ([]entity.ExplorerTx, error) {
	return nil, nil
}

func (e *stubExplorer) TransactionByHash(context.Context, string) (*entity.ExplorerProxyTx, error) {
	return e.proxyTx, e.proxyErr
}

func (e *stubExplorer) TransactionReceipt(context.Context, string) (*entity.ExplorerProxyReceipt, error) {
	return e.receipt, nil
}

func (e *stubExplorer) BlockNumber(context.Context) (uint64, error) { return e.head, nil }

func (e *stubExplorer) BlockTimestamp(context.Context, uint64) (uint64, error) { return e.blockTS, nil }

func (e *stubExplorer) Configured() bool { return true }

func (e *stubExplorer) lastQuery() entity.ExplorerQuery {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queries[len(e.queries)-1]
}

type stubExplorers map[string]port.ExplorerClient

func (s stubExplorers) Explorer(id string) (port.ExplorerClient, bool) {
	c, ok := s[id]
	return c, ok
}

type stubNetworks []entity.NetworkDefinition

func (s stubNetworks) GetAllNetworkDefinitions() []entity.NetworkDefinition { return s }

func (s stubNetworks) GetNetworkDefinitionByName(id string) (entity.NetworkDefinition, bool) {
	for _, d := range s {
		if strings.EqualFold(d.Identifier, id) {
			return d, true
		}
	}
	return entity.NetworkDefinition{}, false
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newService(t *testing.T, explorer *stubExplorer, mock bool) (*TransactionServiceImpl, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewTransactionService(
		ethDef,
		stubExplorers{"ethereum": explorer},
		stubNetworks{ethDef},
		cache.NewMemoryStore(0),
		TransactionServiceConfig{MockFallback: mock, Now: clk.Now},
		logger.NewNop(),
	)
	return svc, clk
}

func row(hash, from, to, value string, ts int64, isError string) entity.ExplorerTx {
	return entity.ExplorerTx{
		Hash: hash, From: from, To: to, Value: value, IsError: isError,
		TimeStamp: strconv.FormatInt(ts, 10),
	}
}

func sampleRows() []entity.ExplorerTx {
	return []entity.ExplorerTx{
		row("0x1", peer, wallet, "100000000000000000", 1_709_290_000, "0"),
		row("0x2", wallet, peer, "200000000000000000", 1_709_280_000, "0"),
		row("0x3", peer, wallet, "300000000000000000", 1_709_270_000, "1"),
		row("0x4", wallet, peer, "400000000000000000", 1_709_260_000, "0"),
		row("0x5", peer, wallet, "500000000000000000", 1_709_250_000, "0"),
		row("0x6", peer, wallet, "600000000000000000", 1_709_240_000, "0"),
	}
}

func TestHistoryIsCached(t *testing.T) {
	explorer := &stubExplorer{rows: sampleRows()}
	svc, _ := newService(t, explorer, true)
	ctx := context.Background()

	first, err := svc.GetTransactionHistory(ctx, wallet, 10, 1)
	require.NoError(t, err)
	second, err := svc.GetTransactionHistory(ctx, wallet, 10, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, explorer.calls.Load())
	assert.Len(t, first.Transactions, 6)
	assert.Equal(t, entity.Pagination{Page: 1, Limit: 10, Total: 6, HasMore: false}, first.Pagination)

	_, err = svc.GetTransactionHistory(ctx, wallet, 10, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, explorer.calls.Load(), "different page is a different key")
	assert.Equal(t, 2, explorer.lastQuery().Page)
}

func TestHistoryCacheExpiry(t *testing.T) {
	explorer := &stubExplorer{rows: sampleRows()}
	svc, clk := newService(t, explorer, true)
	ctx := context.Background()

	_, err := svc.GetTransactionHistory(ctx, wallet, 10, 1)
	require.NoError(t, err)

	clk.Advance(DefaultCacheTTL)
	_, err = svc.GetTransactionHistory(ctx, wallet, 10, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, explorer.calls.Load(), "an entry exactly ttl old is still fresh")

	clk.Advance(time.Millisecond)
	_, err = svc.GetTransactionHistory(ctx, wallet, 10, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, explorer.calls.Load())
}

func TestClearExpiredCacheAndStats(t *testing.T) {
	explorer := &stubExplorer{rows: sampleRows()}
	svc, clk := newService(t, explorer, true)
	ctx := context.Background()

	_, err := svc.GetTransactionHistory(ctx, wallet, 10, 1)
	require.NoError(t, err)
	clk.Advance(DefaultCacheTTL + time.Millisecond)
	_, err = svc.GetTransactionHistory(ctx, wallet, 5, 1)
	require.NoError(t, err)

	stats, err := svc.GetCacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.CacheStats{Total: 2, Expired: 1, Valid: 1, HitRate: 0.5}, stats)

	removed, err := svc.ClearExpiredCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	stats, err = svc.GetCacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.CacheStats{Total: 1, Valid: 1, HitRate: 1}, stats)

	require.NoError(t, svc.ClearCache(ctx))
	stats, err = svc.GetCacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.CacheStats{}, stats)
}

func TestHistoryValidatesAddress(t *testing.T) {
	explorer := &stubExplorer{rows: sampleRows()}
	svc, _ := newService(t, explorer, true)

	_, err := svc.GetTransactionHistory(context.Background(), "0xnope", 10, 1)
	assert.True(t, entity.IsKind(err, entity.KindInvalidInput))
	_, err = svc.GetTransactionHistory(context.Background(), wallet, 0, 1)
	assert.True(t, entity.IsKind(err, entity.KindInvalidInput))
	assert.Zero(t, explorer.calls.Load())
}

func TestServerErrorPropagates(t *testing.T) {
	explorer := &stubExplorer{err: &entity.ExplorerError{Category: entity.ExplorerServer, Network: "ethereum", Action: "txlist", StatusCode: 500}}
	svc, _ := newService(t, explorer, true)
	ctx := context.Background()

	page, err := svc.GetTransactionHistory(ctx, wallet, 10, 1)
	require.Error(t, err)
	assert.Nil(t, page)
	assert.Equal(t, entity.KindUpstreamError, entity.KindOf(err))

	stats, err := svc.GetCacheStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestRecognizedErrorsPropagate(t *testing.T) {
	for _, category := range []entity.ExplorerErrorCategory{
		entity.ExplorerServer, entity.ExplorerInvalidKey, entity.ExplorerNetwork, entity.ExplorerDecode, entity.ExplorerTimeout,
	} {
		explorer := &stubExplorer{err: &entity.ExplorerError{Category: category}}
		svc, _ := newService(t, explorer, true)
		_, err := svc.GetTransactionHistory(context.Background(), wallet, 10, 1)
		assert.Error(t, err, category)
	}
}

func TestUnexpectedErrorFallsBackToMock(t *testing.T) {
	explorer := &stubExplorer{err: &entity.ExplorerError{Category: entity.ExplorerRejected, Message: "NOTOK"}}
	svc, _ := newService(t, explorer, true)
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.MockFallbacks.WithLabelValues("ethereum"))
	page, err := svc.GetTransactionHistory(ctx, wallet, 2, 1)
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 2)
	assert.True(t, page.Pagination.HasMore)
	for _, tx := range page.Transactions {
		assert.Equal(t, "ethereum", tx.Network)
	}
	assert.Equal(t, entity.TxTypeReceive, page.Transactions[0].Type)
	assert.Equal(t, entity.TxTypeSend, page.Transactions[1].Type)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.MockFallbacks.WithLabelValues("ethereum")))

	_, err = svc.GetTransactionHistory(ctx, wallet, 2, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, explorer.calls.Load(), "mock pages are not cached")
}

func TestUnexpectedErrorWithoutMock(t *testing.T) {
	explorer := &stubExplorer{err: &entity.ExplorerError{Category: entity.ExplorerRateLimited}}
	svc, _ := newService(t, explorer, false)

	_, err := svc.GetTransactionHistory(context.Background(), wallet, 10, 1)
	require.Error(t, err)
	assert.Equal(t, entity.KindUpstreamUnavailable, entity.KindOf(err))
}

func TestConcurrentMissesShareOneFetch(t *testing.T) {
	explorer := &stubExplorer{rows: sampleRows(), gate: make(chan struct{})}
	svc, _ := newService(t, explorer, true)

	var wg sync.WaitGroup
	results := make([]*entity.TransactionPage, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			page, err := svc.GetTransactionHistory(context.Background(), wallet, 10, 1)
			assert.NoError(t, err)
			results[i] = page
		}()
	}

	require.Eventually(t, func() bool { return explorer.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(explorer.gate)
	wg.Wait()

	assert.EqualValues(t, 1, explorer.calls.Load())
	for _, page := range results {
		require.NotNil(t, page)
		assert.Len(t, page.Transactions, 6)
	}
}

func TestCallerDeadlineDoesNotFailSharedFetch(t *testing.T) {
	explorer := &stubExplorer{rows: sampleRows(), gate: make(chan struct{})}
	svc, _ := newService(t, explorer, false)

	type result struct {
		page *entity.TransactionPage
		err  error
	}
	patient := make(chan result, 1)
	go func() {
		page, err := svc.GetTransactionHistory(context.Background(), wallet, 10, 1)
		patient <- result{page, err}
	}()
	require.Eventually(t, func() bool { return explorer.calls.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := svc.GetTransactionHistory(ctx, wallet, 10, 1)
	require.Error(t, err)
	assert.Equal(t, entity.KindUpstreamUnavailable, entity.KindOf(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	close(explorer.gate)
	got := <-patient
	require.NoError(t, got.err)
	assert.Len(t, got.page.Transactions, 6)
	assert.EqualValues(t, 1, explorer.calls.Load())
}

func TestCachedPageIsIsolatedFromCallers(t *testing.T) {
	explorer := &stubExplorer{rows: sampleRows()}
	svc, _ := newService(t, explorer, false)
	ctx := context.Background()

	_, err := svc.GetTransactionHistory(ctx, wallet, 10, 1)
	require.NoError(t, err)

	hit, err := svc.GetTransactionHistory(ctx, wallet, 10, 1)
	require.NoError(t, err)
	original := hit.Transactions[0].Hash
	hit.Transactions[0].Hash = "0xmutated"
	hit.Transactions = hit.Transactions[:1]

	again, err := svc.GetTransactionHistory(ctx, wallet, 10, 1)
	require.NoError(t, err)
	assert.Len(t, again.Transactions, 6)
	assert.Equal(t, original, again.Transactions[0].Hash)
	assert.EqualValues(t, 1, explorer.calls.Load())
}

func TestSanitizeTransactionData(t *testing.T) {
	tx, err := SanitizeTransactionData(entity.ExplorerTx{
		Hash: "0xa", From: peer, To: wallet, Value: "100000000000000000", IsError: "0", TimeStamp: "1700000000",
	}, ethDef, wallet)
	require.NoError(t, err)
	assert.Equal(t, "0.1", tx.Value)
	assert.Equal(t, entity.TxStatusConfirmed, tx.Status)
	assert.Equal(t, entity.TxTypeReceive, tx.Type)
	assert.Equal(t, int64(1_700_000_000_000), tx.Timestamp)

	tx, err = SanitizeTransactionData(entity.ExplorerTx{Value: "100000000000000000", IsError: "1"}, ethDef, wallet)
	require.NoError(t, err)
	assert.Equal(t, entity.TxStatusFailed, tx.Status)

	small, err := SanitizeTransactionData(entity.ExplorerTx{From: wallet, Value: "100000000000000000", IsError: "0"}, ethDef, "")
	require.NoError(t, err)
	assert.Equal(t, entity.TxTypeSend, small.Type)

	large, err := SanitizeTransactionData(entity.ExplorerTx{From: wallet, Value: "2000000000000000000", IsError: "0"}, ethDef, "")
	require.NoError(t, err)
	assert.Equal(t, entity.TxTypeReceive, large.Type)

	_, err = SanitizeTransactionData(entity.ExplorerTx{Value: "abc"}, ethDef, wallet)
	assert.Error(t, err)
}

func TestGetTransactionsByType(t *testing.T) {
	explorer := &stubExplorer{rows: sampleRows()}
	svc, _ := newService(t, explorer, true)
	ctx := context.Background()

	page, err := svc.GetTransactionsByType(ctx, wallet, entity.TxTypeReceive, 2, 1)
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)
	for _, tx := range page.Transactions {
		assert.Equal(t, entity.TxTypeReceive, tx.Type)
	}
	assert.Equal(t, 4, explorer.lastQuery().Offset)
	assert.Equal(t, 1, explorer.lastQuery().Page)
	assert.Equal(t, []string{"0x1", "0x3"}, []string{page.Transactions[0].Hash, page.Transactions[1].Hash})
	assert.Equal(t, 2, page.Pagination.Total)

	page, err = svc.GetTransactionsByType(ctx, wallet, entity.TxTypeReceive, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 8, explorer.lastQuery().Offset)
	require.Len(t, page.Transactions, 2)
	assert.Equal(t, "0x5", page.Transactions[0].Hash)
	assert.Equal(t, "0x6", page.Transactions[1].Hash)
	assert.False(t, page.Pagination.HasMore)

	_, err = svc.GetTransactionsByType(ctx, wallet, entity.TxType("swap"), 2, 1)
	assert.True(t, entity.IsKind(err, entity.KindInvalidInput))
}

func TestSupersetIsCapped(t *testing.T) {
	explorer := &stubExplorer{rows: sampleRows()}
	svc, _ := newService(t, explorer, true)

	_, err := svc.GetTransactionsByType(context.Background(), wallet, entity.TxTypeSend, 100, 60)
	require.NoError(t, err)
	assert.Equal(t, 10000, explorer.lastQuery().Offset)
}

func TestGetTransactionsByDateRange(t *testing.T) {
	explorer := &stubExplorer{rows: sampleRows()}
	svc, _ := newService(t, explorer, true)
	ctx := context.Background()

	start := time.Unix(1_709_250_000, 0)
	end := time.Unix(1_709_280_000, 0)
	page, err := svc.GetTransactionsByDateRange(ctx, wallet, start, end, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 30, explorer.lastQuery().Offset)

	hashes := make([]string, 0, len(page.Transactions))
	for _, tx := range page.Transactions {
		assert.GreaterOrEqual(t, tx.Timestamp, start.UnixMilli())
		assert.LessOrEqual(t, tx.Timestamp, end.UnixMilli())
		hashes = append(hashes, tx.Hash)
	}
	assert.Equal(t, []string{"0x2", "0x3", "0x4", "0x5"}, hashes)
}

func TestDateRangeFailsFast(t *testing.T) {
	explorer := &stubExplorer{rows: sampleRows()}
	svc, _ := newService(t, explorer, true)
	now := time.Now()

	_, err := svc.GetTransactionsByDateRange(context.Background(), wallet, now, now, 10, 1)
	assert.True(t, entity.IsKind(err, entity.KindInvalidInput))
	_, err = svc.GetTransactionsByDateRange(context.Background(), wallet, now, now.Add(-time.Hour), 10, 1)
	assert.True(t, entity.IsKind(err, entity.KindInvalidInput))
	assert.Zero(t, explorer.calls.Load())
}

func TestGetTransactionDetails(t *testing.T) {
	hash := "0x" + strings.Repeat("ab", 32)
	block := "0x64"
	to := wallet
	explorer := &stubExplorer{
		proxyTx: &entity.ExplorerProxyTx{
			Hash: hash, BlockNumber: &block, From: peer, To: &to,
			Value: "0x1bc16d674ec80000", GasPrice: "0x3b9aca00",
		},
		receipt: &entity.ExplorerProxyReceipt{Status: "0x1", GasUsed: "0x5208", BlockNumber: block},
		head:    109,
		blockTS: 1_700_000_000,
	}
	svc, _ := newService(t, explorer, true)

	tx, err := svc.GetTransactionDetails(context.Background(), hash, "ethereum")
	require.NoError(t, err)
	assert.Equal(t, "2", tx.Value)
	assert.Equal(t, entity.TxTypeReceive, tx.Type)
	assert.Equal(t, entity.TxStatusConfirmed, tx.Status)
	assert.Equal(t, "21000", tx.GasUsed)
	assert.Equal(t, "1000000000", tx.GasPrice)
	assert.Equal(t, uint64(100), tx.BlockNumber)
	assert.Equal(t, uint64(10), tx.Confirmations)
	assert.Equal(t, int64(1_700_000_000_000), tx.Timestamp)
	assert.Equal(t, wallet, tx.To)
}

func TestGetTransactionDetailsErrors(t *testing.T) {
	explorer := &stubExplorer{}
	svc, _ := newService(t, explorer, true)
	ctx := context.Background()
	hash := "0x" + strings.Repeat("cd", 32)

	_, err := svc.GetTransactionDetails(ctx, "0x1234", "ethereum")
	assert.True(t, entity.IsKind(err, entity.KindInvalidInput))

	_, err = svc.GetTransactionDetails(ctx, hash, "solana")
	assert.True(t, entity.IsKind(err, entity.KindInvalidInput))

	_, err = svc.GetTransactionDetails(ctx, hash, "ethereum")
	assert.True(t, entity.IsKind(err, entity.KindNotFound))

	explorer.proxyErr = &entity.ExplorerError{Category: entity.ExplorerTimeout}
	_, err = svc.GetTransactionDetails(ctx, hash, "ethereum")
	assert.True(t, entity.IsKind(err, entity.KindUpstreamUnavailable))
}

func TestGetTransactionDetailsPending(t *testing.T) {
	hash := "0x" + strings.Repeat("ef", 32)
	explorer := &stubExplorer{proxyTx: &entity.ExplorerProxyTx{Hash: hash, From: wallet, Value: "0x0"}}
	svc, _ := newService(t, explorer, true)

	tx, err := svc.GetTransactionDetails(context.Background(), hash, "")
	require.NoError(t, err)
	assert.Equal(t, entity.TxStatusPending, tx.Status)
	assert.Zero(t, tx.Confirmations)
	assert.Empty(t, tx.To)
}
