package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"sort"
	"strings"
	"time"

	"wallet_tracker/internal/app/network"
	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"
	"wallet_tracker/internal/pkg/metrics"
	"wallet_tracker/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCacheTTL = 5 * time.Minute
	// maxSuperset is the largest page an Etherscan-compatible explorer serves.
	maxSuperset = 10000

	typeFilterFactor = 2
	dateFilterFactor = 3
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// TransactionServiceConfig tunes a TransactionService.
type TransactionServiceConfig struct {
	TTL time.Duration
	// MockFallback answers unexpected explorer failures with a small built-in dataset.
	MockFallback bool
	Now          func() time.Time
}

// TransactionServiceImpl implements port.TransactionService for one network.
type TransactionServiceImpl struct {
	def       entity.NetworkDefinition
	dialect   network.Dialect
	explorers port.ExplorerProvider
	networks  port.NetworkDefinitionProvider
	cache     port.Cache
	logger    port.Logger
	ttl       time.Duration
	mock      bool
	now       func() time.Time
	inflight  singleflight.Group
}

// NewTransactionService creates the transaction service of def. The cache is owned by the caller:
// pass a fresh memory store for an instance-scoped cache or a redis store to share it.
func NewTransactionService(
	def entity.NetworkDefinition,
	explorers port.ExplorerProvider,
	networks port.NetworkDefinitionProvider,
	cache port.Cache,
	cfg TransactionServiceConfig,
	logger port.Logger,
) *TransactionServiceImpl {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TransactionServiceImpl{
		def:       def,
		dialect:   network.DialectFor(def),
		explorers: explorers,
		networks:  networks,
		cache:     cache,
		logger:    logger,
		ttl:       cfg.TTL,
		mock:      cfg.MockFallback,
		now:       cfg.Now,
	}
}

var _ port.TransactionService = (*TransactionServiceImpl)(nil)

// Network returns the network this service serves.
func (s *TransactionServiceImpl) Network() entity.NetworkDefinition {
	return s.def
}

// CacheKey builds the cache key of a history page.
func CacheKey(address string, limit, page int) string {
	return fmt.Sprintf("transactions_%s_%d_%d", address, limit, page)
}

// GetTransactionHistory returns one page of history, served from the cache while it is fresh.
func (s *TransactionServiceImpl) GetTransactionHistory(ctx context.Context, address string, limit, page int) (*entity.TransactionPage, error) {
	if !entity.IsAddress(address) {
		return nil, entity.InvalidInput("transaction history", "invalid address %q", address)
	}
	if limit <= 0 || page <= 0 {
		return nil, entity.InvalidInput("transaction history", "limit and page must be positive, got limit=%d page=%d", limit, page)
	}

	key := CacheKey(address, limit, page)
	if cached, ok := s.lookup(ctx, key); ok {
		return clonePage(&cached), nil
	}

	// The shared fetch outlives any single caller; the explorer timeout bounds it.
	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		fetchCtx := context.WithoutCancel(ctx)
		// another caller may have filled the key while we waited
		if cached, ok := s.lookup(fetchCtx, key); ok {
			return &cached, nil
		}
		result, cacheable, err := s.fetch(fetchCtx, address, limit, page)
		if err != nil {
			return nil, err
		}
		if cacheable {
			entry := entity.CacheEntry{Data: *clonePage(result), InsertedAt: s.now(), TTL: s.ttl}
			if err := s.cache.Set(fetchCtx, key, entry); err != nil {
				s.logger.Warn("Failed to store transaction page", "network", s.def.Identifier, "key", key, "error", err)
			}
		}
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, entity.NewError(entity.KindUpstreamUnavailable, "transaction history", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clonePage(res.Val.(*entity.TransactionPage)), nil
	}
}

func (s *TransactionServiceImpl) lookup(ctx context.Context, key string) (entity.TransactionPage, bool) {
	entry, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Transaction cache read failed, treating as miss", "network", s.def.Identifier, "key", key, "error", err)
		ok = false
	}
	switch {
	case !ok:
		metrics.CacheLookups.WithLabelValues(s.def.Identifier, "miss").Inc()
		return entity.TransactionPage{}, false
	case entry.Expired(s.now()):
		metrics.CacheLookups.WithLabelValues(s.def.Identifier, "expired").Inc()
		return entity.TransactionPage{}, false
	}
	metrics.CacheLookups.WithLabelValues(s.def.Identifier, "hit").Inc()
	return entry.Data, true
}

// fetch runs the explorer pipeline. Mock pages are never cached.
func (s *TransactionServiceImpl) fetch(ctx context.Context, address string, limit, page int) (*entity.TransactionPage, bool, error) {
	explorer, ok := s.explorers.Explorer(s.def.Identifier)
	if !ok {
		return s.fallback(address, limit, page, entity.InvalidInput("transaction history", "no explorer for %s", s.def.Identifier))
	}

	rows, err := explorer.TxList(ctx, entity.ExplorerQuery{Address: address, Page: page, Offset: limit, Sort: "desc"})
	if err != nil {
		return s.fallback(address, limit, page, err)
	}

	txs := make([]entity.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := SanitizeTransactionData(row, s.def, address)
		if err != nil {
			return s.fallback(address, limit, page, err)
		}
		txs = append(txs, tx)
	}

	return &entity.TransactionPage{
		Transactions: txs,
		Pagination: entity.Pagination{
			Page:    page,
			Limit:   limit,
			Total:   (page-1)*limit + len(txs),
			HasMore: len(txs) == limit,
		},
	}, true, nil
}

// fallback propagates recognized upstream failures and masks the rest with mock data when enabled.
func (s *TransactionServiceImpl) fallback(address string, limit, page int, cause error) (*entity.TransactionPage, bool, error) {
	var explorerErr *entity.ExplorerError
	recognized := errors.As(cause, &explorerErr) && explorerErr.Recognized()
	if recognized || !s.mock {
		return nil, false, fmt.Errorf("failed to fetch transactions on %s: %w", s.def.Identifier, cause)
	}

	metrics.MockFallbacks.WithLabelValues(s.def.Identifier).Inc()
	s.logger.Warn("Serving mock transactions after unexpected explorer failure",
		"network", s.def.Identifier, "address", address, "error", cause)

	all := mockTransactions(s.def, address, s.now())
	return &entity.TransactionPage{
		Transactions: utils.Paginate(all, limit, page),
		Pagination: entity.Pagination{
			Page:    page,
			Limit:   limit,
			Total:   len(all),
			HasMore: page*limit < len(all),
		},
	}, false, nil
}

// GetTransactionsByType filters a 2×limit×page superset by direction and re-paginates it.
func (s *TransactionServiceImpl) GetTransactionsByType(ctx context.Context, address string, txType entity.TxType, limit, page int) (*entity.TransactionPage, error) {
	if _, ok := entity.ParseTxType(string(txType)); !ok {
		return nil, entity.InvalidInput("transactions by type", "unknown transaction type %q", txType)
	}
	return s.filtered(ctx, address, limit, page, typeFilterFactor, func(tx entity.Transaction) bool {
		return tx.Type == txType
	})
}

// GetTransactionsByDateRange filters a 3×limit×page superset to start ≤ timestamp ≤ end.
func (s *TransactionServiceImpl) GetTransactionsByDateRange(ctx context.Context, address string, start, end time.Time, limit, page int) (*entity.TransactionPage, error) {
	if !start.Before(end) {
		return nil, entity.InvalidInput("transactions by date range", "start %s must be before end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	from, to := start.UnixMilli(), end.UnixMilli()
	return s.filtered(ctx, address, limit, page, dateFilterFactor, func(tx entity.Transaction) bool {
		return tx.Timestamp >= from && tx.Timestamp <= to
	})
}

func (s *TransactionServiceImpl) filtered(
	ctx context.Context,
	address string,
	limit, page, factor int,
	keep func(entity.Transaction) bool,
) (*entity.TransactionPage, error) {
	if limit <= 0 || page <= 0 {
		return nil, entity.InvalidInput("transactions", "limit and page must be positive, got limit=%d page=%d", limit, page)
	}
	superset := factor * limit * page
	if superset > maxSuperset {
		superset = maxSuperset
	}

	all, err := s.GetTransactionHistory(ctx, address, superset, 1)
	if err != nil {
		return nil, err
	}

	matched := make([]entity.Transaction, 0, len(all.Transactions))
	for _, tx := range all.Transactions {
		if keep(tx) {
			matched = append(matched, tx)
		}
	}

	return &entity.TransactionPage{
		Transactions: utils.Paginate(matched, limit, page),
		Pagination: entity.Pagination{
			Page:    page,
			Limit:   limit,
			Total:   len(matched),
			HasMore: page*limit < len(matched),
		},
	}, nil
}

// GetTransactionDetails looks a transaction up through the explorer proxy of the given network.
func (s *TransactionServiceImpl) GetTransactionDetails(ctx context.Context, hash, networkID string) (*entity.Transaction, error) {
	if !txHashPattern.MatchString(hash) {
		return nil, entity.InvalidInput("transaction details", "invalid transaction hash %q", hash)
	}
	if networkID == "" {
		networkID = s.def.Identifier
	}
	def, ok := s.networks.GetNetworkDefinitionByName(networkID)
	if !ok {
		return nil, entity.InvalidInput("transaction details", "unsupported network %q", networkID)
	}
	explorer, ok := s.explorers.Explorer(def.Identifier)
	if !ok {
		return nil, entity.InvalidInput("transaction details", "no explorer for %s", def.Identifier)
	}

	raw, err := explorer.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction details: %w", err)
	}
	if raw == nil {
		return nil, entity.NotFound("transaction details", "transaction %s not found on %s", hash, def.Identifier)
	}

	tx := entity.Transaction{
		Hash:        raw.Hash,
		From:        raw.From,
		Status:      entity.TxStatusPending,
		Network:     def.Identifier,
		TokenSymbol: network.DialectFor(def).NativeSymbol,
	}
	if raw.To != nil {
		tx.To = *raw.To
	}
	wei, err := hexutil.DecodeBig(raw.Value)
	if err != nil {
		wei = new(big.Int)
	}
	tx.Value = utils.FormatBigInt(wei, def.NativeDecimals())
	tx.Type = heuristicDirection(tx.Value)
	if gp, err := hexutil.DecodeBig(raw.GasPrice); err == nil {
		tx.GasPrice = gp.String()
	}

	if raw.BlockNumber == nil {
		return &tx, nil
	}
	blockNumber, err := hexutil.DecodeUint64(*raw.BlockNumber)
	if err != nil {
		return &tx, nil
	}
	tx.BlockNumber = blockNumber

	receipt, err := explorer.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction details: %w", err)
	}
	if receipt != nil {
		if receipt.Status == "0x1" {
			tx.Status = entity.TxStatusConfirmed
		} else {
			tx.Status = entity.TxStatusFailed
		}
		if gas, err := hexutil.DecodeUint64(receipt.GasUsed); err == nil {
			tx.GasUsed = fmt.Sprintf("%d", gas)
		}
	}

	head, err := explorer.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction details: %w", err)
	}
	if head >= blockNumber {
		tx.Confirmations = head - blockNumber + 1
	}

	ts, err := explorer.BlockTimestamp(ctx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction details: %w", err)
	}
	tx.Timestamp = int64(ts) * 1000
	return &tx, nil
}

// ClearExpiredCache removes every expired entry and returns how many were removed.
func (s *TransactionServiceImpl) ClearExpiredCache(ctx context.Context) (int, error) {
	entries, err := s.cache.Entries(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache entries: %w", err)
	}
	now := s.now()
	var expired []string
	for key, entry := range entries {
		if entry.Expired(now) {
			expired = append(expired, key)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	sort.Strings(expired)
	if err := s.cache.Delete(ctx, expired...); err != nil {
		return 0, fmt.Errorf("failed to delete expired entries: %w", err)
	}
	s.logger.Debug("Swept expired transaction pages", "network", s.def.Identifier, "count", len(expired))
	return len(expired), nil
}

// ClearCache drops every cached page.
func (s *TransactionServiceImpl) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// GetCacheStats counts fresh and expired entries. HitRate is the fresh share of entries.
func (s *TransactionServiceImpl) GetCacheStats(ctx context.Context) (entity.CacheStats, error) {
	entries, err := s.cache.Entries(ctx)
	if err != nil {
		return entity.CacheStats{}, fmt.Errorf("failed to list cache entries: %w", err)
	}
	now := s.now()
	stats := entity.CacheStats{Total: len(entries)}
	for _, entry := range entries {
		if entry.Expired(now) {
			stats.Expired++
		}
	}
	stats.Valid = stats.Total - stats.Expired
	if stats.Total > 0 {
		stats.HitRate = float64(stats.Valid) / float64(stats.Total)
	}
	return stats, nil
}

// SanitizeTransactionData maps an explorer row onto a Transaction. Without a wallet address the
// direction is guessed from the amount: more than one native unit is taken as a receive.
func SanitizeTransactionData(raw entity.ExplorerTx, def entity.NetworkDefinition, wallet string) (entity.Transaction, error) {
	tx, err := network.DialectFor(def).MapRow(raw, def, wallet)
	if err != nil {
		return entity.Transaction{}, err
	}
	if wallet == "" {
		tx.Type = heuristicDirection(tx.Value)
	}
	return tx, nil
}

func heuristicDirection(value string) entity.TxType {
	if utils.DecimalGreaterThan(value, 1) {
		return entity.TxTypeReceive
	}
	return entity.TxTypeSend
}

func clonePage(p *entity.TransactionPage) *entity.TransactionPage {
	out := &entity.TransactionPage{Pagination: p.Pagination}
	out.Transactions = make([]entity.Transaction, len(p.Transactions))
	copy(out.Transactions, p.Transactions)
	return out
}

func mockTransactions(def entity.NetworkDefinition, wallet string, now time.Time) []entity.Transaction {
	counterparty := "0x000000000000000000000000000000000000dEaD"
	symbol := network.DialectFor(def).NativeSymbol
	base := now.Add(-time.Hour).UnixMilli()
	mk := func(i int, from, to, value string, status entity.TxStatus) entity.Transaction {
		return entity.Transaction{
			Hash:        "0x" + strings.Repeat(fmt.Sprintf("%x", i+1), 64),
			From:        from,
			To:          to,
			Value:       value,
			TokenSymbol: symbol,
			Type:        entity.ClassifyDirection(from, to, wallet),
			Timestamp:   base - int64(i)*int64(time.Hour/time.Millisecond),
			Status:      status,
			Network:     def.Identifier,
			GasUsed:     "21000",
			GasPrice:    "20000000000",
		}
	}
	return []entity.Transaction{
		mk(0, counterparty, wallet, "0.5", entity.TxStatusConfirmed),
		mk(1, wallet, counterparty, "0.1", entity.TxStatusConfirmed),
		mk(2, counterparty, wallet, "1.25", entity.TxStatusConfirmed),
		mk(3, wallet, counterparty, "0.05", entity.TxStatusFailed),
	}
}
