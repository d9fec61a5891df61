package network

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"
	"wallet_tracker/internal/pkg/metrics"
	"wallet_tracker/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultHistoryLimit    = 50
	DefaultScanBlocks      = 100
	DefaultScanConcurrency = 8
	tokenConcurrency       = 4
)

// Options tunes an adapter.
type Options struct {
	// ScanBlocks is how many recent blocks the RPC fallback inspects.
	ScanBlocks int
	// ScanConcurrency bounds parallel block fetches during the scan.
	ScanConcurrency int
	// HistoryLimit is the number of transactions GetWalletBalance includes.
	HistoryLimit int
}

func (o Options) withDefaults() Options {
	if o.ScanBlocks <= 0 {
		o.ScanBlocks = DefaultScanBlocks
	}
	if o.ScanConcurrency <= 0 {
		o.ScanConcurrency = DefaultScanConcurrency
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	return o
}

// Deps are the collaborators of an adapter. Explorer may be nil.
type Deps struct {
	Reader   port.ChainReader
	Explorer port.ExplorerClient
	Tokens   []entity.TokenInfo
	Prices   port.PriceService
	Logger   port.Logger
	Options  Options
	Now      func() time.Time
}

// evmAdapter is the explorer-first, RPC-fallback logic the network adapters share.
type evmAdapter struct {
	reader   port.ChainReader
	explorer port.ExplorerClient
	tokens   []entity.TokenInfo
	prices   port.PriceService
	logger   port.Logger
	opts     Options
	dialect  Dialect
	def      entity.NetworkDefinition
	now      func() time.Time
}

func newEVMAdapter(d Deps) *evmAdapter {
	def := d.Reader.Definition()
	now := d.Now
	if now == nil {
		now = time.Now
	}
	tokens := make([]entity.TokenInfo, len(d.Tokens))
	copy(tokens, d.Tokens)
	return &evmAdapter{
		reader:   d.Reader,
		explorer: d.Explorer,
		tokens:   tokens,
		prices:   d.Prices,
		logger:   d.Logger,
		opts:     d.Options.withDefaults(),
		dialect:  DialectFor(def),
		def:      def,
		now:      now,
	}
}

// Definition returns the network this adapter serves.
func (a *evmAdapter) Definition() entity.NetworkDefinition {
	return a.def
}

// GetWalletBalance assembles native balance, token balances and recent history.
// Native and history failures are returned; token failures only shrink the token list.
func (a *evmAdapter) GetWalletBalance(ctx context.Context, address string) (*entity.WalletData, error) {
	if !a.reader.ValidateAddress(address) {
		return nil, entity.InvalidInput("wallet balance", "invalid address %q", address)
	}

	native, err := a.reader.GetNativeBalance(ctx, address)
	if err != nil {
		return nil, err
	}

	tokens, err := a.GetTokenBalances(ctx, address)
	if err != nil {
		return nil, err
	}

	txs, err := a.GetTransactionHistory(ctx, address, a.opts.HistoryLimit)
	if err != nil {
		return nil, err
	}

	var nativePrice float64
	if a.prices != nil {
		nativePrice = a.prices.GetNativePriceUSD(ctx, a.def)
	}
	nativeUSD := 0.0
	if nativePrice > 0 {
		if d, err := decimal.NewFromString(native); err == nil {
			nativeUSD = d.Mul(decimal.NewFromFloat(nativePrice)).InexactFloat64()
		}
	}

	total := nativeUSD
	for _, t := range tokens {
		total += t.ValueUSD
	}

	return &entity.WalletData{
		Address:       address,
		Network:       a.def.Identifier,
		Balance:       entity.NativeBalance{Native: native, USD: nativeUSD},
		Tokens:        tokens,
		Transactions:  txs,
		LastUpdated:   a.now(),
		TotalValueUSD: total,
	}, nil
}

// GetTokenBalances reads every registry token and keeps the non-zero ones, in registry order.
func (a *evmAdapter) GetTokenBalances(ctx context.Context, address string) ([]entity.TokenBalance, error) {
	if !a.reader.ValidateAddress(address) {
		return nil, entity.InvalidInput("token balances", "invalid address %q", address)
	}

	results := make([]*entity.TokenBalance, len(a.tokens))
	var g errgroup.Group
	g.SetLimit(tokenConcurrency)
	for i, token := range a.tokens {
		i, token := i, token
		g.Go(func() error {
			bal, err := a.reader.GetTokenBalance(ctx, address, token)
			if err != nil {
				metrics.TokenBalanceErrors.WithLabelValues(a.def.Identifier).Inc()
				a.logger.Warn("Token balance lookup failed, omitting token",
					"network", a.def.Identifier, "token", token.Symbol, "contract", token.Address, "error", err)
				return nil
			}
			results[i] = bal
			return nil
		})
	}
	_ = g.Wait()

	balances := make([]entity.TokenBalance, 0, len(results))
	for _, bal := range results {
		if bal == nil || bal.BalanceRaw == nil || bal.BalanceRaw.Sign() <= 0 {
			continue
		}
		balances = append(balances, *bal)
	}
	return balances, nil
}

// GetTransactionHistory asks the explorer first and scans recent blocks when it cannot answer.
func (a *evmAdapter) GetTransactionHistory(ctx context.Context, address string, limit int) ([]entity.Transaction, error) {
	if !a.reader.ValidateAddress(address) {
		return nil, entity.InvalidInput("transaction history", "invalid address %q", address)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	if a.explorer != nil && a.explorer.Configured() {
		txs, err := a.explorerHistory(ctx, address, limit)
		if err == nil {
			return txs, nil
		}
		a.logger.Warn("Explorer history failed, scanning recent blocks",
			"network", a.def.Identifier, "address", address, "error", err)
	}

	return a.scanRecentBlocks(ctx, address, limit)
}

func (a *evmAdapter) explorerHistory(ctx context.Context, address string, limit int) ([]entity.Transaction, error) {
	rows, err := a.explorer.TxList(ctx, entity.ExplorerQuery{Address: address, Page: 1, Offset: limit, Sort: "desc"})
	if err != nil {
		return nil, err
	}
	txs := make([]entity.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := a.dialect.MapRow(row, a.def, address)
		if err != nil {
			a.logger.Debug("Skipping malformed explorer row", "network", a.def.Identifier, "error", err)
			continue
		}
		txs = append(txs, tx)
		if len(txs) == limit {
			break
		}
	}
	return txs, nil
}

// GetTokenTransfers returns ERC-20 transfers involving address. It requires an explorer.
func (a *evmAdapter) GetTokenTransfers(ctx context.Context, address string, limit int) ([]entity.Transaction, error) {
	if !a.reader.ValidateAddress(address) {
		return nil, entity.InvalidInput("token transfers", "invalid address %q", address)
	}
	if a.explorer == nil {
		return nil, entity.InvalidInput("token transfers", "no explorer configured for %s", a.def.Identifier)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := a.explorer.TokenTxList(ctx, entity.ExplorerQuery{Address: address, Page: 1, Offset: limit, Sort: "desc"})
	if err != nil {
		return nil, fmt.Errorf("failed to get token transfers on %s: %w", a.def.Identifier, err)
	}
	txs := make([]entity.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := a.dialect.MapTokenRow(row, a.def, address)
		if err != nil {
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// EstimateGas delegates to the chain reader.
func (a *evmAdapter) EstimateGas(ctx context.Context, req entity.GasEstimateRequest) (uint64, error) {
	return a.reader.EstimateGas(ctx, req)
}

// scanRecentBlocks walks the newest ScanBlocks blocks from head downwards. Blocks are loaded
// in parallel windows but matched strictly newest first, so the result equals a sequential scan.
func (a *evmAdapter) scanRecentBlocks(ctx context.Context, address string, limit int) ([]entity.Transaction, error) {
	metrics.RPCScanFallbacks.WithLabelValues(a.def.Identifier).Inc()

	head, err := a.reader.GetBlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	var lowest uint64
	depth := uint64(a.opts.ScanBlocks)
	if head+1 > depth {
		lowest = head + 1 - depth
	}

	txs := make([]entity.Transaction, 0, limit)
	window := uint64(a.opts.ScanConcurrency)
	top := head
	for {
		n := window
		if top-lowest+1 < n {
			n = top - lowest + 1
		}

		blocks := make([]*entity.RawBlock, n)
		var g errgroup.Group
		for i := uint64(0); i < n; i++ {
			i := i
			number := top - i
			g.Go(func() error {
				blk, err := a.reader.GetBlockWithTransactions(ctx, number)
				if err != nil {
					a.logger.Debug("Skipping block during scan", "network", a.def.Identifier, "block", number, "error", err)
					return nil
				}
				blocks[i] = blk
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, entity.NewError(entity.KindUpstreamUnavailable, "transaction history", err)
		}

		for _, blk := range blocks {
			if blk == nil {
				continue
			}
			for _, raw := range blk.Transactions {
				if !matches(raw, address) {
					continue
				}
				txs = append(txs, a.scannedTransaction(ctx, raw, blk, head, address))
				if len(txs) >= limit {
					return txs, nil
				}
			}
		}

		if top < lowest+n {
			break
		}
		top -= n
	}
	return txs, nil
}

func matches(raw entity.RawTransaction, address string) bool {
	return strings.EqualFold(raw.From, address) || (raw.To != "" && strings.EqualFold(raw.To, address))
}

func (a *evmAdapter) scannedTransaction(ctx context.Context, raw entity.RawTransaction, blk *entity.RawBlock, head uint64, wallet string) entity.Transaction {
	tx := entity.Transaction{
		Hash:          raw.Hash,
		From:          raw.From,
		To:            raw.To,
		Value:         utils.FormatBigInt(raw.Value, a.def.NativeDecimals()),
		TokenSymbol:   a.dialect.NativeSymbol,
		Type:          entity.ClassifyDirection(raw.From, raw.To, wallet),
		Timestamp:     int64(blk.Timestamp) * 1000,
		Status:        entity.TxStatusPending,
		Network:       a.def.Identifier,
		BlockNumber:   blk.Number,
		Confirmations: confirmations(head, blk.Number),
	}
	if raw.GasPrice != nil {
		tx.GasPrice = raw.GasPrice.String()
	}

	receipt, err := a.reader.GetTransactionReceipt(ctx, raw.Hash)
	if err != nil {
		a.logger.Debug("Receipt lookup failed, reporting pending", "network", a.def.Identifier, "hash", raw.Hash, "error", err)
		return tx
	}
	if receipt != nil {
		tx.GasUsed = fmt.Sprintf("%d", receipt.GasUsed)
		if receipt.Status == types.ReceiptStatusSuccessful {
			tx.Status = entity.TxStatusConfirmed
		} else {
			tx.Status = entity.TxStatusFailed
		}
	}
	return tx
}

func confirmations(head, block uint64) uint64 {
	if block > head {
		return 0
	}
	return head - block + 1
}
