package restapi

import (
	"strconv"
	"strings"
	"time"

	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// NetworkHandler serves wallet and transaction endpoints scoped to one network.
type NetworkHandler struct {
	sources      port.ChainDataSourceProvider
	transactions map[string]port.TransactionService
}

// NewNetworkHandler creates a NetworkHandler. transactions is keyed by network identifier.
func NewNetworkHandler(sources port.ChainDataSourceProvider, transactions map[string]port.TransactionService) *NetworkHandler {
	idx := make(map[string]port.TransactionService, len(transactions))
	for id, svc := range transactions {
		idx[strings.ToLower(id)] = svc
	}
	return &NetworkHandler{sources: sources, transactions: idx}
}

func (h *NetworkHandler) transactionService(c *gin.Context) (port.TransactionService, bool) {
	id := strings.ToLower(c.Param("network"))
	svc, ok := h.transactions[id]
	if !ok {
		respondError(c, entity.NotFound("network", "unsupported network %q", c.Param("network")))
		return nil, false
	}
	return svc, true
}

// ListNetworks answers GET /networks.
func (h *NetworkHandler) ListNetworks(c *gin.Context) {
	defs := make([]entity.NetworkDefinition, 0)
	for _, src := range h.sources.All() {
		defs = append(defs, src.Definition())
	}
	respondOK(c, defs)
}

// GetWallet answers GET /networks/:network/wallets/:address.
func (h *NetworkHandler) GetWallet(c *gin.Context) {
	src, err := h.sources.Get(c.Param("network"))
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := src.GetWalletBalance(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, data)
}

// GetTokens answers GET /networks/:network/wallets/:address/tokens.
func (h *NetworkHandler) GetTokens(c *gin.Context) {
	src, err := h.sources.Get(c.Param("network"))
	if err != nil {
		respondError(c, err)
		return
	}
	tokens, err := src.GetTokenBalances(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tokens)
}

// GetTokenTransfers answers GET /networks/:network/wallets/:address/token-transfers.
func (h *NetworkHandler) GetTokenTransfers(c *gin.Context) {
	src, err := h.sources.Get(c.Param("network"))
	if err != nil {
		respondError(c, err)
		return
	}
	limit, ok := intQuery(c, "limit", defaultPageLimit)
	if !ok {
		return
	}
	txs, err := src.GetTokenTransfers(c.Request.Context(), c.Param("address"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, txs)
}

// GetTransactions answers GET /networks/:network/wallets/:address/transactions.
// The type filter takes precedence over start/end.
func (h *NetworkHandler) GetTransactions(c *gin.Context) {
	svc, ok := h.transactionService(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", defaultPageLimit)
	if !ok {
		return
	}
	page, ok := intQuery(c, "page", 1)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	address := c.Param("address")

	var (
		result *entity.TransactionPage
		err    error
	)
	switch {
	case c.Query("type") != "":
		txType, valid := entity.ParseTxType(c.Query("type"))
		if !valid {
			respondBadRequest(c, "unknown transaction type %q", c.Query("type"))
			return
		}
		result, err = svc.GetTransactionsByType(ctx, address, txType, limit, page)
	case c.Query("start") != "" || c.Query("end") != "":
		start, okStart := timeQuery(c, "start")
		if !okStart {
			return
		}
		end, okEnd := timeQuery(c, "end")
		if !okEnd {
			return
		}
		result, err = svc.GetTransactionsByDateRange(ctx, address, start, end, limit, page)
	default:
		result, err = svc.GetTransactionHistory(ctx, address, limit, page)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// GetTransaction answers GET /networks/:network/transactions/:hash.
func (h *NetworkHandler) GetTransaction(c *gin.Context) {
	svc, ok := h.transactionService(c)
	if !ok {
		return
	}
	tx, err := svc.GetTransactionDetails(c.Request.Context(), c.Param("hash"), c.Param("network"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tx)
}

// CacheStats answers GET /networks/:network/cache/stats.
func (h *NetworkHandler) CacheStats(c *gin.Context) {
	svc, ok := h.transactionService(c)
	if !ok {
		return
	}
	stats, err := svc.GetCacheStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}

// SweepCache answers POST /networks/:network/cache/sweep.
func (h *NetworkHandler) SweepCache(c *gin.Context) {
	svc, ok := h.transactionService(c)
	if !ok {
		return
	}
	removed, err := svc.ClearExpiredCache(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"removed": removed})
}

// ClearCache answers DELETE /networks/:network/cache.
func (h *NetworkHandler) ClearCache(c *gin.Context) {
	svc, ok := h.transactionService(c)
	if !ok {
		return
	}
	if err := svc.ClearCache(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"cleared": true})
}

func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		respondBadRequest(c, "%s must be a positive integer, got %q", name, raw)
		return 0, false
	}
	if name == "limit" && v > maxPageLimit {
		respondBadRequest(c, "limit must not exceed %d", maxPageLimit)
		return 0, false
	}
	return v, true
}

// timeQuery accepts RFC 3339 or unix milliseconds.
func timeQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		respondBadRequest(c, "%s is required with a date range", name)
		return time.Time{}, false
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondBadRequest(c, "%s must be RFC 3339 or unix milliseconds, got %q", name, raw)
		return time.Time{}, false
	}
	return t, true
}
