package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"
	"wallet_tracker/internal/infrastructure/httpclient"
	"wallet_tracker/internal/pkg/utils"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

var stablecoinSymbols = map[string]struct{}{
	"USDC": {},
	"USDT": {},
	"DAI":  {},
}

// ZeroPriceService prices everything at zero.
type ZeroPriceService struct{}

func (ZeroPriceService) GetPriceUSD(context.Context, entity.NetworkDefinition, string) float64 {
	return 0
}

func (ZeroPriceService) GetNativePriceUSD(context.Context, entity.NetworkDefinition) float64 {
	return 0
}

// TokenPriceServiceImpl resolves prices from DEX Screener and caches them, misses included.
type TokenPriceServiceImpl struct {
	dexscreenerClient httpclient.DEXScreenerClient
	logger            port.Logger
	prices            *gocache.Cache
	batchSize         int
}

// NewTokenPriceService creates a DEX Screener backed PriceService whose prices live for cacheTTL.
func NewTokenPriceService(dsc httpclient.DEXScreenerClient, l port.Logger, cacheTTL time.Duration, batchSize int) *TokenPriceServiceImpl {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	if batchSize <= 0 {
		batchSize = 30
	}
	return &TokenPriceServiceImpl{
		dexscreenerClient: dsc,
		logger:            l,
		prices:            gocache.New(cacheTTL, 2*cacheTTL),
		batchSize:         batchSize,
	}
}

func priceKey(dexID, address string) string {
	return dexID + ":" + strings.ToLower(address)
}

// GetPriceUSD returns the cached price of tokenAddress, fetching it on a miss. Unknown prices are zero.
func (s *TokenPriceServiceImpl) GetPriceUSD(ctx context.Context, network entity.NetworkDefinition, tokenAddress string) float64 {
	dexID := network.DEXScreenerChainID
	if dexID == "" || tokenAddress == "" {
		return 0
	}
	key := priceKey(dexID, tokenAddress)
	if v, ok := s.prices.Get(key); ok {
		return v.(float64)
	}

	pairs, err := s.dexscreenerClient.GetTokenPairsByAddresses(ctx, dexID, []string{tokenAddress})
	if err != nil {
		s.logger.Warn("Failed to get token pairs from DEXScreener", "dexScreenerID", dexID, "tokenAddress", tokenAddress, "error", err)
		return 0
	}
	price := s.selectBestPriceFromPairs(pairs, tokenAddress)
	s.prices.SetDefault(key, price)
	return price
}

// GetNativePriceUSD prices the native currency through its wrapped token.
func (s *TokenPriceServiceImpl) GetNativePriceUSD(ctx context.Context, network entity.NetworkDefinition) float64 {
	if network.WrappedNativeTokenAddress == "" {
		return 0
	}
	// ETH is the same asset on every network that uses it
	globalKey := "native:" + strings.ToLower(network.NativeCurrency.Symbol)
	if v, ok := s.prices.Get(globalKey); ok {
		return v.(float64)
	}
	price := s.GetPriceUSD(ctx, network, network.WrappedNativeTokenAddress)
	if price > 0 {
		s.prices.SetDefault(globalKey, price)
	}
	return price
}

// LoadAndCacheTokenPrices warms the cache for every registry token in batches.
func (s *TokenPriceServiceImpl) LoadAndCacheTokenPrices(ctx context.Context, networks []entity.NetworkDefinition, tokens port.TokenProvider, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 5
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, netDef := range networks {
		dexID := netDef.DEXScreenerChainID
		if dexID == "" {
			s.logger.Warn("DEXScreenerChainID not defined for network, skipping price fetch", "network", netDef.Identifier)
			continue
		}
		addresses := make([]string, 0)
		for _, t := range tokens.GetTokens(netDef) {
			addresses = append(addresses, t.Address)
		}
		if netDef.WrappedNativeTokenAddress != "" {
			addresses = append(addresses, netDef.WrappedNativeTokenAddress)
		}

		for _, batch := range utils.BatchStrings(addresses, s.batchSize) {
			batch := batch
			g.Go(func() error {
				pairs, err := s.dexscreenerClient.GetTokenPairsByAddresses(gctx, dexID, batch)
				if err != nil {
					s.logger.Warn("Failed to warm token prices", "dexScreenerID", dexID, "count", len(batch), "error", err)
					return nil
				}
				for _, addr := range batch {
					s.prices.SetDefault(priceKey(dexID, addr), s.selectBestPriceFromPairs(pairs, addr))
				}
				return nil
			})
		}
	}
	return g.Wait()
}

// selectBestPriceFromPairs prefers the deepest stablecoin-quoted pair, then the deepest pair overall.
func (s *TokenPriceServiceImpl) selectBestPriceFromPairs(pairs []entity.PairData, baseTokenAddress string) float64 {
	var bestOverall, bestStable *entity.PairData

	for i := range pairs {
		pair := &pairs[i]
		if !strings.EqualFold(pair.BaseToken.Address, baseTokenAddress) {
			continue
		}
		if pair.PriceUsd == "" || pair.PriceUsd == "0" {
			continue
		}

		if _, isStable := stablecoinSymbols[strings.ToUpper(pair.QuoteToken.Symbol)]; isStable {
			if bestStable == nil || pair.LiquidityUSD() > bestStable.LiquidityUSD() {
				bestStable = pair
			}
		}
		if bestOverall == nil || pair.LiquidityUSD() > bestOverall.LiquidityUSD() {
			bestOverall = pair
		}
	}

	best := bestStable
	if best == nil {
		best = bestOverall
	}
	if best == nil {
		s.logger.Debug("No suitable price found from pairs", "baseTokenAddress", baseTokenAddress, "evaluatedPairCount", len(pairs))
		return 0
	}

	price, err := strconv.ParseFloat(best.PriceUsd, 64)
	if err != nil {
		s.logger.Warn("Failed to parse token price from DEXScreener", "tokenAddress", baseTokenAddress, "price_string", best.PriceUsd, "error", err)
		return 0
	}
	return price
}
