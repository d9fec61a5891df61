// Package bootstrap wires the wallet tracker from its configuration.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wallet_tracker/internal/app/network"
	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/app/provider"
	"wallet_tracker/internal/app/service"
	"wallet_tracker/internal/domain/entity"
	"wallet_tracker/internal/infrastructure/cache"
	"wallet_tracker/internal/infrastructure/configloader"
	"wallet_tracker/internal/infrastructure/explorer"
	"wallet_tracker/internal/infrastructure/httpclient"
	"wallet_tracker/internal/infrastructure/network/client"
	networkdefinition "wallet_tracker/internal/infrastructure/network/definition"
	"wallet_tracker/internal/infrastructure/restapi"
	"wallet_tracker/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// priceWarmer is implemented by price services that can preload the token registry.
type priceWarmer interface {
	LoadAndCacheTokenPrices(ctx context.Context, networks []entity.NetworkDefinition, tokens port.TokenProvider, concurrency int) error
}

// App holds the wired components of one process.
type App struct {
	Config       *configloader.Config
	Zap          *zap.Logger
	Networks     *networkdefinition.NetworkDefinitionProvider
	Tokens       port.TokenProvider
	Prices       port.PriceService
	Readers      port.ChainReaderProvider
	Explorers    *explorer.Registry
	Sources      *network.Registry
	Transactions map[string]port.TransactionService
	Portfolio    *service.PortfolioServiceImpl

	redis  *redis.Client
	logger port.Logger
}

// Build wires every component. Nothing is contacted except redis, which is pinged when selected.
func Build(ctx context.Context, cfg *configloader.Config, z *zap.Logger) (*App, error) {
	app := &App{
		Config:       cfg,
		Zap:          z,
		Transactions: make(map[string]port.TransactionService, len(cfg.Networks)),
		logger:       logger.New(z, "bootstrap"),
	}

	overrides := make([]networkdefinition.Override, 0, len(cfg.Networks))
	for _, n := range cfg.Networks {
		overrides = append(overrides, networkdefinition.Override{
			Identifier:      n.Identifier,
			RPCURL:          n.RPCURL,
			FallbackRPCURLs: n.FallbackRPCURLs,
			ExplorerAPIURL:  n.ExplorerAPIURL,
		})
	}
	defs, err := networkdefinition.NewNetworkDefinitionProvider(logger.New(z, "networks"), overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load network definitions: %w", err)
	}
	app.Networks = defs

	app.Tokens, err = provider.NewTokenProvider(cfg.Files.TokensDir, defs.GetAllNetworkDefinitions(), logger.New(z, "tokens"))
	if err != nil {
		return nil, err
	}
	app.Prices = buildPrices(cfg, z)

	app.Readers = client.NewEVMClientProvider(app.Prices, logger.New(z, "rpc"), time.Duration(cfg.Performance.RPCCallTimeoutSeconds)*time.Second)

	if cfg.Cache.Backend == "redis" {
		app.redis, err = cache.NewRedisClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
	}
	// One memory store per service keeps networks apart; the janitor runs on each.
	newStore := func(id string) port.Cache {
		if app.redis != nil {
			return cache.NewRedisStore(app.redis, id)
		}
		return cache.NewMemoryStore(time.Duration(cfg.Cache.CleanupIntervalMinutes) * time.Minute)
	}

	var explorers []*explorer.Client
	var sources []port.ChainDataSource
	for _, def := range defs.GetAllNetworkDefinitions() {
		nodeCfg, _ := cfg.Network(def.Identifier)

		ex := explorer.NewClient(explorer.Config{
			Network:   def.Identifier,
			BaseURL:   def.ExplorerAPIURL,
			APIKey:    nodeCfg.ExplorerAPIKey,
			Timeout:   time.Duration(cfg.Explorer.TimeoutMs) * time.Millisecond,
			RateLimit: cfg.Explorer.RateLimit,
			Burst:     cfg.Explorer.Burst,
		}, logger.New(z, "explorer"))
		explorers = append(explorers, ex)
		if !ex.Configured() {
			app.logger.Warn("No explorer API key, history uses the RPC block scan", "network", def.Identifier)
		}

		reader, err := app.Readers.GetClient(def)
		if err != nil {
			return nil, err
		}
		src, err := network.NewAdapter(network.Deps{
			Reader:   reader,
			Explorer: ex,
			Tokens:   app.Tokens.GetTokens(def),
			Prices:   app.Prices,
			Logger:   logger.New(z, def.Identifier),
			Options: network.Options{
				ScanBlocks:      nodeCfg.ScanBlocks,
				ScanConcurrency: cfg.Performance.ScanConcurrency,
				HistoryLimit:    cfg.Transactions.HistoryLimit,
			},
		})
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	app.Explorers = explorer.NewRegistry(explorers...)
	app.Sources = network.NewRegistry(sources...)

	for _, def := range defs.GetAllNetworkDefinitions() {
		app.Transactions[def.Identifier] = service.NewTransactionService(
			def, app.Explorers, defs, newStore(def.Identifier),
			service.TransactionServiceConfig{
				TTL:          time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
				MockFallback: cfg.MockFallbackEnabled(),
			},
			logger.New(z, "transactions"),
		)
	}

	wallets := provider.NewWalletProvider(cfg.Files.WalletsFile, logger.New(z, "wallets"))
	app.Portfolio = service.NewPortfolioService(wallets, app.Sources, logger.New(z, "portfolio"), cfg.Performance.MaxConcurrentRoutines)

	app.logger.Info("Application wired", "networks", strings.Join(app.Sources.Identifiers(), ","), "cache", cfg.Cache.Backend, "prices", cfg.Prices.Provider)
	return app, nil
}

func buildPrices(cfg *configloader.Config, z *zap.Logger) port.PriceService {
	if cfg.Prices.Provider != "dexscreener" {
		return service.ZeroPriceService{}
	}
	ds := cfg.Prices.DEXScreener
	dsc := httpclient.NewDEXScreenerClient(ds.BaseURL, time.Duration(ds.RequestTimeoutMillis)*time.Millisecond, z, ds.MaxTokensPerBatchRequest)
	return service.NewTokenPriceService(dsc, logger.New(z, "prices"), time.Duration(ds.CacheTTLMinutes)*time.Minute, ds.MaxTokensPerBatchRequest)
}

// WarmPrices preloads registry token prices when the price provider supports it.
func (a *App) WarmPrices(ctx context.Context) error {
	w, ok := a.Prices.(priceWarmer)
	if !ok {
		return nil
	}
	return w.LoadAndCacheTokenPrices(ctx, a.Networks.GetAllNetworkDefinitions(), a.Tokens, a.Config.Performance.MaxConcurrentRoutines)
}

// Router builds the REST API over the wired services.
func (a *App) Router() *gin.Engine {
	return restapi.SetupRouter(
		restapi.NewNetworkHandler(a.Sources, a.Transactions),
		restapi.NewPortfolioHandler(a.Portfolio, nil),
		a.Zap,
	)
}

// Close releases shared connections.
func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
