package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"

	"golang.org/x/sync/errgroup"
)

// PortfolioServiceImpl implements port.PortfolioService.
type PortfolioServiceImpl struct {
	walletProvider        port.WalletProvider
	sources               port.ChainDataSourceProvider
	logger                port.Logger
	maxConcurrentRoutines int
	// failedWallets is the outcome of the latest FetchAllWalletsPortfolio run.
	failedWallets []string
	mu            sync.Mutex
}

// NewPortfolioService creates a new instance of PortfolioServiceImpl.
func NewPortfolioService(
	wp port.WalletProvider,
	sources port.ChainDataSourceProvider,
	l port.Logger,
	maxRoutines int,
) *PortfolioServiceImpl {
	if maxRoutines <= 0 {
		maxRoutines = 1
	}
	return &PortfolioServiceImpl{
		walletProvider:        wp,
		sources:               sources,
		logger:                l,
		maxConcurrentRoutines: maxRoutines,
	}
}

// resolveSources returns the adapters for the requested networks, or all of them.
func (s *PortfolioServiceImpl) resolveSources(networks []string) ([]port.ChainDataSource, error) {
	if len(networks) == 0 {
		return s.sources.All(), nil
	}
	seen := make(map[string]struct{}, len(networks))
	out := make([]port.ChainDataSource, 0, len(networks))
	for _, name := range networks {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		src, err := s.sources.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// GetPortfolio fetches one wallet across networks. A failing network is reported in
// Portfolio.Errors and does not fail the others.
func (s *PortfolioServiceImpl) GetPortfolio(ctx context.Context, address string, networks []string) (*entity.Portfolio, error) {
	if !entity.IsAddress(address) {
		return nil, entity.InvalidInput("portfolio", "invalid address %q", address)
	}
	sources, err := s.resolveSources(networks)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, entity.InvalidInput("portfolio", "no networks selected")
	}

	s.logger.Debug("Fetching portfolio for wallet", "address", address, "networks", len(sources))

	portfolio := &entity.Portfolio{
		WalletAddress: address,
		Networks:      make(map[string]entity.WalletData, len(sources)),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrentRoutines)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			id := src.Definition().Identifier
			data, err := src.GetWalletBalance(gctx, address)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("Failed to fetch wallet on network", "wallet", address, "network", id, "error", err)
				portfolio.Errors = append(portfolio.Errors, entity.PortfolioError{
					WalletAddress: address,
					Network:       id,
					Kind:          string(entity.KindOf(err)),
					Message:       err.Error(),
				})
				return nil
			}
			portfolio.Networks[id] = *data
			portfolio.TotalValueUSD += data.TotalValueUSD
			return nil
		})
	}
	_ = g.Wait()

	return portfolio, nil
}

// FetchAllWalletsPortfolio fetches portfolios for all wallets defined by the WalletProvider.
// Portfolios are returned in wallet file order. The run replaces the failed wallet list.
func (s *PortfolioServiceImpl) FetchAllWalletsPortfolio(ctx context.Context, networks []string) ([]entity.Portfolio, []entity.PortfolioError) {
	wallets, err := s.walletProvider.GetWallets()
	if err != nil {
		s.logger.Error("Failed to get wallets", "error", err)
		return nil, []entity.PortfolioError{{Kind: string(entity.KindOf(err)), Message: fmt.Sprintf("failed to load wallets: %v", err)}}
	}
	if len(wallets) == 0 {
		s.logger.Warn("No wallets to process")
		return []entity.Portfolio{}, nil
	}

	results := make([]*entity.Portfolio, len(wallets))
	walletErrs := make([]error, len(wallets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrentRoutines)
	for i, w := range wallets {
		i, w := i, w
		g.Go(func() error {
			results[i], walletErrs[i] = s.GetPortfolio(gctx, w.Address, networks)
			return nil
		})
	}
	_ = g.Wait()

	portfolios := make([]entity.Portfolio, 0, len(wallets))
	var allErrors []entity.PortfolioError
	var failed []string
	for i, p := range results {
		if walletErrs[i] != nil || len(p.Errors) > 0 {
			failed = append(failed, strings.ToLower(wallets[i].Address))
		}
		if walletErrs[i] != nil {
			allErrors = append(allErrors, entity.PortfolioError{
				WalletAddress: wallets[i].Address,
				Kind:          string(entity.KindOf(walletErrs[i])),
				Message:       walletErrs[i].Error(),
			})
			continue
		}
		portfolios = append(portfolios, *p)
		allErrors = append(allErrors, p.Errors...)
	}

	s.mu.Lock()
	s.failedWallets = failed
	s.mu.Unlock()

	s.logger.Info("Fetched portfolios for all wallets", "count", len(portfolios), "errors", len(allErrors), "failedWallets", len(failed))
	return portfolios, allErrors
}

// GetFailedWallets returns the wallets, in wallet file order, whose last
// FetchAllWalletsPortfolio run reported an error.
func (s *PortfolioServiceImpl) GetFailedWallets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.failedWallets...)
}
