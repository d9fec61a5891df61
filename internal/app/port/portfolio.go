package port

import (
	"context"

	"wallet_tracker/internal/domain/entity"
)

// PortfolioService aggregates wallet data across networks.
type PortfolioService interface {
	// GetPortfolio fetches one wallet on the given networks, or on every network when none are given.
	GetPortfolio(ctx context.Context, address string, networks []string) (*entity.Portfolio, error)

	// FetchAllWalletsPortfolio fetches portfolios for all tracked wallets.
	FetchAllWalletsPortfolio(ctx context.Context, networks []string) ([]entity.Portfolio, []entity.PortfolioError)

	// GetFailedWallets returns wallet addresses for which processing encountered errors.
	GetFailedWallets() []string
}
