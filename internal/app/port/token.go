package port

import (
	"context"

	"wallet_tracker/internal/domain/entity"
)

// TokenProvider defines the interface for fetching token registries.
type TokenProvider interface {
	// GetTokens returns the validated registry for a network.
	GetTokens(network entity.NetworkDefinition) []entity.TokenInfo
}

// PriceService resolves USD prices. Unknown prices are zero.
type PriceService interface {
	GetPriceUSD(ctx context.Context, network entity.NetworkDefinition, tokenAddress string) float64
	GetNativePriceUSD(ctx context.Context, network entity.NetworkDefinition) float64
}
