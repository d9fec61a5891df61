package provider

import (
	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"
	networkdefinition "wallet_tracker/internal/infrastructure/network/definition"
	"wallet_tracker/internal/infrastructure/tokenloader"
)

type tokenProviderImpl struct {
	overrides map[string][]entity.TokenInfo
	logger    port.Logger
}

// NewTokenProvider loads per-network overrides from tokenDir once. Networks without an
// override file use the built-in registry.
func NewTokenProvider(tokenDir string, defs []entity.NetworkDefinition, logger port.Logger) (port.TokenProvider, error) {
	overrides, err := tokenloader.LoadTokens(tokenDir, defs, logger)
	if err != nil {
		return nil, err
	}
	return &tokenProviderImpl{overrides: overrides, logger: logger}, nil
}

// GetTokens returns a copy of the registry for network.
func (p *tokenProviderImpl) GetTokens(network entity.NetworkDefinition) []entity.TokenInfo {
	if tokens, ok := p.overrides[network.Identifier]; ok {
		out := make([]entity.TokenInfo, len(tokens))
		copy(out, tokens)
		return out
	}
	return networkdefinition.TokenRegistry(network.Identifier)
}
