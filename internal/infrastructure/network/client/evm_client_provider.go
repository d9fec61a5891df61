package client

import (
	"fmt"
	"sync"
	"time"

	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"
)

const defaultProviderConnectionTimeout = 10 * time.Second

// evmClientProvider implements port.ChainReaderProvider and caches one client per network.
type evmClientProvider struct {
	clients           map[string]port.ChainReader
	mu                sync.Mutex
	prices            port.PriceService
	logger            port.Logger
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
}

// NewEVMClientProvider creates a new EVM client provider.
func NewEVMClientProvider(prices port.PriceService, logger port.Logger, rpcCallTimeout time.Duration) port.ChainReaderProvider {
	return &evmClientProvider{
		clients:           make(map[string]port.ChainReader),
		prices:            prices,
		logger:            logger,
		connectionTimeout: defaultProviderConnectionTimeout,
		rpcCallTimeout:    rpcCallTimeout,
	}
}

// GetClient retrieves the client for a network, dialing it on first use.
func (p *evmClientProvider) GetClient(netDef entity.NetworkDefinition) (port.ChainReader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, exists := p.clients[netDef.Identifier]; exists {
		return client, nil
	}

	p.logger.Info("Creating new EVM client", "network", netDef.Identifier, "rpc_primary", netDef.PrimaryRPCURL)
	newClient, err := NewEVMClient(netDef, p.prices, p.logger, p.connectionTimeout, p.rpcCallTimeout)
	if err != nil {
		p.logger.Error("Failed to create EVM client", "network", netDef.Identifier, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", netDef.Name, err)
	}

	p.clients[netDef.Identifier] = newClient
	return newClient, nil
}
