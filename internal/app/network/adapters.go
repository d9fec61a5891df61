package network

import (
	"fmt"
	"strings"

	"wallet_tracker/internal/app/port"
)

// EthereumAdapter serves Ethereum mainnet.
type EthereumAdapter struct {
	*evmAdapter
}

// NewEthereumAdapter builds the Ethereum adapter.
func NewEthereumAdapter(d Deps) *EthereumAdapter {
	return &EthereumAdapter{evmAdapter: newEVMAdapter(d)}
}

// PolygonAdapter serves Polygon PoS. Native transfers are labelled POL.
type PolygonAdapter struct {
	*evmAdapter
}

// NewPolygonAdapter builds the Polygon adapter.
func NewPolygonAdapter(d Deps) *PolygonAdapter {
	return &PolygonAdapter{evmAdapter: newEVMAdapter(d)}
}

// ArbitrumAdapter serves Arbitrum One.
type ArbitrumAdapter struct {
	*evmAdapter
}

// NewArbitrumAdapter builds the Arbitrum adapter.
func NewArbitrumAdapter(d Deps) *ArbitrumAdapter {
	return &ArbitrumAdapter{evmAdapter: newEVMAdapter(d)}
}

var (
	_ port.ChainDataSource = (*EthereumAdapter)(nil)
	_ port.ChainDataSource = (*PolygonAdapter)(nil)
	_ port.ChainDataSource = (*ArbitrumAdapter)(nil)
)

// NewAdapter picks the adapter matching the reader's network.
func NewAdapter(d Deps) (port.ChainDataSource, error) {
	if d.Reader == nil {
		return nil, fmt.Errorf("chain reader is required")
	}
	switch id := strings.ToLower(d.Reader.Definition().Identifier); id {
	case "ethereum":
		return NewEthereumAdapter(d), nil
	case "polygon":
		return NewPolygonAdapter(d), nil
	case "arbitrum":
		return NewArbitrumAdapter(d), nil
	default:
		return nil, fmt.Errorf("no adapter for network %q", id)
	}
}
