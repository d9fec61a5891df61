package networkdefinition

import (
	"fmt"
	"sort"
	"strings"

	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"
)

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDefinition{
		ChainID:    1,
		Name:       "Ethereum Mainnet",
		Identifier: "ethereum",
		NativeCurrency: entity.NativeCurrency{
			Name: "Ether", Symbol: "ETH", Decimals: 18,
		},
		PrimaryRPCURL:             "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:           []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL:          "https://etherscan.io",
		ExplorerAPIURL:            "https://api.etherscan.io/api",
		DEXScreenerChainID:        "ethereum",
		WrappedNativeTokenAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH
	}
	Polygon = entity.NetworkDefinition{
		ChainID:    137,
		Name:       "Polygon PoS",
		Identifier: "polygon",
		NativeCurrency: entity.NativeCurrency{
			Name: "POL", Symbol: "POL", Decimals: 18,
		},
		PrimaryRPCURL:             "https://polygon-rpc.com/",
		FallbackRPCURLs:           []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		BlockExplorerURL:          "https://polygonscan.com",
		ExplorerAPIURL:            "https://api.polygonscan.com/api",
		DEXScreenerChainID:        "polygon",
		WrappedNativeTokenAddress: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", // WPOL
	}
	Arbitrum = entity.NetworkDefinition{
		ChainID:    42161,
		Name:       "Arbitrum One",
		Identifier: "arbitrum",
		NativeCurrency: entity.NativeCurrency{
			Name: "Ether", Symbol: "ETH", Decimals: 18,
		},
		PrimaryRPCURL:             "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:           []string{"https://arbitrum.llamarpc.com", "https://arbitrum.publicnode.com"},
		BlockExplorerURL:          "https://arbiscan.io",
		ExplorerAPIURL:            "https://api.arbiscan.io/api",
		DEXScreenerChainID:        "arbitrum",
		WrappedNativeTokenAddress: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", // WETH on Arbitrum
	}
)

var allKnownDefinitions = map[string]entity.NetworkDefinition{
	Ethereum.Identifier: Ethereum,
	Polygon.Identifier:  Polygon,
	Arbitrum.Identifier: Arbitrum,
}

// Override replaces endpoint settings of a known network. Empty fields keep the default.
type Override struct {
	Identifier      string
	RPCURL          string
	FallbackRPCURLs []string
	ExplorerAPIURL  string
}

// NetworkDefinitionProvider provides the active network definitions.
type NetworkDefinitionProvider struct {
	logger            port.Logger
	activeNetworkDefs []entity.NetworkDefinition
}

// NewNetworkDefinitionProvider activates the networks named in overrides, or every known
// network when overrides is empty. Unknown identifiers and invalid definitions are errors.
func NewNetworkDefinitionProvider(log port.Logger, overrides []Override) (*NetworkDefinitionProvider, error) {
	p := &NetworkDefinitionProvider{logger: log}

	if len(overrides) == 0 {
		for _, id := range KnownIdentifiers() {
			overrides = append(overrides, Override{Identifier: id})
		}
	}

	seen := make(map[string]struct{}, len(overrides))
	for _, o := range overrides {
		id := strings.ToLower(strings.TrimSpace(o.Identifier))
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("network %q configured twice", id)
		}
		seen[id] = struct{}{}

		def, ok := allKnownDefinitions[id]
		if !ok {
			return nil, fmt.Errorf("unknown network %q", o.Identifier)
		}
		def.FallbackRPCURLs = append([]string(nil), def.FallbackRPCURLs...)
		if o.RPCURL != "" {
			def.PrimaryRPCURL = o.RPCURL
		}
		if len(o.FallbackRPCURLs) > 0 {
			def.FallbackRPCURLs = append([]string(nil), o.FallbackRPCURLs...)
		}
		if o.ExplorerAPIURL != "" {
			def.ExplorerAPIURL = o.ExplorerAPIURL
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		p.activeNetworkDefs = append(p.activeNetworkDefs, def)
		log.Debug("Network activated", "network", def.Identifier, "chain_id", def.ChainID, "rpc_primary", def.PrimaryRPCURL)
	}

	log.Info("NetworkDefinitionProvider initialized", "active_networks", len(p.activeNetworkDefs))
	return p, nil
}

// KnownIdentifiers lists every network this build knows about, sorted.
func KnownIdentifiers() []string {
	ids := make([]string, 0, len(allKnownDefinitions))
	for id := range allKnownDefinitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetAllNetworkDefinitions returns the list of active network definitions.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defsCopy := make([]entity.NetworkDefinition, len(p.activeNetworkDefs))
	copy(defsCopy, p.activeNetworkDefs)
	return defsCopy
}

// GetNetworkDefinitionByName returns an active network definition by its identifier.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if strings.EqualFold(def.Identifier, identifier) {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// GetNetworkDefinitionByChainID returns an active network definition by its chain ID.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByChainID(chainID uint64) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if def.ChainID == chainID {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}
