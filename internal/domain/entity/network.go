package entity

import (
	"fmt"
	"strings"
)

// NativeCurrency describes the gas token of a network.
type NativeCurrency struct {
	Name     string `json:"name" yaml:"name"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals int32  `json:"decimals" yaml:"decimals"`
}

// NetworkDefinition holds the static configuration for a specific blockchain network.
// Definitions are built once at startup and never mutated afterwards.
type NetworkDefinition struct {
	ChainID          uint64         `json:"chainId" yaml:"chainId"`
	Name             string         `json:"name" yaml:"name"`
	Identifier       string         `json:"identifier" yaml:"identifier"`
	NativeCurrency   NativeCurrency `json:"nativeCurrency" yaml:"nativeCurrency"`
	PrimaryRPCURL    string         `json:"-" yaml:"primaryRpcUrl"`
	FallbackRPCURLs  []string       `json:"-" yaml:"fallbackRpcUrls"`
	BlockExplorerURL string         `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
	// ExplorerAPIURL is the Etherscan-compatible REST endpoint of the network's explorer.
	ExplorerAPIURL            string `json:"-" yaml:"explorerApiUrl"`
	DEXScreenerChainID        string `json:"-" yaml:"dexScreenerChainId"`
	WrappedNativeTokenAddress string `json:"-" yaml:"wrappedNativeTokenAddress"`
}

// NativeDecimals returns the native currency decimals, defaulting to 18.
func (n NetworkDefinition) NativeDecimals() int32 {
	if n.NativeCurrency.Decimals <= 0 {
		return 18
	}
	return n.NativeCurrency.Decimals
}

// Validate checks that the definition is usable by the adapters.
func (n NetworkDefinition) Validate() error {
	switch {
	case strings.TrimSpace(n.Identifier) == "":
		return fmt.Errorf("network definition has empty identifier")
	case n.ChainID == 0:
		return fmt.Errorf("network %s has zero chain id", n.Identifier)
	case n.PrimaryRPCURL == "":
		return fmt.Errorf("network %s has no primary rpc url", n.Identifier)
	case n.NativeCurrency.Symbol == "":
		return fmt.Errorf("network %s has no native currency symbol", n.Identifier)
	}
	return nil
}
