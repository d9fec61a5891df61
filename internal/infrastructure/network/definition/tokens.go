package networkdefinition

import (
	"fmt"
	"strings"

	"wallet_tracker/internal/domain/entity"
)

var ethereumTokens = []entity.TokenInfo{
	{ChainID: 1, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Name: "USD Coin", Symbol: "USDC", Decimals: 6},
	{ChainID: 1, Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Name: "Tether USD", Symbol: "USDT", Decimals: 6},
	{ChainID: 1, Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Name: "Dai Stablecoin", Symbol: "DAI", Decimals: 18},
	{ChainID: 1, Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Name: "Wrapped Ether", Symbol: "WETH", Decimals: 18},
	{ChainID: 1, Address: "0x514910771AF9Ca656af840dff83E8264EcF986CA", Name: "ChainLink Token", Symbol: "LINK", Decimals: 18},
	{ChainID: 1, Address: "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984", Name: "Uniswap", Symbol: "UNI", Decimals: 18},
}

var polygonTokens = []entity.TokenInfo{
	{ChainID: 137, Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Name: "USD Coin", Symbol: "USDC", Decimals: 6},
	{ChainID: 137, Address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", Name: "USD Coin (PoS)", Symbol: "USDC.e", Decimals: 6},
	{ChainID: 137, Address: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", Name: "Tether USD (PoS)", Symbol: "USDT", Decimals: 6},
	{ChainID: 137, Address: "0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063", Name: "Dai Stablecoin (PoS)", Symbol: "DAI", Decimals: 18},
	{ChainID: 137, Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", Name: "Wrapped Ether", Symbol: "WETH", Decimals: 18},
	{ChainID: 137, Address: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", Name: "Wrapped POL", Symbol: "WPOL", Decimals: 18},
}

var arbitrumTokens = []entity.TokenInfo{
	{ChainID: 42161, Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Name: "USD Coin", Symbol: "USDC", Decimals: 6},
	{ChainID: 42161, Address: "0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8", Name: "Bridged USDC", Symbol: "USDC.e", Decimals: 6},
	{ChainID: 42161, Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", Name: "Tether USD", Symbol: "USDT", Decimals: 6},
	{ChainID: 42161, Address: "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1", Name: "Dai Stablecoin", Symbol: "DAI", Decimals: 18},
	{ChainID: 42161, Address: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", Name: "Wrapped Ether", Symbol: "WETH", Decimals: 18},
	{ChainID: 42161, Address: "0x912CE59144191C1204E64559FE8253a0e49E6548", Name: "Arbitrum", Symbol: "ARB", Decimals: 18},
}

var registries = map[string][]entity.TokenInfo{
	Ethereum.Identifier: ethereumTokens,
	Polygon.Identifier:  polygonTokens,
	Arbitrum.Identifier: arbitrumTokens,
}

func init() {
	for id, tokens := range registries {
		def := allKnownDefinitions[id]
		if err := ValidateRegistry(def, tokens); err != nil {
			panic(fmt.Sprintf("invalid built-in token registry for %s: %v", id, err))
		}
	}
}

// TokenRegistry returns a copy of the built-in registry for a network identifier.
func TokenRegistry(identifier string) []entity.TokenInfo {
	tokens := registries[identifier]
	out := make([]entity.TokenInfo, len(tokens))
	copy(out, tokens)
	return out
}

// ValidateRegistry checks every entry against the network and rejects duplicate contracts.
func ValidateRegistry(def entity.NetworkDefinition, tokens []entity.TokenInfo) error {
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if err := t.Validate(def.ChainID); err != nil {
			return err
		}
		key := strings.ToLower(t.Address)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("token %s listed twice", t.Address)
		}
		seen[key] = struct{}{}
	}
	return nil
}
