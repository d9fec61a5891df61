package entity

import (
	"fmt"
	"math/big"
	"regexp"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// TokenInfo holds the details of a specific token from the static registry.
type TokenInfo struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Validate checks a registry entry before it is admitted.
func (t TokenInfo) Validate(chainID uint64) error {
	if t.ChainID != chainID {
		return fmt.Errorf("token %s has chain id %d, expected %d", t.Symbol, t.ChainID, chainID)
	}
	if !IsAddress(t.Address) {
		return fmt.Errorf("token %s has invalid contract address %q", t.Symbol, t.Address)
	}
	if t.Symbol == "" {
		return fmt.Errorf("token at %s has empty symbol", t.Address)
	}
	if t.Decimals > 36 {
		return fmt.Errorf("token %s has unsupported decimals %d", t.Symbol, t.Decimals)
	}
	return nil
}

// TokenBalance is the balance of a single ERC-20 token held by a wallet.
type TokenBalance struct {
	ContractAddress string   `json:"contractAddress"`
	Symbol          string   `json:"symbol"`
	Name            string   `json:"name"`
	Decimals        uint8    `json:"decimals"`
	Balance         string   `json:"balance"`
	BalanceRaw      *big.Int `json:"-"`
	Price           float64  `json:"price"`
	ValueUSD        float64  `json:"valueUSD"`
	Network         string   `json:"network"`
}

// TokenMetadata is what an ERC-20 contract reports about itself.
type TokenMetadata struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}
