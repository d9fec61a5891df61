package entity

import "time"

// Wallet is a tracked wallet address.
type Wallet struct {
	Address string `json:"address"`
}

// NativeBalance is a wallet's native currency holding.
type NativeBalance struct {
	Native string  `json:"native"`
	USD    float64 `json:"usd"`
}

// WalletData is the per-network snapshot of a wallet.
type WalletData struct {
	Address       string         `json:"address"`
	Network       string         `json:"network"`
	Balance       NativeBalance  `json:"balance"`
	Tokens        []TokenBalance `json:"tokens"`
	Transactions  []Transaction  `json:"transactions"`
	LastUpdated   time.Time      `json:"lastUpdated"`
	TotalValueUSD float64        `json:"totalValueUSD"`
}
