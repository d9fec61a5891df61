package entity

// Portfolio aggregates one wallet across several networks.
type Portfolio struct {
	WalletAddress string                `json:"walletAddress"`
	Networks      map[string]WalletData `json:"networks"`
	TotalValueUSD float64               `json:"totalValueUSD"`
	Errors        []PortfolioError      `json:"errors,omitempty"`
}

// PortfolioError represents a network that could not be fetched for a wallet.
type PortfolioError struct {
	WalletAddress string `json:"walletAddress"`
	Network       string `json:"network"`
	Kind          string `json:"kind,omitempty"`
	Message       string `json:"message"`
}
