package entity

// DEXTokenPairs is the wrapped form of a DEX Screener token pairs response.
// The tokens endpoint also answers with a bare array of pairs.
type DEXTokenPairs struct {
	SchemaVersion string     `json:"schemaVersion"`
	Pairs         []PairData `json:"pairs"`
}

// PairData is a trading pair as reported by DEX Screener.
type PairData struct {
	ChainID     string        `json:"chainId"`
	DexID       string        `json:"dexId"`
	PairAddress string        `json:"pairAddress"`
	BaseToken   DEXToken      `json:"baseToken"`
	QuoteToken  DEXToken      `json:"quoteToken"`
	PriceUsd    string        `json:"priceUsd"`
	Liquidity   *DEXLiquidity `json:"liquidity"`
}

// DEXToken represents a token in a trading pair.
type DEXToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// DEXLiquidity represents the liquidity of a pair.
type DEXLiquidity struct {
	Usd float64 `json:"usd"`
}

// LiquidityUSD returns the pair liquidity or zero when unknown.
func (p PairData) LiquidityUSD() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.Usd
}
