package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBigInt converts a raw integer amount into a decimal string with the given decimals.
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatBigInt(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// FormatUnits converts a base-10 integer string such as an explorer wei value.
// An empty string is treated as zero.
func FormatUnits(raw string, decimals int32) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "0", nil
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "", fmt.Errorf("invalid integer amount %q", raw)
	}
	return FormatBigInt(amount, decimals), nil
}

// CalculateValueUSD multiplies a raw amount by a unit price.
func CalculateValueUSD(amount *big.Int, decimals int32, priceUSD float64) float64 {
	if amount == nil || priceUSD <= 0 {
		return 0
	}
	value := decimal.NewFromBigInt(amount, -decimals).Mul(decimal.NewFromFloat(priceUSD))
	f, _ := value.Float64()
	return f
}

// DecimalGreaterThan reports whether the decimal string value is greater than threshold.
// Unparseable values compare as zero.
func DecimalGreaterThan(value string, threshold int64) bool {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return false
	}
	return d.GreaterThan(decimal.NewFromInt(threshold))
}
