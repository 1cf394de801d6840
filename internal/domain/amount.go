package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the unit convention of the accepted payment token. All
// ledger math runs on uint64 base units; decimals only appear at the API edge.
const TokenDecimals = 6

var unitScale = decimal.New(1, TokenDecimals)

// ParseAmount converts a human amount such as "1.5" into base units.
func ParseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q is negative", s)
	}
	scaled := d.Mul(unitScale)
	if scaled.Exponent() < 0 && !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", s, TokenDecimals)
	}
	if !scaled.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %q overflows base units", s)
	}
	return scaled.BigInt().Uint64(), nil
}

// FormatAmount renders base units as a human amount string.
func FormatAmount(units uint64) string {
	return decimal.NewFromUint64(units).Div(unitScale).String()
}
