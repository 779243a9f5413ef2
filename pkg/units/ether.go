// Package units converts between ether amounts and wei without floats.
package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const weiDecimals = 18

var weiPerEther = decimal.New(1, weiDecimals)

// ParseEther parses a decimal ether amount ("0.15") into wei. Amounts with
// more than 18 fractional digits are rejected rather than rounded.
func ParseEther(value string) (*big.Int, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return nil, fmt.Errorf("empty amount")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount %q is negative", value)
	}
	wei := amount.Mul(weiPerEther)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", value, weiDecimals)
	}
	return wei.BigInt(), nil
}

// FormatEther renders wei as a trimmed decimal ether string ("1.5", "0").
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -weiDecimals).String()
}
