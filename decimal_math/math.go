package decimal_math

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Pow10 returns 10^n as a decimal without going through float64.
func Pow10(n int32) decimal.Decimal {
	return decimal.New(1, n)
}

// ToDecimal interprets a fixed-point integer with the given number of decimals.
func ToDecimal(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}

// FromDecimal scales a human-readable decimal into a fixed-point integer, truncating.
func FromDecimal(d decimal.Decimal, decimals int32) *big.Int {
	return d.Shift(decimals).Truncate(0).BigInt()
}
