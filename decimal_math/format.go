package decimal_math

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	usdDecimals = 30
	bpsDivisor  = 10_000
)

// FormatUsd renders a 30-decimal USD value with two fractional digits.
func FormatUsd(v *big.Int) string {
	if v == nil {
		return "..."
	}
	return "$" + ToDecimal(v, usdDecimals).StringFixed(2)
}

// FormatAmount renders a token amount with displayDecimals fractional digits.
func FormatAmount(v *big.Int, decimals uint8, symbol string, displayDecimals int32) string {
	if v == nil {
		return "..."
	}
	out := ToDecimal(v, int32(decimals)).StringFixed(displayDecimals)
	if symbol != "" {
		out += " " + symbol
	}
	return out
}

// FormatBps renders basis points as a percentage.
func FormatBps(bps *big.Int) string {
	if bps == nil {
		return "..."
	}
	return decimal.NewFromBigInt(bps, 0).Div(decimal.NewFromInt(bpsDivisor / 100)).StringFixed(2) + "%"
}

// FormatLeverage renders a basis-point leverage as "12.34x".
func FormatLeverage(bps *big.Int) string {
	if bps == nil {
		return "..."
	}
	return decimal.NewFromBigInt(bps, 0).Div(decimal.NewFromInt(bpsDivisor)).StringFixed(2) + "x"
}
