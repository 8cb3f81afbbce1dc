package math

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/krazyTry/perpdex-go/decimal_math"
	"github.com/krazyTry/perpdex-go/shared"
)

// exponentScale is the number of fractional digits kept while raising to a
// non-integer exponent; it exceeds FactorDecimals so truncation happens once, at the end.
const exponentScale = 40

// ApplyExponentFactor returns (value/Precision)^(exponent/Precision) * Precision, rounded down.
// Values below one USD yield zero. Integer exponents are evaluated exactly.
func ApplyExponentFactor(value, exponentFactor *big.Int) *big.Int {
	if value.Cmp(shared.Precision) < 0 {
		return big.NewInt(0)
	}
	if exponentFactor == nil || exponentFactor.Cmp(shared.Precision) == 0 {
		return new(big.Int).Set(value)
	}

	k, rem := new(big.Int).QuoRem(exponentFactor, shared.Precision, new(big.Int))
	if rem.Sign() == 0 && k.IsInt64() && k.Int64() > 0 {
		n := k.Int64()
		num := new(big.Int).Exp(value, big.NewInt(n), nil)
		den := new(big.Int).Exp(shared.Precision, big.NewInt(n-1), nil)
		return num.Quo(num, den)
	}

	base := decimal.NewFromBigInt(value, -shared.UsdDecimals)
	exponent := decimal.NewFromBigInt(exponentFactor, -shared.FactorDecimals)
	result, err := decimal_math.Pow(base, exponent, exponentScale)
	if err != nil {
		return big.NewInt(0)
	}
	return result.Shift(shared.UsdDecimals).Truncate(0).BigInt()
}

// ApplyImpactFactor returns ApplyExponentFactor(diffUsd, exponentFactor) * factor / Precision.
func ApplyImpactFactor(diffUsd, factor, exponentFactor *big.Int) *big.Int {
	if factor == nil || factor.Sign() == 0 {
		return big.NewInt(0)
	}
	return ApplyFactor(ApplyExponentFactor(diffUsd, exponentFactor), factor, shared.RoundingDown)
}
