package math

import (
	"math/big"

	"github.com/krazyTry/perpdex-go/shared"
)

// MulDiv returns x*y/denominator. Rounding applies to the magnitude of the result:
// RoundingDown truncates toward zero, RoundingUp rounds away from zero.
// A zero denominator yields zero; callers guard it when zero is meaningful.
func MulDiv(x, y, denominator *big.Int, rounding shared.Rounding) *big.Int {
	if denominator.Sign() == 0 {
		return big.NewInt(0)
	}
	mul := new(big.Int).Mul(x, y)
	div, mod := new(big.Int).QuoRem(mul, denominator, new(big.Int))
	if rounding == shared.RoundingUp && mod.Sign() != 0 {
		if (mul.Sign() < 0) != (denominator.Sign() < 0) {
			return div.Sub(div, big.NewInt(1))
		}
		return div.Add(div, big.NewInt(1))
	}
	return div
}

// Div is MulDiv with a unit multiplier.
func Div(x, denominator *big.Int, rounding shared.Rounding) *big.Int {
	return MulDiv(x, big.NewInt(1), denominator, rounding)
}

// Pow10 returns 10^n.
func Pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// Expand returns n * 10^decimals.
func Expand(n int64, decimals uint8) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Pow10(decimals))
}

// AdjustForDecimals rebases amount from fromDecimals to toDecimals.
func AdjustForDecimals(amount *big.Int, fromDecimals, toDecimals uint8, rounding shared.Rounding) *big.Int {
	switch {
	case fromDecimals == toDecimals:
		return new(big.Int).Set(amount)
	case toDecimals > fromDecimals:
		return new(big.Int).Mul(amount, Pow10(toDecimals-fromDecimals))
	default:
		return Div(amount, Pow10(fromDecimals-toDecimals), rounding)
	}
}

func Abs(v *big.Int) *big.Int {
	return new(big.Int).Abs(v)
}

// Diff returns |a - b|.
func Diff(a, b *big.Int) *big.Int {
	d := new(big.Int).Sub(a, b)
	return d.Abs(d)
}

func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

func Max(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// Clone copies v, mapping nil to nil.
func Clone(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func IsPositive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
