package decimal_math

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrPowDomain = errors.New("pow: base must be positive for a fractional exponent")

// Pow raises base to exponent with at least scale fractional digits of precision.
// Integer exponents are exact; fractional exponents go through ln/exp in decimal
// arithmetic so the result is reproducible bit for bit.
func Pow(base, exponent decimal.Decimal, scale int32) (decimal.Decimal, error) {
	if base.IsZero() {
		if exponent.Sign() <= 0 {
			return decimal.Zero, ErrPowDomain
		}
		return decimal.Zero, nil
	}

	if exponent.Equal(exponent.Truncate(0)) {
		return base.Pow(exponent), nil
	}

	if base.IsNegative() {
		return decimal.Zero, ErrPowDomain
	}
	out, err := base.PowWithPrecision(exponent, scale)
	if err != nil {
		return decimal.Zero, err
	}
	return out.Truncate(scale), nil
}
