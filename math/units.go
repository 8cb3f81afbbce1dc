package math

import (
	"math/big"

	"github.com/krazyTry/perpdex-go/shared"
)

// Scale conventions, enforced by the conversions below:
//   - token amounts carry the token's own decimals,
//   - USD values and prices carry shared.UsdDecimals (price is USD per whole token),
//   - USDG amounts carry shared.UsdgDecimals,
//   - basis points are over shared.BasisPointsDivisor,
//   - factors are over shared.Precision.

// TokenToUsd values amount of a token with decimals at price.
func TokenToUsd(amount *big.Int, decimals uint8, price *big.Int, rounding shared.Rounding) *big.Int {
	return MulDiv(amount, price, Pow10(decimals), rounding)
}

// UsdToToken converts usd into token units at price. A zero price yields zero.
func UsdToToken(usd *big.Int, decimals uint8, price *big.Int, rounding shared.Rounding) *big.Int {
	if price == nil || price.Sign() == 0 {
		return big.NewInt(0)
	}
	return MulDiv(usd, Pow10(decimals), price, rounding)
}

// ConvertTokenAmount converts amount of one token into another through their USD prices
// with a single division, so only one rounding step is taken.
func ConvertTokenAmount(amount *big.Int, fromDecimals uint8, fromPrice *big.Int, toDecimals uint8, toPrice *big.Int, rounding shared.Rounding) *big.Int {
	if toPrice == nil || toPrice.Sign() == 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(amount, fromPrice)
	denominator := new(big.Int).Mul(toPrice, Pow10(fromDecimals))
	return MulDiv(numerator, Pow10(toDecimals), denominator, rounding)
}

// UsdToUsdg rebases a USD value to the synthetic-stable scale.
func UsdToUsdg(usd *big.Int) *big.Int {
	return AdjustForDecimals(usd, shared.UsdDecimals, shared.UsdgDecimals, shared.RoundingDown)
}

// ApplyBps returns value * bps / BasisPointsDivisor.
func ApplyBps(value, bps *big.Int, rounding shared.Rounding) *big.Int {
	return MulDiv(value, bps, shared.BasisPointsDivisorBig, rounding)
}

// BpsOf returns part as basis points of whole, zero when whole is zero.
func BpsOf(part, whole *big.Int, rounding shared.Rounding) *big.Int {
	return MulDiv(part, shared.BasisPointsDivisorBig, whole, rounding)
}

// ApplyFactor returns value * factor / Precision.
func ApplyFactor(value, factor *big.Int, rounding shared.Rounding) *big.Int {
	return MulDiv(value, factor, shared.Precision, rounding)
}
