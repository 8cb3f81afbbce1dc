package pool_fees

import (
	"math/big"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/shared"
)

// GetPositionFee returns the margin fee on sizeDeltaUsd after the referral discount,
// and the discount itself. The size after fee rounds down, so the fee rounds up.
func GetPositionFee(sizeDeltaUsd, marginFeeBps, discountBps *big.Int) (feeUsd, discountUsd *big.Int) {
	if sizeDeltaUsd == nil || sizeDeltaUsd.Sign() <= 0 {
		return big.NewInt(0), big.NewInt(0)
	}
	keepBps := new(big.Int).Sub(shared.BasisPointsDivisorBig, shared.BigOrZero(marginFeeBps))
	afterFee := math.ApplyBps(sizeDeltaUsd, keepBps, shared.RoundingDown)
	feeUsd = new(big.Int).Sub(sizeDeltaUsd, afterFee)

	discountUsd = math.ApplyBps(feeUsd, shared.BigOrZero(discountBps), shared.RoundingDown)
	return feeUsd.Sub(feeUsd, discountUsd), discountUsd
}

// GetFundingFee returns sizeUsd * (cumulative - entry) / precision. ok is false when
// either funding snapshot is missing.
func GetFundingFee(sizeUsd, entryFundingRate, cumulativeFundingRate, precision *big.Int) (fee *big.Int, ok bool) {
	if entryFundingRate == nil || cumulativeFundingRate == nil || precision == nil || precision.Sign() == 0 {
		return nil, false
	}
	if sizeUsd == nil || sizeUsd.Sign() <= 0 {
		return big.NewInt(0), true
	}
	rate := new(big.Int).Sub(cumulativeFundingRate, entryFundingRate)
	if rate.Sign() <= 0 {
		return big.NewInt(0), true
	}
	return math.MulDiv(sizeUsd, rate, precision, shared.RoundingDown), true
}
