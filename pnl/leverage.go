package pnl

import (
	"math/big"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/math/pool_fees"
	"github.com/krazyTry/perpdex-go/shared"
)

// GetLeverage returns the leverage after the pending change in basis points, or nil when
// no collateral is left.
func GetLeverage(p PositionParams, fees FeeParams) *big.Int {
	if !math.IsPositive(p.Size) && !math.IsPositive(p.SizeDelta) {
		return nil
	}
	if !math.IsPositive(p.Collateral) && !math.IsPositive(p.CollateralDelta) {
		return nil
	}
	nextSize, remainingCollateral, ok := p.next()
	if !ok {
		return nil
	}

	if p.IncludeDelta && p.Delta != nil {
		if p.HasProfit {
			remainingCollateral.Add(remainingCollateral, p.Delta)
		} else {
			if p.Delta.Cmp(remainingCollateral) > 0 {
				return nil
			}
			remainingCollateral.Sub(remainingCollateral, p.Delta)
		}
	}
	if remainingCollateral.Sign() == 0 {
		return nil
	}

	if math.IsPositive(p.SizeDelta) {
		positionFee, _ := pool_fees.GetPositionFee(p.SizeDelta, fees.MarginFeeBps, fees.DiscountBps)
		remainingCollateral.Sub(remainingCollateral, positionFee)
		if fundingFee, ok := pool_fees.GetFundingFee(p.Size, p.EntryFundingRate, p.CumulativeFundingRate, fees.FundingRatePrecision); ok {
			remainingCollateral.Sub(remainingCollateral, fundingFee)
		}
	}
	if remainingCollateral.Sign() <= 0 {
		return nil
	}
	return math.MulDiv(nextSize, shared.BasisPointsDivisorBig, remainingCollateral, shared.RoundingDown)
}
