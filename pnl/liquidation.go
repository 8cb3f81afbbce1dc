package pnl

import (
	"math/big"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/math/pool_fees"
	"github.com/krazyTry/perpdex-go/shared"
)

type FeeParams struct {
	MarginFeeBps         *big.Int
	DiscountBps          *big.Int
	LiquidationFeeUsd    *big.Int
	MaxLeverage          *big.Int
	FundingRatePrecision *big.Int
}

// PositionParams describe a position and an optional pending change to it. Nil deltas
// mean "no change"; nil funding rates mean no funding snapshot is available.
type PositionParams struct {
	IsLong       bool
	Size         *big.Int
	Collateral   *big.Int
	AveragePrice *big.Int

	EntryFundingRate      *big.Int
	CumulativeFundingRate *big.Int

	SizeDelta          *big.Int
	IncreaseSize       bool
	CollateralDelta    *big.Int
	IncreaseCollateral bool

	// Delta is the unrealized PnL. It is only used when IncludeDelta is set; the liquidation
	// price takes out its SizeDelta share.
	Delta        *big.Int
	HasProfit    bool
	IncludeDelta bool
}

func (p PositionParams) next() (nextSize, remainingCollateral *big.Int, ok bool) {
	nextSize = new(big.Int).Set(shared.BigOrZero(p.Size))
	remainingCollateral = new(big.Int).Set(shared.BigOrZero(p.Collateral))

	if math.IsPositive(p.SizeDelta) {
		if p.IncreaseSize {
			nextSize.Add(nextSize, p.SizeDelta)
		} else {
			if p.SizeDelta.Cmp(nextSize) >= 0 {
				return nil, nil, false
			}
			nextSize.Sub(nextSize, p.SizeDelta)
		}
	}

	if math.IsPositive(p.CollateralDelta) {
		if p.IncreaseCollateral {
			remainingCollateral.Add(remainingCollateral, p.CollateralDelta)
		} else {
			if p.CollateralDelta.Cmp(remainingCollateral) >= 0 {
				return nil, nil, false
			}
			remainingCollateral.Sub(remainingCollateral, p.CollateralDelta)
		}
	}
	return nextSize, remainingCollateral, true
}

// GetLiquidationPriceFromDelta returns the price at which collateral falls to liquidationAmount.
func GetLiquidationPriceFromDelta(liquidationAmount, size, collateral, averagePrice *big.Int, isLong bool) *big.Int {
	if !math.IsPositive(size) || !math.IsPositive(averagePrice) {
		return nil
	}

	var price *big.Int
	if liquidationAmount.Cmp(collateral) > 0 {
		// Already past the threshold: the price must move in the trader's favour.
		liquidationDelta := new(big.Int).Sub(liquidationAmount, collateral)
		priceDelta := math.MulDiv(liquidationDelta, averagePrice, size, shared.RoundingDown)
		if isLong {
			price = priceDelta.Add(averagePrice, priceDelta)
		} else {
			price = priceDelta.Sub(averagePrice, priceDelta)
		}
	} else {
		liquidationDelta := new(big.Int).Sub(collateral, liquidationAmount)
		priceDelta := math.MulDiv(liquidationDelta, averagePrice, size, shared.RoundingDown)
		if isLong {
			price = priceDelta.Sub(averagePrice, priceDelta)
		} else {
			price = priceDelta.Add(averagePrice, priceDelta)
		}
	}
	if price.Sign() <= 0 {
		return nil
	}
	return price
}

// GetLiquidationPrice returns the more conservative of two bounds: the price at which the
// closing fee, liquidation fee and accrued funding exhaust the collateral, and the price at
// which the position reaches max leverage. A long takes the higher price, a short the
// lower. Without a funding snapshot only the max-leverage bound is known.
func GetLiquidationPrice(p PositionParams, fees FeeParams) *big.Int {
	if !math.IsPositive(p.Size) || !math.IsPositive(p.Collateral) || !math.IsPositive(p.AveragePrice) {
		return nil
	}
	nextSize, remainingCollateral, ok := p.next()
	if !ok {
		return nil
	}
	// Only the SizeDelta share of a loss leaves the collateral; the rest is already measured
	// by the distance from AveragePrice.
	if p.IncludeDelta && !p.HasProfit && math.IsPositive(p.Delta) && math.IsPositive(p.SizeDelta) {
		realized := math.MulDiv(p.SizeDelta, p.Delta, p.Size, shared.RoundingDown)
		remainingCollateral.Sub(remainingCollateral, realized)
	}

	var forFees *big.Int
	if fundingFee, ok := pool_fees.GetFundingFee(p.Size, p.EntryFundingRate, p.CumulativeFundingRate, fees.FundingRatePrecision); ok {
		closingFee, _ := pool_fees.GetPositionFee(nextSize, fees.MarginFeeBps, fees.DiscountBps)
		liquidationAmount := closingFee.Add(closingFee, shared.BigOrZero(fees.LiquidationFeeUsd))
		liquidationAmount.Add(liquidationAmount, fundingFee)
		forFees = GetLiquidationPriceFromDelta(liquidationAmount, nextSize, remainingCollateral, p.AveragePrice, p.IsLong)
	}

	var forMaxLeverage *big.Int
	if math.IsPositive(fees.MaxLeverage) {
		liquidationAmount := math.MulDiv(nextSize, shared.BasisPointsDivisorBig, fees.MaxLeverage, shared.RoundingDown)
		forMaxLeverage = GetLiquidationPriceFromDelta(liquidationAmount, nextSize, remainingCollateral, p.AveragePrice, p.IsLong)
	}

	switch {
	case forFees == nil:
		return forMaxLeverage
	case forMaxLeverage == nil:
		return forFees
	case p.IsLong:
		return math.Max(forFees, forMaxLeverage)
	default:
		return math.Min(forFees, forMaxLeverage)
	}
}
