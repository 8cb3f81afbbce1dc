package pool_fees

import (
	"math/big"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/shared"
)

// GetPriceImpactUsd returns the signed price impact of moving a two-sided balance from
// (currentLong, currentShort) to (nextLong, nextShort). Positive values favour the trader.
func GetPriceImpactUsd(currentLongUsd, currentShortUsd, nextLongUsd, nextShortUsd *big.Int, factors shared.ImpactFactors) *big.Int {
	if factors.IsZero() {
		return big.NewInt(0)
	}

	initialDiff := math.Diff(currentLongUsd, currentShortUsd)
	nextDiff := math.Diff(nextLongUsd, nextShortUsd)

	isSameSideRebalance := (currentLongUsd.Cmp(currentShortUsd) < 0) == (nextLongUsd.Cmp(nextShortUsd) < 0)
	if isSameSideRebalance {
		return getPriceImpactUsdForSameSideRebalance(initialDiff, nextDiff, factors)
	}
	return getPriceImpactUsdForCrossoverRebalance(initialDiff, nextDiff, factors)
}

func getPriceImpactUsdForSameSideRebalance(initialDiff, nextDiff *big.Int, factors shared.ImpactFactors) *big.Int {
	hasPositiveImpact := nextDiff.Cmp(initialDiff) < 0
	factor := factors.NegativeFactor
	if hasPositiveImpact {
		factor = factors.PositiveFactor
	}

	deltaDiffUsd := math.Diff(
		math.ApplyImpactFactor(initialDiff, factor, factors.ExponentFactor),
		math.ApplyImpactFactor(nextDiff, factor, factors.ExponentFactor),
	)
	if hasPositiveImpact {
		return deltaDiffUsd
	}
	return deltaDiffUsd.Neg(deltaDiffUsd)
}

func getPriceImpactUsdForCrossoverRebalance(initialDiff, nextDiff *big.Int, factors shared.ImpactFactors) *big.Int {
	positiveImpactUsd := math.ApplyImpactFactor(initialDiff, factors.PositiveFactor, factors.ExponentFactor)
	negativeImpactUsd := math.ApplyImpactFactor(nextDiff, factors.NegativeFactor, factors.ExponentFactor)
	return positiveImpactUsd.Sub(positiveImpactUsd, negativeImpactUsd)
}

// GetSwapPriceImpactUsd returns the capped impact of swapping usdIn of tokenIn into tokenOut.
// Positive impact cannot exceed the output token's impact pool, negative impact cannot
// exceed usdIn. ok is false when either pool side is missing from market.
func GetSwapPriceImpactUsd(market *shared.Market, tokenIn, tokenOut *shared.Token, usdIn *big.Int) (impact *big.Int, ok bool) {
	poolIn, okIn := market.Pool(tokenIn.Address)
	poolOut, okOut := market.Pool(tokenOut.Address)
	if !okIn || !okOut || !tokenIn.HasPrices() || !tokenOut.HasPrices() {
		return nil, false
	}
	if market.SwapImpact.IsZero() {
		return big.NewInt(0), true
	}

	inUsd := math.TokenToUsd(shared.BigOrZero(poolIn.PoolAmount), tokenIn.Decimals, tokenIn.Prices.Mid(), shared.RoundingDown)
	outUsd := math.TokenToUsd(shared.BigOrZero(poolOut.PoolAmount), tokenOut.Decimals, tokenOut.Prices.Mid(), shared.RoundingDown)

	nextInUsd := new(big.Int).Add(inUsd, usdIn)
	nextOutUsd := new(big.Int).Sub(outUsd, usdIn)
	if nextOutUsd.Sign() < 0 {
		nextOutUsd.SetInt64(0)
	}

	if tokenIn.Address == market.LongToken {
		impact = GetPriceImpactUsd(inUsd, outUsd, nextInUsd, nextOutUsd, market.SwapImpact)
	} else {
		impact = GetPriceImpactUsd(outUsd, inUsd, nextOutUsd, nextInUsd, market.SwapImpact)
	}

	if impact.Sign() > 0 {
		ceiling := math.TokenToUsd(shared.BigOrZero(poolOut.ImpactPoolAmount), tokenOut.Decimals, tokenOut.Prices.MinPrice, shared.RoundingDown)
		if impact.Cmp(ceiling) > 0 {
			impact = ceiling
		}
		return impact, true
	}
	if new(big.Int).Neg(impact).Cmp(usdIn) > 0 {
		impact = new(big.Int).Neg(usdIn)
	}
	return impact, true
}

// GetPositionPriceImpactUsd returns the capped impact of changing open interest on one side
// of market by sizeDeltaUsd (negative for a decrease). Positive impact cannot exceed the
// position impact pool; negative impact cannot exceed MaxPositionImpactFactor of the size.
func GetPositionPriceImpactUsd(market *shared.Market, indexToken *shared.Token, sizeDeltaUsd *big.Int, isLong bool) *big.Int {
	if market.PositionImpact.IsZero() || sizeDeltaUsd.Sign() == 0 {
		return big.NewInt(0)
	}

	longUsd := shared.BigOrZero(market.LongInterestUsd)
	shortUsd := shared.BigOrZero(market.ShortInterestUsd)
	nextLongUsd, nextShortUsd := new(big.Int).Set(longUsd), new(big.Int).Set(shortUsd)
	if isLong {
		nextLongUsd.Add(nextLongUsd, sizeDeltaUsd)
	} else {
		nextShortUsd.Add(nextShortUsd, sizeDeltaUsd)
	}
	if nextLongUsd.Sign() < 0 {
		nextLongUsd.SetInt64(0)
	}
	if nextShortUsd.Sign() < 0 {
		nextShortUsd.SetInt64(0)
	}

	impact := GetPriceImpactUsd(longUsd, shortUsd, nextLongUsd, nextShortUsd, market.PositionImpact)

	if impact.Sign() > 0 {
		if indexToken.HasPrices() {
			ceiling := math.TokenToUsd(shared.BigOrZero(market.PositionImpactPoolAmount), indexToken.Decimals, indexToken.Prices.MinPrice, shared.RoundingDown)
			if impact.Cmp(ceiling) > 0 {
				impact = ceiling
			}
		}
		return impact
	}

	if math.IsPositive(market.MaxPositionImpactFactor) {
		floor := math.ApplyFactor(math.Abs(sizeDeltaUsd), market.MaxPositionImpactFactor, shared.RoundingDown)
		if new(big.Int).Neg(impact).Cmp(floor) > 0 {
			impact = floor.Neg(floor)
		}
	}
	return impact
}
