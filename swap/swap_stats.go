package swap

import (
	"math/big"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/math/pool_fees"
	"github.com/krazyTry/perpdex-go/shared"
)

// GetSwapStats quotes amountIn of tokenIn through market into tokenOut. It returns nil when
// a price, a pool side or the amount is missing. Liquidity and capacity failures are
// reported on the result rather than by a nil.
func GetSwapStats(market *shared.Market, tokenIn, tokenOut *shared.Token, amountIn *big.Int, fees pool_fees.SwapFeeSchedule) *shared.SwapStats {
	if market == nil || amountIn == nil || amountIn.Sign() < 0 {
		return nil
	}
	if !tokenIn.HasPrices() || !tokenOut.HasPrices() || tokenIn.Address == tokenOut.Address {
		return nil
	}
	poolIn, okIn := market.Pool(tokenIn.Address)
	poolOut, okOut := market.Pool(tokenOut.Address)
	if !okIn || !okOut {
		return nil
	}

	usdIn := math.TokenToUsd(amountIn, tokenIn.Decimals, tokenIn.Prices.MinPrice, shared.RoundingDown)
	usdgDelta := math.UsdToUsdg(usdIn)

	feeBps := pool_fees.GetSwapFeeBasisPoints(fees, market, tokenIn, tokenOut, usdgDelta)
	feeAmount := math.ApplyBps(amountIn, feeBps, shared.RoundingUp)
	if feeAmount.Cmp(amountIn) > 0 {
		feeAmount.Set(amountIn)
	}
	amountInAfterFees := new(big.Int).Sub(amountIn, feeAmount)
	feeUsd := math.TokenToUsd(feeAmount, tokenIn.Decimals, tokenIn.Prices.MinPrice, shared.RoundingDown)

	priceImpactUsd, ok := pool_fees.GetSwapPriceImpactUsd(market, tokenIn, tokenOut, usdIn)
	if !ok {
		return nil
	}
	if priceImpactUsd.Sign() < 0 {
		impactAmount := math.UsdToToken(math.Abs(priceImpactUsd), tokenIn.Decimals, tokenIn.Prices.MinPrice, shared.RoundingUp)
		amountInAfterFees.Sub(amountInAfterFees, impactAmount)
		if amountInAfterFees.Sign() < 0 {
			amountInAfterFees.SetInt64(0)
		}
	}

	baseAmountOut := math.ConvertTokenAmount(amountInAfterFees, tokenIn.Decimals, tokenIn.Prices.MinPrice, tokenOut.Decimals, tokenOut.Prices.MaxPrice, shared.RoundingDown)
	amountOut := new(big.Int).Set(baseAmountOut)
	if priceImpactUsd.Sign() > 0 {
		amountOut.Add(amountOut, math.UsdToToken(priceImpactUsd, tokenOut.Decimals, tokenOut.Prices.MaxPrice, shared.RoundingDown))
	}
	usdOut := math.TokenToUsd(amountOut, tokenOut.Decimals, tokenOut.Prices.MaxPrice, shared.RoundingDown)

	available := poolOut.AvailableAmount()
	remaining := new(big.Int).Sub(shared.BigOrZero(poolOut.PoolAmount), baseAmountOut)
	insufficientLiquidity := baseAmountOut.Cmp(available) > 0 || remaining.Cmp(shared.BigOrZero(poolOut.BufferAmount)) < 0

	capacityExceeded := false
	if math.IsPositive(poolIn.MaxUsdgAmount) {
		nextUsdg := new(big.Int).Add(shared.BigOrZero(poolIn.UsdgAmount), usdgDelta)
		capacityExceeded = nextUsdg.Cmp(poolIn.MaxUsdgAmount) > 0
	}
	if math.IsPositive(poolIn.MaxPoolAmount) {
		nextPool := new(big.Int).Add(shared.BigOrZero(poolIn.PoolAmount), amountIn)
		capacityExceeded = capacityExceeded || nextPool.Cmp(poolIn.MaxPoolAmount) > 0
	}

	return &shared.SwapStats{
		Market:                market.Address,
		TokenIn:               tokenIn.Address,
		TokenOut:              tokenOut.Address,
		AmountIn:              new(big.Int).Set(amountIn),
		AmountInAfterFees:     amountInAfterFees,
		AmountOut:             amountOut,
		UsdIn:                 usdIn,
		UsdOut:                usdOut,
		FeeBps:                feeBps,
		SwapFeeAmount:         feeAmount,
		SwapFeeUsd:            feeUsd,
		PriceImpactUsd:        priceImpactUsd,
		LiquidityUsd:          math.TokenToUsd(available, tokenOut.Decimals, tokenOut.Prices.MinPrice, shared.RoundingDown),
		InsufficientLiquidity: insufficientLiquidity,
		CapacityExceeded:      capacityExceeded,
	}
}

// maxSearchDoublings bounds the bracket search of GetSwapStatsByAmountOut.
const maxSearchDoublings = 256

// GetSwapStatsByAmountOut returns the stats of the smallest amountIn whose quote through
// market yields at least amountOut of tokenOut. It starts from the closed-form inverse of
// the fee formula and settles the exact preimage by bisection over GetSwapStats, so the
// result agrees with the forward quote by construction. It returns nil when market cannot
// fill amountOut.
func GetSwapStatsByAmountOut(market *shared.Market, tokenIn, tokenOut *shared.Token, amountOut *big.Int, fees pool_fees.SwapFeeSchedule) *shared.SwapStats {
	if amountOut == nil || amountOut.Sign() < 0 {
		return nil
	}
	if amountOut.Sign() == 0 {
		return GetSwapStats(market, tokenIn, tokenOut, amountOut, fees)
	}
	estimate := estimateAmountIn(market, tokenIn, tokenOut, amountOut, fees)
	if estimate == nil {
		return nil
	}

	quote := func(x *big.Int) (*shared.SwapStats, bool) {
		s := GetSwapStats(market, tokenIn, tokenOut, x, fees)
		return s, s != nil && s.AmountOut.Cmp(amountOut) >= 0
	}

	lo := big.NewInt(0)
	hi := math.Max(estimate, big.NewInt(1))
	best, ok := quote(hi)
	for i := 0; !ok; i++ {
		if best == nil || !best.Ok() || i == maxSearchDoublings {
			return nil
		}
		lo.Set(hi)
		hi = new(big.Int).Lsh(hi, 1)
		hi.Add(hi, big.NewInt(1))
		best, ok = quote(hi)
	}

	if lo.Sign() == 0 {
		step := new(big.Int).Rsh(hi, 10)
		step.Add(step, big.NewInt(1))
		if candidate := new(big.Int).Sub(hi, step); candidate.Sign() > 0 {
			if _, reached := quote(candidate); !reached {
				lo = candidate
			}
		}
	}

	one := big.NewInt(1)
	for new(big.Int).Sub(hi, lo).Cmp(one) > 0 {
		mid := new(big.Int).Add(lo, hi)
		mid.Rsh(mid, 1)
		s, reached := quote(mid)
		if s == nil {
			return nil
		}
		if reached {
			hi, best = mid, s
		} else {
			lo = mid
		}
	}
	if !best.Ok() {
		return nil
	}
	return best
}

// estimateAmountIn inverts the fee formula at the output's USD value, ignoring price impact.
func estimateAmountIn(market *shared.Market, tokenIn, tokenOut *shared.Token, amountOut *big.Int, fees pool_fees.SwapFeeSchedule) *big.Int {
	if market == nil || !tokenIn.HasPrices() || !tokenOut.HasPrices() {
		return nil
	}
	usdOut := math.TokenToUsd(amountOut, tokenOut.Decimals, tokenOut.Prices.MaxPrice, shared.RoundingUp)
	feeBps := pool_fees.GetSwapFeeBasisPoints(fees, market, tokenIn, tokenOut, math.UsdToUsdg(usdOut))
	keepBps := new(big.Int).Sub(shared.BasisPointsDivisorBig, feeBps)
	if keepBps.Sign() <= 0 {
		return nil
	}
	amountIn := math.ConvertTokenAmount(amountOut, tokenOut.Decimals, tokenOut.Prices.MaxPrice, tokenIn.Decimals, tokenIn.Prices.MinPrice, shared.RoundingUp)
	return math.MulDiv(amountIn, shared.BasisPointsDivisorBig, keepBps, shared.RoundingUp)
}
