package pool_fees

import (
	"math/big"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/shared"
)

// SwapFeeSchedule is the base fee and tax for volatile and stable swaps, in basis points.
type SwapFeeSchedule struct {
	SwapFeeBps       *big.Int
	StableSwapFeeBps *big.Int
	TaxBps           *big.Int
	StableTaxBps     *big.Int
}

// GetTargetUsdgAmount returns weight * usdgSupply / totalWeight, or zero when
// the market has no weight or no supply.
func GetTargetUsdgAmount(weight, usdgSupply, totalWeight *big.Int) *big.Int {
	if totalWeight == nil || totalWeight.Sign() == 0 || usdgSupply == nil || usdgSupply.Sign() == 0 {
		return big.NewInt(0)
	}
	return math.MulDiv(shared.BigOrZero(weight), usdgSupply, totalWeight, shared.RoundingDown)
}

// GetFeeBasisPoints adjusts feeBps by the skew of a token's synthetic-stable balance.
//
// A delta that moves usdgAmount toward targetAmount earns a rebate of
// taxBps * initialDiff / target (the fee floors at zero). A delta that moves it away pays
// taxBps * averageDiff / target where averageDiff is the mean of the pre- and post-trade
// distance, capped at target. A zero target returns feeBps unchanged.
func GetFeeBasisPoints(usdgAmount, usdgDelta, targetAmount, feeBps, taxBps *big.Int, increment bool) *big.Int {
	if targetAmount == nil || targetAmount.Sign() <= 0 {
		return new(big.Int).Set(feeBps)
	}

	initialAmount := shared.BigOrZero(usdgAmount)
	nextAmount := new(big.Int).Add(initialAmount, usdgDelta)
	if !increment {
		nextAmount.Sub(initialAmount, usdgDelta)
		if nextAmount.Sign() < 0 {
			nextAmount.SetInt64(0)
		}
	}

	initialDiff := math.Diff(initialAmount, targetAmount)
	nextDiff := math.Diff(nextAmount, targetAmount)

	if nextDiff.Cmp(initialDiff) < 0 {
		rebateBps := math.MulDiv(taxBps, initialDiff, targetAmount, shared.RoundingDown)
		if rebateBps.Cmp(feeBps) > 0 {
			return big.NewInt(0)
		}
		return rebateBps.Sub(feeBps, rebateBps)
	}

	averageDiff := new(big.Int).Add(initialDiff, nextDiff)
	averageDiff.Rsh(averageDiff, 1)
	if averageDiff.Cmp(targetAmount) > 0 {
		averageDiff.Set(targetAmount)
	}
	tax := math.MulDiv(taxBps, averageDiff, targetAmount, shared.RoundingDown)
	return tax.Add(feeBps, tax)
}

// GetSwapFeeBasisPoints returns the fee for swapping usdgDelta worth of tokenIn into
// tokenOut inside market: the larger of the inflow fee on tokenIn and the outflow fee on tokenOut.
func GetSwapFeeBasisPoints(schedule SwapFeeSchedule, market *shared.Market, tokenIn, tokenOut *shared.Token, usdgDelta *big.Int) *big.Int {
	feeBps, taxBps := schedule.SwapFeeBps, schedule.TaxBps
	if tokenIn.IsStable && tokenOut.IsStable {
		feeBps, taxBps = schedule.StableSwapFeeBps, schedule.StableTaxBps
	}
	feeBps, taxBps = shared.BigOrZero(feeBps), shared.BigOrZero(taxBps)

	poolIn, okIn := market.Pool(tokenIn.Address)
	poolOut, okOut := market.Pool(tokenOut.Address)
	if !okIn || !okOut {
		return new(big.Int).Set(feeBps)
	}

	usdgSupply := market.UsdgSupply()
	totalWeight := market.TotalWeight()

	feesIn := GetFeeBasisPoints(poolIn.UsdgAmount, usdgDelta, GetTargetUsdgAmount(poolIn.Weight, usdgSupply, totalWeight), feeBps, taxBps, true)
	feesOut := GetFeeBasisPoints(poolOut.UsdgAmount, usdgDelta, GetTargetUsdgAmount(poolOut.Weight, usdgSupply, totalWeight), feeBps, taxBps, false)
	return math.Max(feesIn, feesOut)
}
