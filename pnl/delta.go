package pnl

import (
	"math/big"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/shared"
)

// MinProfitRule zeroes a small favourable delta until Time seconds have passed since the
// position was last increased. A zero Time disables it.
type MinProfitRule struct {
	Time int64
	Bps  *big.Int
}

func (r MinProfitRule) applies(lastIncreasedTime, now int64, size, delta *big.Int) bool {
	if r.Time <= 0 || !math.IsPositive(r.Bps) {
		return false
	}
	if now > lastIncreasedTime+r.Time {
		return false
	}
	lhs := new(big.Int).Mul(delta, shared.BasisPointsDivisorBig)
	rhs := new(big.Int).Mul(size, r.Bps)
	return lhs.Cmp(rhs) <= 0
}

// GetPositionDelta returns the unrealized PnL of position at price. now is in unix seconds.
func GetPositionDelta(price *big.Int, position *shared.Position, rule MinProfitRule, now int64) *shared.PositionDelta {
	if !math.IsPositive(price) || position == nil || !math.IsPositive(position.AveragePrice) || position.SizeUsd == nil {
		return nil
	}
	size := position.SizeUsd
	averagePrice := position.AveragePrice

	priceDelta := math.Diff(averagePrice, price)
	pendingDelta := math.MulDiv(size, priceDelta, averagePrice, shared.RoundingDown)

	hasProfit := price.Cmp(averagePrice) > 0
	if !position.IsLong {
		hasProfit = averagePrice.Cmp(price) > 0
	}

	delta := new(big.Int).Set(pendingDelta)
	if hasProfit && rule.applies(position.LastIncreasedTime, now, size, delta) {
		delta.SetInt64(0)
	}

	collateral := shared.BigOrZero(position.CollateralUsd)
	return &shared.PositionDelta{
		Delta:                  delta,
		PendingDelta:           pendingDelta,
		HasProfit:              hasProfit,
		DeltaPercentage:        math.BpsOf(delta, collateral, shared.RoundingDown),
		PendingDeltaPercentage: math.BpsOf(pendingDelta, collateral, shared.RoundingDown),
	}
}

func GetNextAveragePrice(size, sizeDelta, nextPrice, delta *big.Int, hasProfit, isLong bool) *big.Int {
	if !math.IsPositive(nextPrice) || sizeDelta == nil || sizeDelta.Sign() < 0 {
		return nil
	}
	if !math.IsPositive(size) {
		return new(big.Int).Set(nextPrice)
	}
	delta = shared.BigOrZero(delta)

	nextSize := new(big.Int).Add(size, sizeDelta)
	divisor := new(big.Int).Set(nextSize)
	if isLong == hasProfit {
		divisor.Add(divisor, delta)
	} else {
		divisor.Sub(divisor, delta)
	}
	if divisor.Sign() <= 0 {
		return nil
	}
	return math.MulDiv(nextPrice, nextSize, divisor, shared.RoundingDown)
}
