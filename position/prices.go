package position

import (
	"math/big"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/shared"
)

// GetMarkPrice returns the oracle side a position trades at. Increasing a long and
// decreasing a short buy the index token at MaxPrice, the other two sell at MinPrice.
func GetMarkPrice(prices *shared.TokenPrices, isIncrease, isLong bool) *big.Int {
	return new(big.Int).Set(prices.Pick(isIncrease == isLong))
}

// GetExecutionPrice applies the signed price impact of sizeDeltaUsd to price. Negative
// impact moves the price against the trader, positive impact in their favour. It returns
// nil when the impact consumes the whole size.
func GetExecutionPrice(price, sizeDeltaUsd, priceImpactUsd *big.Int, isIncrease, isLong bool) *big.Int {
	if !math.IsPositive(price) || !math.IsPositive(sizeDeltaUsd) {
		return nil
	}
	impact := shared.BigOrZero(priceImpactUsd)

	// Buying the index token: exec = price * size / (size + impact).
	// Selling it: exec = price * (size + impact) / size.
	buying := isIncrease == isLong
	adjusted := new(big.Int).Add(sizeDeltaUsd, impact)
	if adjusted.Sign() <= 0 {
		return nil
	}

	if buying {
		return math.MulDiv(price, sizeDeltaUsd, adjusted, shared.RoundingUp)
	}
	return math.MulDiv(price, adjusted, sizeDeltaUsd, shared.RoundingDown)
}

// GetAcceptablePriceImpactBps returns the unfavourable deviation a trade tolerates: fixedBps
// when set, otherwise the expected negative impact plus bufferBps.
func GetAcceptablePriceImpactBps(priceImpactUsd, sizeDeltaUsd, fixedBps, bufferBps *big.Int) *big.Int {
	if fixedBps != nil {
		return new(big.Int).Set(fixedBps)
	}
	allowed := new(big.Int).Set(shared.BigOrZero(bufferBps))
	if priceImpactUsd != nil && priceImpactUsd.Sign() < 0 && math.IsPositive(sizeDeltaUsd) {
		allowed.Add(allowed, math.BpsOf(math.Abs(priceImpactUsd), sizeDeltaUsd, shared.RoundingUp))
	}
	return allowed
}

// GetAcceptablePrice widens price by allowedBps in the direction that hurts the trader:
// up when buying the index token, down when selling it.
func GetAcceptablePrice(price *big.Int, isIncrease, isLong bool, allowedBps *big.Int) *big.Int {
	allowed := shared.BigOrZero(allowedBps)
	if isIncrease == isLong {
		bps := new(big.Int).Add(shared.BasisPointsDivisorBig, allowed)
		return math.ApplyBps(price, bps, shared.RoundingUp)
	}
	bps := new(big.Int).Sub(shared.BasisPointsDivisorBig, allowed)
	if bps.Sign() <= 0 {
		return big.NewInt(0)
	}
	return math.ApplyBps(price, bps, shared.RoundingDown)
}
