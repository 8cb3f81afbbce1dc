package position

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/math/pool_fees"
	"github.com/krazyTry/perpdex-go/pnl"
	"github.com/krazyTry/perpdex-go/shared"
	"github.com/krazyTry/perpdex-go/swap"
)

type DecreaseParams struct {
	Info   *shared.MarketsInfo
	Market *shared.Market

	IndexToken      *shared.Token
	CollateralToken *shared.Token
	// ReceiveToken is what the trader takes out; nil keeps the collateral token.
	ReceiveToken *shared.Token
	SwapPath     []common.Address
	SlippageBps  *big.Int

	Position     *shared.Position
	SizeDeltaUsd *big.Int
	// CollateralDeltaUsd is the collateral to withdraw when KeepLeverage is not set.
	CollateralDeltaUsd *big.Int
	KeepLeverage       bool
	// IsFullClose closes the whole position regardless of SizeDeltaUsd.
	IsFullClose bool

	TriggerPrice                  *big.Int
	FixedAcceptablePriceImpactBps *big.Int
	DiscountBps                   *big.Int
	Now                           int64
}

// GetDecreasePositionAmounts prices a decrease order. It returns nil when a price, token or
// position field is missing, when SizeDeltaUsd reaches the position size without
// IsFullClose, when losses and fees exhaust the collateral, or when the remaining
// position would exceed the configured maximum leverage.
func GetDecreasePositionAmounts(p DecreaseParams, s Settings) *shared.DecreasePositionAmounts {
	position := p.Position
	if p.Market == nil || position == nil || !p.IndexToken.HasPrices() || !p.CollateralToken.HasPrices() {
		return nil
	}
	if !math.IsPositive(position.SizeUsd) || !math.IsPositive(position.CollateralUsd) || !math.IsPositive(position.AveragePrice) {
		return nil
	}
	if p.ReceiveToken != nil && !p.ReceiveToken.HasPrices() {
		return nil
	}
	fees := s.withDiscount(p.DiscountBps)

	size := position.SizeUsd
	sizeDelta := shared.BigOrZero(p.SizeDeltaUsd)
	if p.IsFullClose {
		sizeDelta = size
	} else if sizeDelta.Cmp(size) >= 0 {
		return nil
	}
	if sizeDelta.Sign() <= 0 {
		return nil
	}

	indexPrice := GetMarkPrice(p.IndexToken.Prices, false, position.IsLong)
	price := indexPrice
	if math.IsPositive(p.TriggerPrice) {
		price = p.TriggerPrice
	}

	a := &shared.DecreasePositionAmounts{
		SizeDeltaUsd: new(big.Int).Set(sizeDelta),
		IsFullClose:  p.IsFullClose,
		IndexPrice:   indexPrice,
	}

	a.PriceImpactUsd = pool_fees.GetPositionPriceImpactUsd(p.Market, p.IndexToken, new(big.Int).Neg(sizeDelta), position.IsLong)
	a.ExecutionPrice = GetExecutionPrice(price, sizeDelta, a.PriceImpactUsd, false, position.IsLong)
	if a.ExecutionPrice == nil {
		return nil
	}
	a.SizeDeltaInTokens = sizeDeltaInTokens(position, sizeDelta, p.IndexToken, a.ExecutionPrice)
	a.AcceptablePriceImpactBps = GetAcceptablePriceImpactBps(a.PriceImpactUsd, sizeDelta, p.FixedAcceptablePriceImpactBps, s.AcceptablePriceImpactBufferBps)
	a.AcceptablePrice = GetAcceptablePrice(price, false, position.IsLong, a.AcceptablePriceImpactBps)

	delta := pnl.GetPositionDelta(a.ExecutionPrice, position, s.MinProfit, p.Now)
	if delta == nil {
		return nil
	}
	a.RealizedPnlUsd = math.MulDiv(delta.Delta, sizeDelta, size, shared.RoundingDown)
	if !delta.HasProfit {
		a.RealizedPnlUsd.Neg(a.RealizedPnlUsd)
	}

	collateralToken := swap.GraphAddress(p.CollateralToken, s.WrappedToken)
	cumulative := cumulativeFundingRate(p.Market, collateralToken)
	a.PositionFeeUsd, a.DiscountUsd = pool_fees.GetPositionFee(sizeDelta, fees.MarginFeeBps, fees.DiscountBps)
	a.FundingFeeUsd = fundingFee(position, cumulative, fees.FundingRatePrecision)

	collateral := position.CollateralUsd
	switch {
	case p.IsFullClose:
		a.CollateralDeltaUsd = new(big.Int).Set(collateral)
	case p.KeepLeverage:
		a.CollateralDeltaUsd = math.MulDiv(collateral, sizeDelta, size, shared.RoundingDown)
	default:
		a.CollateralDeltaUsd = math.Min(shared.BigOrZero(p.CollateralDeltaUsd), collateral)
		if a.CollateralDeltaUsd.Sign() < 0 {
			return nil
		}
	}

	// Losses and fees are settled from the released collateral first, then from what stays.
	a.NextCollateralUsd = new(big.Int).Sub(collateral, a.CollateralDeltaUsd)
	a.ReceiveUsd = new(big.Int).Add(a.CollateralDeltaUsd, a.RealizedPnlUsd)
	a.ReceiveUsd.Sub(a.ReceiveUsd, a.PositionFeeUsd)
	a.ReceiveUsd.Sub(a.ReceiveUsd, a.FundingFeeUsd)
	if a.ReceiveUsd.Sign() < 0 {
		a.NextCollateralUsd.Add(a.NextCollateralUsd, a.ReceiveUsd)
		a.ReceiveUsd.SetInt64(0)
		if a.NextCollateralUsd.Sign() < 0 {
			return nil
		}
	}

	a.NextSizeUsd = new(big.Int).Sub(size, sizeDelta)
	if a.NextSizeUsd.Sign() > 0 {
		if a.NextCollateralUsd.Sign() == 0 {
			return nil
		}
		next := pnl.PositionParams{
			IsLong:                position.IsLong,
			Size:                  a.NextSizeUsd,
			Collateral:            a.NextCollateralUsd,
			AveragePrice:          position.AveragePrice,
			EntryFundingRate:      cumulative,
			CumulativeFundingRate: cumulative,
		}
		a.NextLeverage = pnl.GetLeverage(next, fees)
		if a.NextLeverage == nil || exceedsMaxLeverage(a.NextLeverage, fees.MaxLeverage) {
			return nil
		}
		a.NextLiquidationPrice = pnl.GetLiquidationPrice(next, fees)
	}

	if !receive(a, p, s) {
		return nil
	}
	return a
}

func receive(a *shared.DecreasePositionAmounts, p DecreaseParams, s Settings) bool {
	amount := math.UsdToToken(a.ReceiveUsd, p.CollateralToken.Decimals, p.CollateralToken.Prices.MaxPrice, shared.RoundingDown)
	a.ReceiveToken = p.CollateralToken.Address
	a.ReceiveAmount = amount
	if p.ReceiveToken == nil || p.ReceiveToken.IsEquivalent(p.CollateralToken) {
		if p.ReceiveToken != nil {
			a.ReceiveToken = p.ReceiveToken.Address
		}
		return true
	}

	amounts := swap.GetSwapAmountsByFromValue(p.Info, p.CollateralToken, p.ReceiveToken, amount, p.SwapPath, p.SlippageBps, s.SwapFees, s.WrappedToken)
	if amounts == nil {
		return false
	}
	a.ReceiveToken = p.ReceiveToken.Address
	a.ReceiveAmount = amounts.AmountOut
	a.SwapPathStats = amounts.SwapPathStats
	return true
}

// sizeDeltaInTokens is the share of the position's index tokens being closed. Positions
// without a token size fall back to valuing sizeDelta at price.
func sizeDeltaInTokens(position *shared.Position, sizeDelta *big.Int, indexToken *shared.Token, price *big.Int) *big.Int {
	if math.IsPositive(position.SizeInTokens) {
		return math.MulDiv(position.SizeInTokens, sizeDelta, position.SizeUsd, shared.RoundingDown)
	}
	return math.UsdToToken(sizeDelta, indexToken.Decimals, price, shared.RoundingDown)
}
