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

type IncreaseParams struct {
	Info   *shared.MarketsInfo
	Market *shared.Market

	IndexToken *shared.Token
	// InitialCollateralToken is what the trader pays with; it is swapped along SwapPath
	// into CollateralToken.
	InitialCollateralToken *shared.Token
	CollateralToken        *shared.Token
	SwapPath               []common.Address
	IsLong                 bool

	Strategy shared.LeverageStrategy
	// InitialCollateralAmount is required by LeverageByCollateral and LeverageIndependent.
	InitialCollateralAmount *big.Int
	// IndexTokenAmount is required by LeverageBySize and LeverageIndependent.
	IndexTokenAmount *big.Int
	// Leverage in basis points, required by LeverageByCollateral and LeverageBySize.
	Leverage *big.Int

	// TriggerPrice prices a limit order; nil prices at the oracle.
	TriggerPrice                  *big.Int
	FixedAcceptablePriceImpactBps *big.Int
	DiscountBps                   *big.Int

	// Position is the existing position being increased, nil for a new one.
	Position *shared.Position
	Now      int64
}

// GetIncreasePositionAmounts prices an increase order. It returns nil when a price, token
// or strategy input is missing, when the fees consume the collateral, when a short would
// breach the market's global short cap, or when the resulting leverage would exceed the
// configured maximum.
func GetIncreasePositionAmounts(p IncreaseParams, s Settings) *shared.IncreasePositionAmounts {
	if p.Market == nil || !p.IndexToken.HasPrices() || !p.CollateralToken.HasPrices() || !p.InitialCollateralToken.HasPrices() {
		return nil
	}
	if p.Position != nil && (p.Position.IsLong != p.IsLong || !math.IsPositive(p.Position.SizeUsd)) {
		return nil
	}
	if !p.Market.HasToken(swap.GraphAddress(p.CollateralToken, s.WrappedToken)) {
		return nil
	}
	fees := s.withDiscount(p.DiscountBps)

	indexPrice := GetMarkPrice(p.IndexToken.Prices, true, p.IsLong)
	price := indexPrice
	if math.IsPositive(p.TriggerPrice) {
		price = p.TriggerPrice
	}

	a := &shared.IncreasePositionAmounts{IndexPrice: indexPrice}

	var collateral *shared.SwapAmounts
	switch p.Strategy {
	case shared.LeverageByCollateral:
		if !math.IsPositive(p.Leverage) {
			return nil
		}
		if collateral = swapCollateralIn(p, s); collateral == nil {
			return nil
		}
		a.SizeDeltaUsd = sizeForCollateral(collateralUsd(collateral, p.CollateralToken), p.Leverage, fees)
	case shared.LeverageBySize:
		if !math.IsPositive(p.Leverage) || !math.IsPositive(p.IndexTokenAmount) {
			return nil
		}
		a.SizeDeltaUsd = math.TokenToUsd(p.IndexTokenAmount, p.IndexToken.Decimals, price, shared.RoundingDown)
		if collateral = swapCollateralOut(p, s, collateralForSize(a.SizeDeltaUsd, p.Leverage, fees)); collateral == nil {
			return nil
		}
	case shared.LeverageIndependent:
		if !math.IsPositive(p.IndexTokenAmount) {
			return nil
		}
		if collateral = swapCollateralIn(p, s); collateral == nil {
			return nil
		}
		a.SizeDeltaUsd = math.TokenToUsd(p.IndexTokenAmount, p.IndexToken.Decimals, price, shared.RoundingDown)
	default:
		return nil
	}
	a.InitialCollateralAmount = collateral.AmountIn
	a.InitialCollateralUsd = collateral.UsdIn
	a.CollateralAmount = collateral.AmountOut
	a.CollateralUsd = collateralUsd(collateral, p.CollateralToken)
	a.SwapPathStats = collateral.SwapPathStats
	if !math.IsPositive(a.SizeDeltaUsd) {
		return nil
	}
	if !p.IsLong && exceedsGlobalShortCap(p.Market, a.SizeDeltaUsd) {
		return nil
	}

	a.PriceImpactUsd = pool_fees.GetPositionPriceImpactUsd(p.Market, p.IndexToken, a.SizeDeltaUsd, p.IsLong)
	a.ExecutionPrice = GetExecutionPrice(price, a.SizeDeltaUsd, a.PriceImpactUsd, true, p.IsLong)
	if a.ExecutionPrice == nil {
		return nil
	}
	a.SizeDeltaInTokens = math.UsdToToken(a.SizeDeltaUsd, p.IndexToken.Decimals, a.ExecutionPrice, shared.RoundingDown)
	a.AcceptablePriceImpactBps = GetAcceptablePriceImpactBps(a.PriceImpactUsd, a.SizeDeltaUsd, p.FixedAcceptablePriceImpactBps, s.AcceptablePriceImpactBufferBps)
	a.AcceptablePrice = GetAcceptablePrice(price, true, p.IsLong, a.AcceptablePriceImpactBps)

	cumulative := cumulativeFundingRate(p.Market, swap.GraphAddress(p.CollateralToken, s.WrappedToken))
	a.PositionFeeUsd, a.DiscountUsd = pool_fees.GetPositionFee(a.SizeDeltaUsd, fees.MarginFeeBps, fees.DiscountBps)
	a.FundingFeeUsd = fundingFee(p.Position, cumulative, fees.FundingRatePrecision)

	a.CollateralAfter = new(big.Int).Sub(a.CollateralUsd, a.PositionFeeUsd)
	a.CollateralAfter.Sub(a.CollateralAfter, a.FundingFeeUsd)

	a.NextSizeUsd = new(big.Int).Set(a.SizeDeltaUsd)
	a.NextCollateralUsd = new(big.Int).Set(a.CollateralAfter)
	a.NextAveragePrice = new(big.Int).Set(a.ExecutionPrice)
	if p.Position != nil {
		a.NextSizeUsd.Add(a.NextSizeUsd, p.Position.SizeUsd)
		a.NextCollateralUsd.Add(a.NextCollateralUsd, shared.BigOrZero(p.Position.CollateralUsd))

		delta := pnl.GetPositionDelta(a.ExecutionPrice, p.Position, s.MinProfit, p.Now)
		if delta == nil {
			return nil
		}
		a.NextAveragePrice = pnl.GetNextAveragePrice(p.Position.SizeUsd, a.SizeDeltaUsd, a.ExecutionPrice, delta.Delta, delta.HasProfit, p.IsLong)
		if a.NextAveragePrice == nil {
			return nil
		}
	}
	if a.NextCollateralUsd.Sign() <= 0 {
		return nil
	}

	next := pnl.PositionParams{
		IsLong:                p.IsLong,
		Size:                  a.NextSizeUsd,
		Collateral:            a.NextCollateralUsd,
		AveragePrice:          a.NextAveragePrice,
		EntryFundingRate:      cumulative,
		CumulativeFundingRate: cumulative,
	}
	a.NextLeverage = pnl.GetLeverage(next, fees)
	if a.NextLeverage == nil || exceedsMaxLeverage(a.NextLeverage, fees.MaxLeverage) {
		return nil
	}
	a.NextLiquidationPrice = pnl.GetLiquidationPrice(next, fees)
	return a
}

// sizeForCollateral solves size = (collateral - fee(size)) * leverage for the size, with
// fee(size) = size * marginFee * (1 - discount):
// size = collateral * L * BPD^2 / (BPD^3 + marginFeeBps * (BPD - discountBps) * L).
func sizeForCollateral(collateralUsd, leverage *big.Int, fees pnl.FeeParams) *big.Int {
	bpd := shared.BasisPointsDivisorBig
	bpd2 := new(big.Int).Mul(bpd, bpd)

	feeNumerator := new(big.Int).Sub(bpd, shared.BigOrZero(fees.DiscountBps))
	feeNumerator.Mul(feeNumerator, shared.BigOrZero(fees.MarginFeeBps))
	feeNumerator.Mul(feeNumerator, leverage)

	denominator := new(big.Int).Mul(bpd2, bpd)
	denominator.Add(denominator, feeNumerator)

	numerator := new(big.Int).Mul(collateralUsd, leverage)
	return math.MulDiv(numerator, bpd2, denominator, shared.RoundingDown)
}

func collateralForSize(sizeUsd, leverage *big.Int, fees pnl.FeeParams) *big.Int {
	collateral := math.MulDiv(sizeUsd, shared.BasisPointsDivisorBig, leverage, shared.RoundingUp)
	fee, _ := pool_fees.GetPositionFee(sizeUsd, fees.MarginFeeBps, fees.DiscountBps)
	return collateral.Add(collateral, fee)
}

func swapCollateralIn(p IncreaseParams, s Settings) *shared.SwapAmounts {
	if !math.IsPositive(p.InitialCollateralAmount) {
		return nil
	}
	return swap.GetSwapAmountsByFromValue(p.Info, p.InitialCollateralToken, p.CollateralToken, p.InitialCollateralAmount, p.SwapPath, nil, s.SwapFees, s.WrappedToken)
}

// swapCollateralOut finds the payment that yields usd worth of the collateral token.
func swapCollateralOut(p IncreaseParams, s Settings, usd *big.Int) *shared.SwapAmounts {
	amount := math.UsdToToken(usd, p.CollateralToken.Decimals, p.CollateralToken.Prices.MinPrice, shared.RoundingUp)
	return swap.GetSwapAmountsByToValue(p.Info, p.InitialCollateralToken, p.CollateralToken, amount, p.SwapPath, nil, s.SwapFees, s.WrappedToken)
}

func collateralUsd(amounts *shared.SwapAmounts, token *shared.Token) *big.Int {
	return math.TokenToUsd(amounts.AmountOut, token.Decimals, token.Prices.MinPrice, shared.RoundingDown)
}
