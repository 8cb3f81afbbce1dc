package pnl

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/shared"
)

func usd(n int64) *big.Int {
	return math.Expand(n, shared.UsdDecimals)
}

func assertBig(t *testing.T, want, got *big.Int) {
	t.Helper()
	assert.Equal(t, want.String(), got.String())
}

func position(isLong bool) *shared.Position {
	return &shared.Position{
		IsLong:            isLong,
		SizeUsd:           usd(10_000),
		CollateralUsd:     usd(1000),
		AveragePrice:      usd(2000),
		EntryFundingRate:  big.NewInt(0),
		LastIncreasedTime: 1_700_000_000,
	}
}

func fees() FeeParams {
	return FeeParams{
		MarginFeeBps:         big.NewInt(10),
		LiquidationFeeUsd:    usd(5),
		MaxLeverage:          big.NewInt(100 * shared.BasisPointsDivisor),
		FundingRatePrecision: big.NewInt(1_000_000),
	}
}

func TestGetPositionDelta(t *testing.T) {
	now := int64(1_700_100_000)

	long := GetPositionDelta(usd(2200), position(true), MinProfitRule{}, now)
	require.NotNil(t, long)
	assert.True(t, long.HasProfit)
	assertBig(t, usd(1000), long.Delta)
	assertBig(t, big.NewInt(10_000), long.DeltaPercentage)
	assertBig(t, usd(1000), long.Signed())

	short := GetPositionDelta(usd(2200), position(false), MinProfitRule{}, now)
	require.NotNil(t, short)
	assert.False(t, short.HasProfit)
	assertBig(t, usd(1000), short.Delta)
	assertBig(t, usd(-1000), short.Signed())

	flat := GetPositionDelta(usd(2000), position(true), MinProfitRule{}, now)
	require.NotNil(t, flat)
	assert.False(t, flat.HasProfit)
	assertBig(t, big.NewInt(0), flat.Delta)

	assert.Nil(t, GetPositionDelta(big.NewInt(0), position(true), MinProfitRule{}, now))
	zeroAverage := position(true)
	zeroAverage.AveragePrice = big.NewInt(0)
	assert.Nil(t, GetPositionDelta(usd(2000), zeroAverage, MinProfitRule{}, now))
}

func TestGetPositionDeltaMinProfit(t *testing.T) {
	p := position(true)
	rule := MinProfitRule{Time: 3600, Bps: big.NewInt(150)}
	// +1% is below the 1.5% threshold.
	price := usd(2020)

	early := GetPositionDelta(price, p, rule, p.LastIncreasedTime+60)
	require.NotNil(t, early)
	assertBig(t, big.NewInt(0), early.Delta)
	assertBig(t, usd(100), early.PendingDelta)
	assert.True(t, early.HasProfit)

	late := GetPositionDelta(price, p, rule, p.LastIncreasedTime+3601)
	require.NotNil(t, late)
	assertBig(t, usd(100), late.Delta)

	large := GetPositionDelta(usd(2100), p, rule, p.LastIncreasedTime+60)
	require.NotNil(t, large)
	assertBig(t, usd(500), large.Delta)

	// Losses are never hidden.
	loss := GetPositionDelta(usd(1980), p, rule, p.LastIncreasedTime+60)
	require.NotNil(t, loss)
	assertBig(t, usd(100), loss.Delta)
}

func TestGetNextAveragePrice(t *testing.T) {
	assertBig(t, usd(2100), GetNextAveragePrice(big.NewInt(0), usd(10_000), usd(2100), nil, false, true))

	// A long in profit averages down towards the original entry.
	assertBig(t, usd(2000), GetNextAveragePrice(usd(10_000), usd(10_000), usd(2100), usd(1000), true, true))

	lossLong := GetNextAveragePrice(usd(10_000), usd(10_000), usd(2100), usd(1000), false, true)
	assert.Equal(t, 1, lossLong.Cmp(usd(2100)))

	profitShort := GetNextAveragePrice(usd(10_000), usd(10_000), usd(1900), usd(1000), true, false)
	assert.Equal(t, 1, profitShort.Cmp(usd(1900)))

	assert.Nil(t, GetNextAveragePrice(usd(10_000), usd(10_000), big.NewInt(0), nil, false, true))
}

func TestGetLiquidationPriceFromDelta(t *testing.T) {
	assertBig(t, usd(1820), GetLiquidationPriceFromDelta(usd(100), usd(10_000), usd(1000), usd(2000), true))
	assertBig(t, usd(2180), GetLiquidationPriceFromDelta(usd(100), usd(10_000), usd(1000), usd(2000), false))

	// Already under water: a long is liquidated above its entry.
	assertBig(t, usd(2020), GetLiquidationPriceFromDelta(usd(1100), usd(10_000), usd(1000), usd(2000), true))

	assert.Nil(t, GetLiquidationPriceFromDelta(big.NewInt(0), usd(10_000), usd(20_000), usd(2000), true))
	assert.Nil(t, GetLiquidationPriceFromDelta(big.NewInt(0), big.NewInt(0), usd(1000), usd(2000), true))
}

func TestGetLiquidationPrice(t *testing.T) {
	params := func(isLong bool) PositionParams {
		return PositionParams{
			IsLong:                isLong,
			Size:                  usd(10_000),
			Collateral:            usd(1000),
			AveragePrice:          usd(2000),
			EntryFundingRate:      big.NewInt(0),
			CumulativeFundingRate: big.NewInt(0),
		}
	}

	t.Run("max leverage dominates", func(t *testing.T) {
		// Fee bound: 10 + 5 USD, price 1803. Leverage bound: 100 USD, price 1820.
		assertBig(t, usd(1820), GetLiquidationPrice(params(true), fees()))
		assertBig(t, usd(2180), GetLiquidationPrice(params(false), fees()))
	})
	t.Run("fees dominate", func(t *testing.T) {
		f := fees()
		f.LiquidationFeeUsd = usd(500)
		assertBig(t, usd(1902), GetLiquidationPrice(params(true), f))
		assertBig(t, usd(2098), GetLiquidationPrice(params(false), f))
	})
	t.Run("no funding snapshot", func(t *testing.T) {
		f := fees()
		f.LiquidationFeeUsd = usd(500)
		p := params(true)
		p.EntryFundingRate = nil
		assertBig(t, usd(1820), GetLiquidationPrice(p, f))
	})
	t.Run("long below entry short above", func(t *testing.T) {
		long := GetLiquidationPrice(params(true), fees())
		short := GetLiquidationPrice(params(false), fees())
		assert.Equal(t, -1, long.Cmp(usd(2000)))
		assert.Equal(t, 1, short.Cmp(usd(2000)))
	})
	t.Run("pending increase", func(t *testing.T) {
		p := params(true)
		p.SizeDelta, p.IncreaseSize = usd(10_000), true
		p.CollateralDelta, p.IncreaseCollateral = usd(1000), true
		// Same leverage, same bound.
		assertBig(t, usd(1820), GetLiquidationPrice(p, fees()))
	})
	t.Run("unrealized loss is not counted twice", func(t *testing.T) {
		p := params(true)
		// Mark at 1900: a 500 USD loss on 10000 of size.
		p.Delta, p.IncludeDelta = usd(500), true
		assertBig(t, usd(1820), GetLiquidationPrice(p, fees()))
	})
	t.Run("decrease realizes its share of the loss", func(t *testing.T) {
		p := params(true)
		p.Delta, p.IncludeDelta = usd(500), true
		p.SizeDelta = usd(5000)
		// 250 of the loss leaves the collateral: 750 backs 5000 of size.
		// Leverage bound 50 USD, price 2000 - 700*2000/5000 = 1720. Fee bound 5+5, price 1704.
		assertBig(t, usd(1720), GetLiquidationPrice(p, fees()))
	})
	t.Run("decrease through the size", func(t *testing.T) {
		p := params(true)
		p.SizeDelta = usd(10_000)
		assert.Nil(t, GetLiquidationPrice(p, fees()))
	})
}

func TestGetLeverage(t *testing.T) {
	p := PositionParams{Size: usd(10_000), Collateral: usd(1000)}
	assertBig(t, big.NewInt(100_000), GetLeverage(p, fees()))

	withLoss := p
	withLoss.Delta, withLoss.IncludeDelta = usd(500), true
	assertBig(t, big.NewInt(200_000), GetLeverage(withLoss, fees()))

	withProfit := withLoss
	withProfit.HasProfit = true
	assertBig(t, big.NewInt(66_666), GetLeverage(withProfit, fees()))

	wipedOut := p
	wipedOut.Delta, wipedOut.IncludeDelta = usd(1000), true
	assert.Nil(t, GetLeverage(wipedOut, fees()))

	increase := p
	increase.SizeDelta, increase.IncreaseSize = usd(10_000), true
	// 20000 / (1000 - 10 fee)
	assertBig(t, big.NewInt(202_020), GetLeverage(increase, fees()))

	closed := p
	closed.SizeDelta = usd(10_000)
	assert.Nil(t, GetLeverage(closed, fees()))

	assert.Nil(t, GetLeverage(PositionParams{Size: usd(10_000)}, fees()))
}
