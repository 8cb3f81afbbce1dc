package swap

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/shared"
)

func TestGetSwapStatsFlatFee(t *testing.T) {
	info := fixture()
	a, b := info.Tokens[addrA], info.Tokens[addrB]

	s := GetSwapStats(info.Markets[marketAB], a, b, math.Pow10(18), schedule())
	require.NotNil(t, s)
	assertBig(t, big.NewInt(25), s.FeeBps)
	assertBig(t, big.NewInt(2_500_000_000_000_000), s.SwapFeeAmount)
	assertBig(t, usd(5), s.SwapFeeUsd)
	assertBig(t, big.NewInt(1_995_000_000), s.AmountOut)
	assertBig(t, usd(2000), s.UsdIn)
	assertBig(t, usd(2_000_000), s.LiquidityUsd)
	assert.True(t, s.Ok())
}

func TestGetSwapStatsTaxesImbalance(t *testing.T) {
	info := fixture()
	a, b := info.Tokens[addrA], info.Tokens[addrB]
	m := info.Markets[marketAB]
	// A holds 45% of the backing against a 40% target.
	m.Long.UsdgAmount, m.Long.Weight = usdg(450_000), big.NewInt(40)
	m.Short.UsdgAmount, m.Short.Weight = usdg(550_000), big.NewInt(60)

	s := GetSwapStats(m, a, b, math.Pow10(18), schedule())
	require.NotNil(t, s)
	assertBig(t, big.NewInt(31), s.FeeBps)
	assertBig(t, big.NewInt(1_993_800_000), s.AmountOut)

	back := GetSwapStats(m, b, a, math.Expand(2000, 6), schedule())
	require.NotNil(t, back)
	assertBig(t, big.NewInt(21), back.FeeBps)
}

func TestGetSwapStatsPriceImpact(t *testing.T) {
	info := fixture()
	a, b := info.Tokens[addrA], info.Tokens[addrB]
	m := info.Markets[marketAB]
	flat := GetSwapStats(m, a, b, math.Pow10(18), schedule())

	m.SwapImpact = shared.ImpactFactors{
		PositiveFactor: new(big.Int).Div(shared.Precision, big.NewInt(100_000)),
		NegativeFactor: new(big.Int).Div(shared.Precision, big.NewInt(100_000)),
		ExponentFactor: shared.Precision,
	}
	s := GetSwapStats(m, a, b, math.Pow10(18), schedule())
	require.NotNil(t, s)
	assert.Equal(t, -1, s.PriceImpactUsd.Sign())
	assert.Equal(t, -1, s.AmountOut.Cmp(flat.AmountOut))
}

func TestGetSwapStatsLiquidity(t *testing.T) {
	t.Run("output above available", func(t *testing.T) {
		info := fixture()
		s := GetSwapStats(info.Markets[marketAB], info.Tokens[addrA], info.Tokens[addrB], math.Expand(1500, 18), schedule())
		require.NotNil(t, s)
		assert.True(t, s.InsufficientLiquidity)
		assert.False(t, s.Ok())
	})
	t.Run("buffer", func(t *testing.T) {
		info := fixture()
		m := info.Markets[marketAB]
		m.Short.BufferAmount = math.Expand(1_999_000, 6)
		s := GetSwapStats(m, info.Tokens[addrA], info.Tokens[addrB], math.Pow10(18), schedule())
		require.NotNil(t, s)
		assert.True(t, s.InsufficientLiquidity)
	})
	t.Run("reserved", func(t *testing.T) {
		info := fixture()
		m := info.Markets[marketAB]
		m.Short.ReservedAmount = math.Expand(1_999_000, 6)
		s := GetSwapStats(m, info.Tokens[addrA], info.Tokens[addrB], math.Pow10(18), schedule())
		require.NotNil(t, s)
		assert.True(t, s.InsufficientLiquidity)
		assertBig(t, usd(1000), s.LiquidityUsd)
	})
	t.Run("pool cap", func(t *testing.T) {
		info := fixture()
		m := info.Markets[marketAB]
		m.Long.MaxPoolAmount = new(big.Int).Add(math.Expand(1000, 18), big.NewInt(1))
		s := GetSwapStats(m, info.Tokens[addrA], info.Tokens[addrB], math.Pow10(18), schedule())
		require.NotNil(t, s)
		assert.True(t, s.CapacityExceeded)
		assert.False(t, s.InsufficientLiquidity)
	})
}

func TestGetSwapStatsRejectsMissingData(t *testing.T) {
	info := fixture()
	a, b, c := info.Tokens[addrA], info.Tokens[addrB], info.Tokens[addrC]
	m := info.Markets[marketAB]

	assert.Nil(t, GetSwapStats(m, a, c, math.Pow10(18), schedule()))
	assert.Nil(t, GetSwapStats(m, a, a, math.Pow10(18), schedule()))
	assert.Nil(t, GetSwapStats(m, a, b, big.NewInt(-1), schedule()))

	unpriced := *a
	unpriced.Prices = nil
	assert.Nil(t, GetSwapStats(m, &unpriced, b, math.Pow10(18), schedule()))
}

func TestGetSwapStatsByAmountOutIsMinimal(t *testing.T) {
	info := fixture()
	a, b := info.Tokens[addrA], info.Tokens[addrB]
	m := info.Markets[marketAB]

	for _, want := range []*big.Int{big.NewInt(1), big.NewInt(1_995_000_000), big.NewInt(123_456_789), math.Expand(150_000, 6)} {
		s := GetSwapStatsByAmountOut(m, a, b, want, schedule())
		require.NotNil(t, s, "amountOut %s", want)
		assert.True(t, s.AmountOut.Cmp(want) >= 0)

		below := GetSwapStats(m, a, b, new(big.Int).Sub(s.AmountIn, big.NewInt(1)), schedule())
		require.NotNil(t, below)
		assert.Equal(t, -1, below.AmountOut.Cmp(want), "amountIn %s is not minimal", s.AmountIn)
	}
}

func TestGetSwapStatsRoundTrip(t *testing.T) {
	info := fixture()
	a, b := info.Tokens[addrA], info.Tokens[addrB]
	m := info.Markets[marketAB]

	for _, x := range []*big.Int{math.Pow10(18), big.NewInt(123_456_789_012_345), math.Expand(7, 17)} {
		out := GetSwapStats(m, a, b, x, schedule())
		require.NotNil(t, out)

		in := GetSwapStatsByAmountOut(m, a, b, out.AmountOut, schedule())
		require.NotNil(t, in)
		assert.True(t, in.AmountIn.Cmp(x) <= 0)
		assertBig(t, out.AmountOut, in.AmountOut)
	}
}

func TestGetSwapStatsRoundTripUnderTax(t *testing.T) {
	info := fixture()
	a, b := info.Tokens[addrA], info.Tokens[addrB]
	m := info.Markets[marketAB]
	// A holds 45% of the backing against a 40% target, so A to B is taxed.
	m.Long.UsdgAmount, m.Long.Weight = usdg(450_000), big.NewInt(40)
	m.Short.UsdgAmount, m.Short.Weight = usdg(550_000), big.NewInt(60)

	for _, dir := range []struct {
		name     string
		from, to *shared.Token
		amounts  []*big.Int
	}{
		{"A to B", a, b, []*big.Int{math.Pow10(18), math.Expand(37, 16), math.Expand(5, 18), math.Expand(50, 18)}},
		{"B to A", b, a, []*big.Int{math.Expand(2000, 6), big.NewInt(123_456_789), math.Expand(90_000, 6)}},
	} {
		t.Run(dir.name, func(t *testing.T) {
			for _, x := range dir.amounts {
				out := GetSwapStats(m, dir.from, dir.to, x, schedule())
				require.NotNil(t, out)
				require.True(t, out.Ok())

				in := GetSwapStatsByAmountOut(m, dir.from, dir.to, out.AmountOut, schedule())
				require.NotNil(t, in, "amountIn %s", x)
				assert.True(t, in.AmountOut.Cmp(out.AmountOut) >= 0)
				// A fee step of one basis point is the most the preimage can move.
				diff := new(big.Int).Abs(new(big.Int).Sub(in.AmountIn, x))
				tolerance := new(big.Int).Div(x, big.NewInt(5000))
				assert.True(t, diff.Cmp(tolerance) <= 0, "amountIn %s came back as %s", x, in.AmountIn)
			}
		})
	}
}

func TestGetSwapStatsByAmountOutUnreachable(t *testing.T) {
	info := fixture()
	s := GetSwapStatsByAmountOut(info.Markets[marketAB], info.Tokens[addrA], info.Tokens[addrB], math.Expand(2_500_000, 6), schedule())
	assert.Nil(t, s)

	// 1.5M B fits the pool, but the A it takes breaches the pool cap.
	capped := fixture()
	capped.Markets[marketAB].Long.MaxPoolAmount = math.Expand(1500, 18)
	assert.Nil(t, GetSwapStatsByAmountOut(capped.Markets[marketAB], capped.Tokens[addrA], capped.Tokens[addrB], math.Expand(1_500_000, 6), schedule()))
	assert.NotNil(t, GetSwapStatsByAmountOut(capped.Markets[marketAB], capped.Tokens[addrA], capped.Tokens[addrB], math.Expand(1000, 6), schedule()))

	zero := GetSwapStatsByAmountOut(info.Markets[marketAB], info.Tokens[addrA], info.Tokens[addrB], big.NewInt(0), schedule())
	require.NotNil(t, zero)
	assertBig(t, big.NewInt(0), zero.AmountIn)
}

func TestGetSwapPathStats(t *testing.T) {
	info := fixture()

	stats := GetSwapPathStats(info, []common.Address{marketAB, marketCB}, addrA, addrC, math.Pow10(18), schedule())
	require.NotNil(t, stats)
	require.Len(t, stats.Steps, 2)
	assertBig(t, big.NewInt(1_995_000_000), stats.Steps[0].AmountOut)
	assertBig(t, big.NewInt(6_633_375), stats.AmountOut)
	// $5 on the first hop, $4.9875 on the second.
	assertBig(t, math.Expand(99875, shared.UsdDecimals-4), stats.TotalSwapFeeUsd)
	assertBig(t, usd(2_000_000), stats.LiquidityUsd)
	assert.True(t, stats.Ok())
}

func TestGetSwapPathStatsInvalidPaths(t *testing.T) {
	info := fixture()

	assert.Nil(t, GetSwapPathStats(info, []common.Address{marketCB}, addrA, addrB, math.Pow10(18), schedule()))
	assert.Nil(t, GetSwapPathStats(info, []common.Address{marketAB}, addrA, addrC, math.Pow10(18), schedule()))
	assert.Nil(t, GetSwapPathStats(info, nil, addrA, addrB, math.Pow10(18), schedule()))
	assert.Nil(t, GetSwapPathStats(info, []common.Address{common.HexToAddress("0xdead")}, addrA, addrB, math.Pow10(18), schedule()))

	info.Markets[marketAB].IsDisabled = true
	assert.Nil(t, GetSwapPathStats(info, []common.Address{marketAB}, addrA, addrB, math.Pow10(18), schedule()))
}

func TestGetSwapPathStatsIdentity(t *testing.T) {
	info := fixture()
	stats := GetSwapPathStats(info, nil, addrA, addrA, math.Pow10(18), schedule())
	require.NotNil(t, stats)
	assert.Empty(t, stats.Steps)
	assertBig(t, math.Pow10(18), stats.AmountOut)
	assertBig(t, usd(2000), stats.UsdOut)
}

func TestGetSwapPathStatsByAmountOut(t *testing.T) {
	info := fixture()
	path := []common.Address{marketAB, marketCB}
	want := big.NewInt(6_633_375)

	stats := GetSwapPathStatsByAmountOut(info, path, addrA, addrC, want, schedule())
	require.NotNil(t, stats)
	assert.True(t, stats.AmountOut.Cmp(want) >= 0)
	assert.True(t, stats.AmountIn.Cmp(math.Pow10(18)) <= 0)

	forward := GetSwapPathStats(info, path, addrA, addrC, stats.AmountIn, schedule())
	require.NotNil(t, forward)
	assertBig(t, stats.AmountOut, forward.AmountOut)
}

func TestGetSwapPathStatsByAmountOutUnfillable(t *testing.T) {
	info := fixture()
	path := []common.Address{marketAB, marketCB}

	// The CB pool holds 100 C.
	assert.Nil(t, GetSwapPathStatsByAmountOut(info, path, addrA, addrC, math.Expand(150, 8), schedule()))
	assert.Nil(t, GetSwapAmountsByToValue(info, info.Tokens[addrA], info.Tokens[addrC], math.Expand(150, 8), path, nil, schedule(), addrA))
}

func TestApplySlippage(t *testing.T) {
	assertBig(t, big.NewInt(995), ApplySlippage(big.NewInt(1000), big.NewInt(50)))
	assertBig(t, big.NewInt(1000), ApplySlippage(big.NewInt(1000), nil))
	assertBig(t, big.NewInt(0), ApplySlippage(big.NewInt(1000), big.NewInt(10_000)))
}

func TestGetSwapAmountsNativeToken(t *testing.T) {
	info := fixture()
	eth, a, b := native(), info.Tokens[addrA], info.Tokens[addrB]

	t.Run("wrap is a pass-through", func(t *testing.T) {
		amounts := GetSwapAmountsByFromValue(info, eth, a, math.Pow10(18), nil, big.NewInt(50), schedule(), addrA)
		require.NotNil(t, amounts)
		assert.Nil(t, amounts.SwapPathStats)
		assertBig(t, math.Pow10(18), amounts.AmountOut)
		assertBig(t, math.Pow10(18), amounts.MinOutputAmount)
		assertBig(t, usd(2000), amounts.UsdOut)
	})
	t.Run("native trades as wrapped", func(t *testing.T) {
		amounts := GetSwapAmountsByFromValue(info, eth, b, math.Pow10(18), []common.Address{marketAB}, big.NewInt(50), schedule(), addrA)
		require.NotNil(t, amounts)
		assertBig(t, big.NewInt(1_995_000_000), amounts.AmountOut)
		assertBig(t, big.NewInt(1_985_025_000), amounts.MinOutputAmount)
	})
	t.Run("by output", func(t *testing.T) {
		want := big.NewInt(1_995_000_000)
		amounts := GetSwapAmountsByToValue(info, eth, b, want, []common.Address{marketAB}, big.NewInt(50), schedule(), addrA)
		require.NotNil(t, amounts)
		assert.True(t, amounts.AmountOut.Cmp(want) >= 0)
		assert.True(t, amounts.AmountIn.Cmp(math.Pow10(18)) <= 0)
		assertBig(t, big.NewInt(1_985_025_000), amounts.MinOutputAmount)
	})
}
