package swap

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/math/pool_fees"
	"github.com/krazyTry/perpdex-go/shared"
)

var (
	addrA    = common.HexToAddress("0x000000000000000000000000000000000000000a")
	addrB    = common.HexToAddress("0x000000000000000000000000000000000000000b")
	addrC    = common.HexToAddress("0x000000000000000000000000000000000000000c")
	addrETH  = common.HexToAddress("0x000000000000000000000000000000000000eeee")
	marketAB = common.HexToAddress("0x0000000000000000000000000000000000000ab0")
	marketCB = common.HexToAddress("0x0000000000000000000000000000000000000cb0")
)

func usd(n int64) *big.Int {
	return math.Expand(n, shared.UsdDecimals)
}

func usdg(n int64) *big.Int {
	return math.Expand(n, shared.UsdgDecimals)
}

func token(address common.Address, symbol string, decimals uint8, price int64) *shared.Token {
	return &shared.Token{
		Address:  address,
		Symbol:   symbol,
		Decimals: decimals,
		Prices:   &shared.TokenPrices{MinPrice: usd(price), MaxPrice: usd(price)},
	}
}

func schedule() pool_fees.SwapFeeSchedule {
	return pool_fees.SwapFeeSchedule{
		SwapFeeBps:       big.NewInt(25),
		StableSwapFeeBps: big.NewInt(1),
		TaxBps:           big.NewInt(50),
		StableTaxBps:     big.NewInt(5),
	}
}

// fixture is a two-market book: A (18 decimals, $2000, wrapped native) and C (8 decimals,
// $30000) each paired with the stable B (6 decimals, $1). Weights are zero so fees are flat.
func fixture() *shared.MarketsInfo {
	a := token(addrA, "A", 18, 2000)
	a.IsWrapped = true
	b := token(addrB, "B", 6, 1)
	b.IsStable = true
	c := token(addrC, "C", 8, 30000)

	ab := &shared.Market{
		Address:    marketAB,
		IndexToken: addrA,
		LongToken:  addrA,
		ShortToken: addrB,
		Long:       shared.PoolState{PoolAmount: math.Expand(1000, 18)},
		Short:      shared.PoolState{PoolAmount: math.Expand(2_000_000, 6)},
	}
	cb := &shared.Market{
		Address:    marketCB,
		IndexToken: addrC,
		LongToken:  addrC,
		ShortToken: addrB,
		Long:       shared.PoolState{PoolAmount: math.Expand(100, 8)},
		Short:      shared.PoolState{PoolAmount: math.Expand(3_000_000, 6)},
	}
	return &shared.MarketsInfo{
		Markets: map[common.Address]*shared.Market{marketAB: ab, marketCB: cb},
		Tokens:  map[common.Address]*shared.Token{addrA: a, addrB: b, addrC: c},
	}
}

func native() *shared.Token {
	eth := token(addrETH, "ETH", 18, 2000)
	eth.IsNative = true
	return eth
}

func assertBig(t *testing.T, want, got *big.Int) {
	t.Helper()
	assert.Equal(t, want.String(), got.String())
}
