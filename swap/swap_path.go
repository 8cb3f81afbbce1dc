package swap

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/math/pool_fees"
	"github.com/krazyTry/perpdex-go/shared"
)

// hop is one resolved step of a swap path.
type hop struct {
	market   *shared.Market
	tokenIn  *shared.Token
	tokenOut *shared.Token
}

// resolvePath walks swapPath from tokenIn, taking the opposite collateral of each market,
// and checks that the walk ends at tokenOut. Addresses are graph tokens: the native token
// must already be replaced by its wrapped form.
func resolvePath(info *shared.MarketsInfo, swapPath []common.Address, tokenIn, tokenOut common.Address) ([]hop, bool) {
	hops := make([]hop, 0, len(swapPath))
	current := tokenIn
	for _, address := range swapPath {
		market, ok := info.Market(address)
		if !ok || market.IsDisabled || market.IsSameCollaterals() {
			return nil, false
		}
		next, ok := market.OppositeToken(current)
		if !ok {
			return nil, false
		}
		in, okIn := info.Token(current)
		out, okOut := info.Token(next)
		if !okIn || !okOut {
			return nil, false
		}
		hops = append(hops, hop{market: market, tokenIn: in, tokenOut: out})
		current = next
	}
	return hops, current == tokenOut
}

// GetSwapPathStats quotes amountIn of tokenIn along swapPath. An empty path is only valid
// when tokenIn equals tokenOut and quotes the identity. It returns nil when the path does
// not connect the two tokens or a hop lacks data.
func GetSwapPathStats(info *shared.MarketsInfo, swapPath []common.Address, tokenIn, tokenOut common.Address, amountIn *big.Int, fees pool_fees.SwapFeeSchedule) *shared.SwapPathStats {
	if amountIn == nil || amountIn.Sign() < 0 {
		return nil
	}
	hops, ok := resolvePath(info, swapPath, tokenIn, tokenOut)
	if !ok {
		return nil
	}

	stats := &shared.SwapPathStats{
		SwapPath:                append([]common.Address(nil), swapPath...),
		TokenIn:                 tokenIn,
		TokenOut:                tokenOut,
		Steps:                   make([]shared.SwapStats, 0, len(hops)),
		TotalSwapFeeUsd:         big.NewInt(0),
		TotalSwapPriceImpactUsd: big.NewInt(0),
		AmountIn:                new(big.Int).Set(amountIn),
		AmountOut:               new(big.Int).Set(amountIn),
		UsdOut:                  big.NewInt(0),
	}
	if len(hops) == 0 {
		if token, ok := info.Token(tokenIn); ok && token.HasPrices() {
			stats.UsdOut = math.TokenToUsd(amountIn, token.Decimals, token.Prices.MinPrice, shared.RoundingDown)
		}
		return stats
	}

	amount := amountIn
	for _, h := range hops {
		step := GetSwapStats(h.market, h.tokenIn, h.tokenOut, amount, fees)
		if step == nil {
			return nil
		}
		stats.Steps = append(stats.Steps, *step)
		stats.TotalSwapFeeUsd.Add(stats.TotalSwapFeeUsd, step.SwapFeeUsd)
		stats.TotalSwapPriceImpactUsd.Add(stats.TotalSwapPriceImpactUsd, step.PriceImpactUsd)
		if stats.LiquidityUsd == nil || step.LiquidityUsd.Cmp(stats.LiquidityUsd) < 0 {
			stats.LiquidityUsd = new(big.Int).Set(step.LiquidityUsd)
		}
		amount = step.AmountOut
	}

	last := stats.Steps[len(stats.Steps)-1]
	stats.AmountOut = new(big.Int).Set(last.AmountOut)
	stats.UsdOut = new(big.Int).Set(last.UsdOut)
	return stats
}

// GetSwapPathStatsByAmountOut finds the smallest input of tokenIn whose quote along swapPath
// yields at least amountOut of tokenOut, and returns that forward quote. Hops are inverted
// from the last to the first; the final forward pass makes the stats self-consistent.
func GetSwapPathStatsByAmountOut(info *shared.MarketsInfo, swapPath []common.Address, tokenIn, tokenOut common.Address, amountOut *big.Int, fees pool_fees.SwapFeeSchedule) *shared.SwapPathStats {
	if amountOut == nil || amountOut.Sign() < 0 {
		return nil
	}
	hops, ok := resolvePath(info, swapPath, tokenIn, tokenOut)
	if !ok {
		return nil
	}

	need := amountOut
	for i := len(hops) - 1; i >= 0; i-- {
		step := GetSwapStatsByAmountOut(hops[i].market, hops[i].tokenIn, hops[i].tokenOut, need, fees)
		if step == nil {
			return nil
		}
		need = step.AmountIn
	}

	stats := GetSwapPathStats(info, swapPath, tokenIn, tokenOut, need, fees)
	if stats == nil || stats.AmountOut.Cmp(amountOut) < 0 || !stats.Ok() {
		// Per-hop preimages compose only when every hop is monotone.
		return nil
	}
	return stats
}
