package router

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/krazyTry/perpdex-go/math/pool_fees"
	"github.com/krazyTry/perpdex-go/shared"
	"github.com/krazyTry/perpdex-go/swap"
)

const DefaultMaxHops = 3

// Constraints narrow and order the search of FindSwapPath.
type Constraints struct {
	// MaxHops of zero means DefaultMaxHops.
	MaxHops         int
	DisabledMarkets map[common.Address]bool
	Strategy        shared.SwapPathStrategy
}

func (c Constraints) maxHops() int {
	if c.MaxHops <= 0 {
		return DefaultMaxHops
	}
	return c.MaxHops
}

// FindSwapPath returns the best executable path for swapping amountIn of from into to, or
// nil when no path qualifies. Equivalent tokens need no path and also yield nil.
//
// Every simple token path within the hop limit is priced at amountIn. On each hop the
// market giving the largest output is used, so parallel markets between the same pair
// compete. Paths with a hop lacking liquidity or capacity are dropped, the rest are ranked
// by c.Strategy. Remaining ties go to the lexicographically smallest market list.
func FindSwapPath(info *shared.MarketsInfo, from, to *shared.Token, amountIn *big.Int, c Constraints, fees pool_fees.SwapFeeSchedule, wrapped common.Address) *shared.SwapPathStats {
	if info == nil || from == nil || to == nil || amountIn == nil || amountIn.Sign() < 0 {
		return nil
	}
	if from.IsEquivalent(to) {
		return nil
	}
	source := swap.GraphAddress(from, wrapped)
	dest := swap.GraphAddress(to, wrapped)
	if source == dest {
		return nil
	}

	graph := NewMarketsGraph(info, c.DisabledMarkets)

	var best *shared.SwapPathStats
	for _, tokenPath := range graph.FindTokenPaths(source, dest, c.maxHops()) {
		marketPath, ok := chooseMarkets(info, graph, tokenPath, amountIn, fees)
		if !ok {
			continue
		}
		stats := swap.GetSwapPathStats(info, marketPath, source, dest, amountIn, fees)
		if !stats.Ok() {
			continue
		}
		if best == nil || ranksBefore(stats, best, c.Strategy) {
			best = stats
		}
	}
	return best
}

// chooseMarkets picks, for every edge of tokenPath, the market giving the largest output
// for the amount reaching that edge.
func chooseMarkets(info *shared.MarketsInfo, graph *MarketsGraph, tokenPath []common.Address, amountIn *big.Int, fees pool_fees.SwapFeeSchedule) ([]common.Address, bool) {
	marketPath := make([]common.Address, 0, len(tokenPath)-1)
	amount := amountIn
	for i := 0; i+1 < len(tokenPath); i++ {
		tokenIn, okIn := info.Token(tokenPath[i])
		tokenOut, okOut := info.Token(tokenPath[i+1])
		if !okIn || !okOut {
			return nil, false
		}
		var chosen *shared.SwapStats
		for _, market := range graph.MarketsBetween(tokenPath[i], tokenPath[i+1]) {
			stats := swap.GetSwapStats(market, tokenIn, tokenOut, amount, fees)
			if !stats.Ok() {
				continue
			}
			// Markets come in address order, so a strict comparison keeps the lowest address on ties.
			if chosen == nil || stats.AmountOut.Cmp(chosen.AmountOut) > 0 {
				chosen = stats
			}
		}
		if chosen == nil {
			return nil, false
		}
		marketPath = append(marketPath, chosen.Market)
		amount = chosen.AmountOut
	}
	return marketPath, true
}

// ranksBefore reports whether a is preferred over b under strategy.
func ranksBefore(a, b *shared.SwapPathStats, strategy shared.SwapPathStrategy) bool {
	byOutput := b.AmountOut.Cmp(a.AmountOut)
	byHops := len(a.SwapPath) - len(b.SwapPath)
	byLiquidity := shared.BigOrZero(b.LiquidityUsd).Cmp(shared.BigOrZero(a.LiquidityUsd))

	var order []int
	switch strategy {
	case shared.SwapPathStrategyShortestPath:
		order = []int{byHops, byOutput, byLiquidity}
	case shared.SwapPathStrategyHighestLiquidity:
		order = []int{byLiquidity, byOutput, byHops}
	default:
		order = []int{byOutput, byHops, byLiquidity}
	}
	for _, c := range order {
		if c != 0 {
			return c < 0
		}
	}
	return comparePaths(a.SwapPath, b.SwapPath) < 0
}

func comparePaths(a, b []common.Address) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := bytes.Compare(a[i][:], b[i][:]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}
