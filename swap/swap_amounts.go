package swap

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/math/pool_fees"
	"github.com/krazyTry/perpdex-go/shared"
)

// GraphAddress returns the address token trades under in markets: the wrapped token for
// the native one, the token's own address otherwise.
func GraphAddress(token *shared.Token, wrapped common.Address) common.Address {
	if token.IsNative {
		return wrapped
	}
	return token.Address
}

// ApplySlippage returns amount reduced by slippageBps, rounded down.
func ApplySlippage(amount, slippageBps *big.Int) *big.Int {
	if slippageBps == nil || slippageBps.Sign() <= 0 {
		return new(big.Int).Set(amount)
	}
	if slippageBps.Cmp(shared.BasisPointsDivisorBig) >= 0 {
		return big.NewInt(0)
	}
	keep := new(big.Int).Sub(shared.BasisPointsDivisorBig, slippageBps)
	return math.ApplyBps(amount, keep, shared.RoundingDown)
}

// GetSwapAmountsByFromValue quotes amountIn of tokenIn into tokenOut along swapPath.
// Equivalent tokens convert 1:1 and ignore swapPath.
func GetSwapAmountsByFromValue(info *shared.MarketsInfo, tokenIn, tokenOut *shared.Token, amountIn *big.Int, swapPath []common.Address, slippageBps *big.Int, fees pool_fees.SwapFeeSchedule, wrapped common.Address) *shared.SwapAmounts {
	if amountIn == nil || amountIn.Sign() < 0 || !tokenIn.HasPrices() || !tokenOut.HasPrices() {
		return nil
	}
	usdIn := math.TokenToUsd(amountIn, tokenIn.Decimals, tokenIn.Prices.MinPrice, shared.RoundingDown)

	if tokenIn.IsEquivalent(tokenOut) {
		return passThrough(amountIn, usdIn)
	}

	stats := GetSwapPathStats(info, swapPath, GraphAddress(tokenIn, wrapped), GraphAddress(tokenOut, wrapped), amountIn, fees)
	if stats == nil {
		return nil
	}
	return &shared.SwapAmounts{
		AmountIn:        new(big.Int).Set(amountIn),
		UsdIn:           usdIn,
		AmountOut:       new(big.Int).Set(stats.AmountOut),
		UsdOut:          new(big.Int).Set(stats.UsdOut),
		MinOutputAmount: ApplySlippage(stats.AmountOut, slippageBps),
		SwapPathStats:   stats,
	}
}

// GetSwapAmountsByToValue returns the smallest input of tokenIn that yields at least
// amountOut of tokenOut along swapPath. MinOutputAmount applies slippageBps to the
// requested amountOut.
func GetSwapAmountsByToValue(info *shared.MarketsInfo, tokenIn, tokenOut *shared.Token, amountOut *big.Int, swapPath []common.Address, slippageBps *big.Int, fees pool_fees.SwapFeeSchedule, wrapped common.Address) *shared.SwapAmounts {
	if amountOut == nil || amountOut.Sign() < 0 || !tokenIn.HasPrices() || !tokenOut.HasPrices() {
		return nil
	}

	if tokenIn.IsEquivalent(tokenOut) {
		usd := math.TokenToUsd(amountOut, tokenIn.Decimals, tokenIn.Prices.MinPrice, shared.RoundingDown)
		return passThrough(amountOut, usd)
	}

	stats := GetSwapPathStatsByAmountOut(info, swapPath, GraphAddress(tokenIn, wrapped), GraphAddress(tokenOut, wrapped), amountOut, fees)
	if stats == nil {
		return nil
	}
	return &shared.SwapAmounts{
		AmountIn:        new(big.Int).Set(stats.AmountIn),
		UsdIn:           math.TokenToUsd(stats.AmountIn, tokenIn.Decimals, tokenIn.Prices.MinPrice, shared.RoundingDown),
		AmountOut:       new(big.Int).Set(stats.AmountOut),
		UsdOut:          new(big.Int).Set(stats.UsdOut),
		MinOutputAmount: ApplySlippage(amountOut, slippageBps),
		SwapPathStats:   stats,
	}
}

func passThrough(amount, usd *big.Int) *shared.SwapAmounts {
	return &shared.SwapAmounts{
		AmountIn:        new(big.Int).Set(amount),
		UsdIn:           usd,
		AmountOut:       new(big.Int).Set(amount),
		UsdOut:          new(big.Int).Set(usd),
		MinOutputAmount: new(big.Int).Set(amount),
	}
}
