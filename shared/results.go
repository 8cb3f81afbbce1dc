package shared

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SwapStats describes a single hop through one market.
type SwapStats struct {
	Market   common.Address
	TokenIn  common.Address
	TokenOut common.Address

	AmountIn          *big.Int
	AmountInAfterFees *big.Int
	AmountOut         *big.Int
	UsdIn             *big.Int
	UsdOut            *big.Int

	FeeBps         *big.Int
	SwapFeeAmount  *big.Int
	SwapFeeUsd     *big.Int
	PriceImpactUsd *big.Int

	// LiquidityUsd is the output side's available liquidity before the hop.
	LiquidityUsd *big.Int

	InsufficientLiquidity bool
	CapacityExceeded      bool
}

// Ok reports a hop that can execute on-chain with the quoted amounts.
func (s *SwapStats) Ok() bool {
	return s != nil && !s.InsufficientLiquidity && !s.CapacityExceeded
}

type SwapPathStats struct {
	// SwapPath is the ordered list of market addresses sent on-chain.
	SwapPath []common.Address
	TokenIn  common.Address
	TokenOut common.Address
	Steps    []SwapStats

	TotalSwapFeeUsd         *big.Int
	TotalSwapPriceImpactUsd *big.Int
	AmountIn                *big.Int
	AmountOut               *big.Int
	UsdOut                  *big.Int
	// LiquidityUsd is the smallest hop liquidity along the path.
	LiquidityUsd *big.Int
}

// Ok reports whether every hop can execute.
func (s *SwapPathStats) Ok() bool {
	if s == nil {
		return false
	}
	for i := range s.Steps {
		if !s.Steps[i].Ok() {
			return false
		}
	}
	return true
}

type SwapAmounts struct {
	AmountIn  *big.Int
	UsdIn     *big.Int
	AmountOut *big.Int
	UsdOut    *big.Int
	// MinOutputAmount is AmountOut reduced by the requested slippage.
	MinOutputAmount *big.Int
	// SwapPathStats is nil for pass-through conversions.
	SwapPathStats *SwapPathStats
}

type PositionDelta struct {
	// Delta is the PnL after the minimum-profit rule, PendingDelta before it.
	Delta                  *big.Int
	PendingDelta           *big.Int
	HasProfit              bool
	DeltaPercentage        *big.Int
	PendingDeltaPercentage *big.Int
}

// Signed returns Delta with the sign of the PnL.
func (d *PositionDelta) Signed() *big.Int {
	if d.HasProfit {
		return new(big.Int).Set(d.Delta)
	}
	return new(big.Int).Neg(d.Delta)
}

type IncreasePositionAmounts struct {
	InitialCollateralAmount *big.Int
	InitialCollateralUsd    *big.Int
	CollateralAmount        *big.Int
	CollateralUsd           *big.Int
	SwapPathStats           *SwapPathStats

	SizeDeltaUsd      *big.Int
	SizeDeltaInTokens *big.Int

	IndexPrice      *big.Int
	ExecutionPrice  *big.Int
	AcceptablePrice *big.Int
	// AcceptablePriceImpactBps is the unfavourable deviation allowed from IndexPrice.
	AcceptablePriceImpactBps *big.Int
	PriceImpactUsd           *big.Int

	PositionFeeUsd  *big.Int
	DiscountUsd     *big.Int
	FundingFeeUsd   *big.Int
	CollateralAfter *big.Int

	NextSizeUsd          *big.Int
	NextCollateralUsd    *big.Int
	NextAveragePrice     *big.Int
	NextLeverage         *big.Int
	NextLiquidationPrice *big.Int
}

type DecreasePositionAmounts struct {
	SizeDeltaUsd      *big.Int
	SizeDeltaInTokens *big.Int
	IsFullClose       bool

	IndexPrice               *big.Int
	ExecutionPrice           *big.Int
	AcceptablePrice          *big.Int
	AcceptablePriceImpactBps *big.Int
	PriceImpactUsd           *big.Int

	RealizedPnlUsd     *big.Int
	CollateralDeltaUsd *big.Int
	PositionFeeUsd     *big.Int
	DiscountUsd        *big.Int
	FundingFeeUsd      *big.Int

	ReceiveUsd    *big.Int
	ReceiveAmount *big.Int
	ReceiveToken  common.Address
	SwapPathStats *SwapPathStats

	NextSizeUsd          *big.Int
	NextCollateralUsd    *big.Int
	NextLeverage         *big.Int
	NextLiquidationPrice *big.Int
}
