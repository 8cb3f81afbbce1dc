package position

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/math/pool_fees"
	"github.com/krazyTry/perpdex-go/pnl"
	"github.com/krazyTry/perpdex-go/shared"
)

// Settings are the protocol parameters the position calculators run against.
type Settings struct {
	Fees      pnl.FeeParams
	SwapFees  pool_fees.SwapFeeSchedule
	MinProfit pnl.MinProfitRule

	AcceptablePriceImpactBufferBps *big.Int
	WrappedToken                   common.Address
}

func (s Settings) withDiscount(discountBps *big.Int) pnl.FeeParams {
	fees := s.Fees
	if discountBps != nil {
		fees.DiscountBps = discountBps
	}
	return fees
}

func cumulativeFundingRate(market *shared.Market, collateral common.Address) *big.Int {
	pool, ok := market.Pool(collateral)
	if !ok {
		return nil
	}
	return pool.CumulativeFundingRate
}

func fundingFee(position *shared.Position, cumulative, precision *big.Int) *big.Int {
	if position == nil {
		return big.NewInt(0)
	}
	fee, ok := pool_fees.GetFundingFee(position.SizeUsd, position.EntryFundingRate, cumulative, precision)
	if !ok {
		return big.NewInt(0)
	}
	return fee
}

func exceedsMaxLeverage(leverage, maxLeverage *big.Int) bool {
	return leverage != nil && math.IsPositive(maxLeverage) && leverage.Cmp(maxLeverage) > 0
}

func exceedsGlobalShortCap(market *shared.Market, sizeDeltaUsd *big.Int) bool {
	if !math.IsPositive(market.MaxGlobalShortSize) {
		return false
	}
	next := new(big.Int).Add(shared.BigOrZero(market.GlobalShortSize), sizeDeltaUsd)
	return next.Cmp(market.MaxGlobalShortSize) > 0
}
