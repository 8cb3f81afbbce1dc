package shared

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Enums and common types shared by math, pool_fees, swap, router, pnl and position.
type Rounding uint8

const (
	RoundingUp   Rounding = 0
	RoundingDown Rounding = 1
)

// SwapPathStrategy orders candidate swap paths when several qualify.
type SwapPathStrategy uint8

const (
	// SwapPathStrategyBestOutput prefers the largest output, then fewer hops.
	SwapPathStrategyBestOutput SwapPathStrategy = 0
	// SwapPathStrategyShortestPath prefers fewer hops, then the largest output.
	SwapPathStrategyShortestPath SwapPathStrategy = 1
	// SwapPathStrategyHighestLiquidity prefers the largest bottleneck liquidity, then the largest output.
	SwapPathStrategyHighestLiquidity SwapPathStrategy = 2
)

func (s SwapPathStrategy) String() string {
	switch s {
	case SwapPathStrategyBestOutput:
		return "best-output"
	case SwapPathStrategyShortestPath:
		return "shortest-path"
	case SwapPathStrategyHighestLiquidity:
		return "highest-liquidity"
	default:
		return "unknown"
	}
}

// LeverageStrategy selects which side of an increase is fixed by the caller.
type LeverageStrategy uint8

const (
	// LeverageByCollateral fixes the collateral and derives the size from the leverage.
	LeverageByCollateral LeverageStrategy = 0
	// LeverageBySize fixes the index token amount and derives the collateral from the leverage.
	LeverageBySize LeverageStrategy = 1
	// LeverageIndependent fixes both and reports the resulting leverage.
	LeverageIndependent LeverageStrategy = 2
)

// TokenPrices is an oracle bid/ask pair, USD per whole token with UsdDecimals.
type TokenPrices struct {
	MinPrice *big.Int
	MaxPrice *big.Int
}

// Mid returns the rounded-down midpoint of the bid/ask pair.
func (p TokenPrices) Mid() *big.Int {
	mid := new(big.Int).Add(p.MinPrice, p.MaxPrice)
	return mid.Rsh(mid, 1)
}

// Pick returns MaxPrice when max is set, MinPrice otherwise.
func (p TokenPrices) Pick(max bool) *big.Int {
	if max {
		return p.MaxPrice
	}
	return p.MinPrice
}

type Token struct {
	Address   common.Address
	Symbol    string
	Decimals  uint8
	IsStable  bool
	IsNative  bool
	IsWrapped bool
	// Prices is nil until a price snapshot has been applied.
	Prices *TokenPrices
}

// HasPrices reports whether both sides of the price pair are known and positive.
func (t *Token) HasPrices() bool {
	return t != nil && t.Prices != nil &&
		t.Prices.MinPrice != nil && t.Prices.MinPrice.Sign() > 0 &&
		t.Prices.MaxPrice != nil && t.Prices.MaxPrice.Sign() > 0
}

// IsEquivalent reports whether converting t into other is a 1:1 pass-through:
// the same token, or the chain's native token against its wrapped form.
func (t *Token) IsEquivalent(other *Token) bool {
	if t == nil || other == nil {
		return false
	}
	if t.Address == other.Address {
		return true
	}
	return (t.IsNative && other.IsWrapped) || (t.IsWrapped && other.IsNative)
}

// PoolState is the per-collateral-token side of a market, all amounts in token units
// except UsdgAmount/MaxUsdgAmount (UsdgDecimals).
type PoolState struct {
	PoolAmount     *big.Int
	ReservedAmount *big.Int
	BufferAmount   *big.Int
	// MaxPoolAmount of zero means uncapped.
	MaxPoolAmount *big.Int
	UsdgAmount    *big.Int
	// MaxUsdgAmount of zero means uncapped.
	MaxUsdgAmount         *big.Int
	Weight                *big.Int
	ImpactPoolAmount      *big.Int
	CumulativeFundingRate *big.Int
}

// AvailableAmount is poolAmount - reservedAmount, floored at zero.
func (p *PoolState) AvailableAmount() *big.Int {
	available := new(big.Int).Sub(BigOrZero(p.PoolAmount), BigOrZero(p.ReservedAmount))
	if available.Sign() < 0 {
		return available.SetInt64(0)
	}
	return available
}

// ImpactFactors configure a price impact curve. Factors use FactorDecimals;
// an ExponentFactor of one (1e30) is linear, 2e30 quadratic.
type ImpactFactors struct {
	PositiveFactor *big.Int
	NegativeFactor *big.Int
	ExponentFactor *big.Int
}

func (f ImpactFactors) IsZero() bool {
	return BigOrZero(f.PositiveFactor).Sign() == 0 && BigOrZero(f.NegativeFactor).Sign() == 0
}

type Market struct {
	Address    common.Address
	IndexToken common.Address
	LongToken  common.Address
	ShortToken common.Address
	IsDisabled bool

	Long  PoolState
	Short PoolState

	LongInterestUsd  *big.Int
	ShortInterestUsd *big.Int
	GlobalShortSize  *big.Int
	// MaxGlobalShortSize of zero means uncapped.
	MaxGlobalShortSize *big.Int

	SwapImpact               ImpactFactors
	PositionImpact           ImpactFactors
	MaxPositionImpactFactor  *big.Int
	PositionImpactPoolAmount *big.Int
}

// IsSameCollaterals reports a market whose long and short token coincide; such a
// market cannot be used as a swap hop.
func (m *Market) IsSameCollaterals() bool {
	return m.LongToken == m.ShortToken
}

func (m *Market) HasToken(token common.Address) bool {
	return m.LongToken == token || m.ShortToken == token
}

// Pool returns the pool side holding token.
func (m *Market) Pool(token common.Address) (*PoolState, bool) {
	switch token {
	case m.LongToken:
		return &m.Long, true
	case m.ShortToken:
		return &m.Short, true
	default:
		return nil, false
	}
}

// OppositeToken returns the other collateral token of the market.
func (m *Market) OppositeToken(token common.Address) (common.Address, bool) {
	switch token {
	case m.LongToken:
		return m.ShortToken, true
	case m.ShortToken:
		return m.LongToken, true
	default:
		return common.Address{}, false
	}
}

// UsdgSupply is the market's total synthetic-stable backing.
func (m *Market) UsdgSupply() *big.Int {
	return new(big.Int).Add(BigOrZero(m.Long.UsdgAmount), BigOrZero(m.Short.UsdgAmount))
}

func (m *Market) TotalWeight() *big.Int {
	return new(big.Int).Add(BigOrZero(m.Long.Weight), BigOrZero(m.Short.Weight))
}

type Position struct {
	Account         common.Address
	Market          common.Address
	CollateralToken common.Address
	IsLong          bool
	SizeUsd         *big.Int
	SizeInTokens    *big.Int
	// CollateralUsd is the position collateral valued in USD (UsdDecimals).
	CollateralUsd *big.Int
	AveragePrice  *big.Int
	// EntryFundingRate is nil when no funding snapshot was taken.
	EntryFundingRate  *big.Int
	LastIncreasedTime int64
}

// MarketsInfo is one refresh cycle's immutable snapshot of markets and tokens.
type MarketsInfo struct {
	Markets map[common.Address]*Market
	Tokens  map[common.Address]*Token
}

func (i *MarketsInfo) Token(address common.Address) (*Token, bool) {
	if i == nil {
		return nil, false
	}
	t, ok := i.Tokens[address]
	return t, ok && t != nil
}

func (i *MarketsInfo) Market(address common.Address) (*Market, bool) {
	if i == nil {
		return nil, false
	}
	m, ok := i.Markets[address]
	return m, ok && m != nil
}

// BigOrZero returns v, or a fresh zero when v is nil.
func BigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
