package server

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/krazyTry/perpdex-go/decimal_math"
	"github.com/krazyTry/perpdex-go/shared"
	"github.com/krazyTry/perpdex-go/u256"
)

// Quantities travel as decimal strings so they survive JSON number precision.

type SwapQuoteRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	// Exactly one of AmountIn and AmountOut is set.
	AmountIn    string   `json:"amountIn,omitempty"`
	AmountOut   string   `json:"amountOut,omitempty"`
	SwapPath    []string `json:"swapPath,omitempty"`
	SlippageBps string   `json:"slippageBps,omitempty"`
	Strategy    string   `json:"strategy,omitempty"`
}

type SwapQuoteResponse struct {
	AmountIn        string       `json:"amountIn"`
	AmountOut       string       `json:"amountOut"`
	MinOutputAmount string       `json:"minOutputAmount"`
	UsdIn           string       `json:"usdIn"`
	UsdOut          string       `json:"usdOut"`
	UsdOutDisplay   string       `json:"usdOutDisplay"`
	Path            *SwapPathDTO `json:"path,omitempty"`
}

type SwapPathDTO struct {
	Markets        []string `json:"markets"`
	TotalFeeUsd    string   `json:"totalFeeUsd"`
	TotalImpactUsd string   `json:"totalImpactUsd"`
	LiquidityUsd   string   `json:"liquidityUsd"`
	FeeDisplay     string   `json:"feeDisplay"`
	Executable     bool     `json:"executable"`
}

type IncreaseRequest struct {
	Account         string `json:"account,omitempty"`
	Market          string `json:"market"`
	PayToken        string `json:"payToken"`
	CollateralToken string `json:"collateralToken"`
	IsLong          bool   `json:"isLong"`
	// Strategy is "collateral", "size" or "independent".
	Strategy         string   `json:"strategy"`
	PayAmount        string   `json:"payAmount,omitempty"`
	IndexAmount      string   `json:"indexAmount,omitempty"`
	Leverage         string   `json:"leverage,omitempty"`
	TriggerPrice     string   `json:"triggerPrice,omitempty"`
	AcceptableImpact string   `json:"acceptableImpactBps,omitempty"`
	DiscountBps      string   `json:"discountBps,omitempty"`
	SwapPath         []string `json:"swapPath,omitempty"`
	Now              int64    `json:"now,omitempty"`
}

type IncreaseResponse struct {
	PayAmount            string       `json:"payAmount"`
	CollateralAmount     string       `json:"collateralAmount"`
	CollateralUsd        string       `json:"collateralUsd"`
	SizeDeltaUsd         string       `json:"sizeDeltaUsd"`
	SizeDeltaInTokens    string       `json:"sizeDeltaInTokens"`
	ExecutionPrice       string       `json:"executionPrice"`
	AcceptablePrice      string       `json:"acceptablePrice"`
	PriceImpactUsd       string       `json:"priceImpactUsd"`
	PositionFeeUsd       string       `json:"positionFeeUsd"`
	DiscountUsd          string       `json:"discountUsd"`
	FundingFeeUsd        string       `json:"fundingFeeUsd"`
	NextSizeUsd          string       `json:"nextSizeUsd"`
	NextCollateralUsd    string       `json:"nextCollateralUsd"`
	NextAveragePrice     string       `json:"nextAveragePrice"`
	NextLeverage         string       `json:"nextLeverage"`
	NextLeverageDisplay  string       `json:"nextLeverageDisplay"`
	NextLiquidationPrice string       `json:"nextLiquidationPrice,omitempty"`
	Path                 *SwapPathDTO `json:"path,omitempty"`
}

type DecreaseRequest struct {
	Account          string   `json:"account"`
	Market           string   `json:"market"`
	CollateralToken  string   `json:"collateralToken"`
	IsLong           bool     `json:"isLong"`
	SizeDeltaUsd     string   `json:"sizeDeltaUsd,omitempty"`
	CollateralDelta  string   `json:"collateralDeltaUsd,omitempty"`
	KeepLeverage     bool     `json:"keepLeverage"`
	FullClose        bool     `json:"fullClose"`
	ReceiveToken     string   `json:"receiveToken,omitempty"`
	SwapPath         []string `json:"swapPath,omitempty"`
	SlippageBps      string   `json:"slippageBps,omitempty"`
	TriggerPrice     string   `json:"triggerPrice,omitempty"`
	AcceptableImpact string   `json:"acceptableImpactBps,omitempty"`
	DiscountBps      string   `json:"discountBps,omitempty"`
	Now              int64    `json:"now,omitempty"`
}

type DecreaseResponse struct {
	SizeDeltaUsd         string       `json:"sizeDeltaUsd"`
	SizeDeltaInTokens    string       `json:"sizeDeltaInTokens"`
	ExecutionPrice       string       `json:"executionPrice"`
	AcceptablePrice      string       `json:"acceptablePrice"`
	PriceImpactUsd       string       `json:"priceImpactUsd"`
	RealizedPnlUsd       string       `json:"realizedPnlUsd"`
	CollateralDeltaUsd   string       `json:"collateralDeltaUsd"`
	PositionFeeUsd       string       `json:"positionFeeUsd"`
	FundingFeeUsd        string       `json:"fundingFeeUsd"`
	ReceiveToken         string       `json:"receiveToken"`
	ReceiveAmount        string       `json:"receiveAmount"`
	ReceiveUsd           string       `json:"receiveUsd"`
	NextSizeUsd          string       `json:"nextSizeUsd"`
	NextCollateralUsd    string       `json:"nextCollateralUsd"`
	NextLeverage         string       `json:"nextLeverage,omitempty"`
	NextLiquidationPrice string       `json:"nextLiquidationPrice,omitempty"`
	Path                 *SwapPathDTO `json:"path,omitempty"`
}

type PositionRequest struct {
	Account         string `json:"account"`
	Market          string `json:"market"`
	CollateralToken string `json:"collateralToken"`
	IsLong          bool   `json:"isLong"`
	DiscountBps     string `json:"discountBps,omitempty"`
	Now             int64  `json:"now,omitempty"`
}

type PositionResponse struct {
	Delta                   string `json:"delta"`
	PendingDelta            string `json:"pendingDelta"`
	HasProfit               bool   `json:"hasProfit"`
	DeltaPercentageDisplay  string `json:"deltaPercentageDisplay"`
	Leverage                string `json:"leverage,omitempty"`
	LeverageDisplay         string `json:"leverageDisplay,omitempty"`
	LiquidationPrice        string `json:"liquidationPrice,omitempty"`
	LiquidationPriceDisplay string `json:"liquidationPriceDisplay,omitempty"`
}

type MarketDTO struct {
	Address    string `json:"address"`
	IndexToken string `json:"indexToken"`
	LongToken  string `json:"longToken"`
	ShortToken string `json:"shortToken"`
	IsDisabled bool   `json:"isDisabled"`
}

func str(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// optionalBig parses an optional unsigned quantity; the empty string is nil.
func optionalBig(name, v string) (*big.Int, error) {
	if v == "" {
		return nil, nil
	}
	out, err := u256.ParseBig(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func parseAddress(name, v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", name, v)
	}
	return common.HexToAddress(v), nil
}

func parsePath(v []string) ([]common.Address, error) {
	if v == nil {
		return nil, nil
	}
	path := make([]common.Address, 0, len(v))
	for i, s := range v {
		address, err := parseAddress(fmt.Sprintf("swapPath[%d]", i), s)
		if err != nil {
			return nil, err
		}
		path = append(path, address)
	}
	return path, nil
}

func parseStrategy(v string) (shared.SwapPathStrategy, error) {
	for _, s := range []shared.SwapPathStrategy{
		shared.SwapPathStrategyBestOutput,
		shared.SwapPathStrategyShortestPath,
		shared.SwapPathStrategyHighestLiquidity,
	} {
		if v == "" || v == s.String() {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", v)
}

func parseLeverageStrategy(v string) (shared.LeverageStrategy, error) {
	switch v {
	case "", "collateral":
		return shared.LeverageByCollateral, nil
	case "size":
		return shared.LeverageBySize, nil
	case "independent":
		return shared.LeverageIndependent, nil
	default:
		return 0, fmt.Errorf("unknown leverage strategy %q", v)
	}
}

func pathDTO(stats *shared.SwapPathStats) *SwapPathDTO {
	if stats == nil {
		return nil
	}
	markets := make([]string, 0, len(stats.SwapPath))
	for _, m := range stats.SwapPath {
		markets = append(markets, m.Hex())
	}
	return &SwapPathDTO{
		Markets:        markets,
		TotalFeeUsd:    str(stats.TotalSwapFeeUsd),
		TotalImpactUsd: str(stats.TotalSwapPriceImpactUsd),
		LiquidityUsd:   str(stats.LiquidityUsd),
		FeeDisplay:     decimal_math.FormatUsd(stats.TotalSwapFeeUsd),
		Executable:     stats.Ok(),
	}
}
