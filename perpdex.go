package perpdex

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/krazyTry/perpdex-go/config"
	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/pnl"
	"github.com/krazyTry/perpdex-go/position"
	"github.com/krazyTry/perpdex-go/router"
	"github.com/krazyTry/perpdex-go/shared"
	"github.com/krazyTry/perpdex-go/swap"
)

// Engine binds a protocol configuration to the calculators. It holds no market state:
// every call takes the snapshot it prices against, so an Engine is safe for concurrent use.
//
// Example:
//
// engine := perpdex.NewEngine(config.MustForChain(config.ChainArbitrum), perpdex.WithLogger(log.Logger))
//
// amounts := engine.GetSwapAmountsByFromValue(snap.Info, eth, usdc, amountIn, nil, big.NewInt(50))
type Engine struct {
	cfg    config.Config
	logger zerolog.Logger
}

func NewEngine(cfg config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		logger: zerolog.Nop(),
	}
	for _, fn := range opts {
		fn(e)
	}
	return e
}

type Option func(*Engine)

// WithLogger sets the logger that reports quotes the engine cannot price.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func (e *Engine) Config() config.Config {
	return e.cfg
}

// Settings returns the position calculator parameters derived from the configuration.
func (e *Engine) Settings() position.Settings {
	return position.Settings{
		Fees:      e.feeParams(),
		SwapFees:  e.cfg.SwapFees(),
		MinProfit: pnl.MinProfitRule{Time: e.cfg.MinProfitTime, Bps: e.cfg.MinProfitBps},

		AcceptablePriceImpactBufferBps: e.cfg.AcceptablePriceImpactBufferBps,
		WrappedToken:                   e.cfg.WrappedToken,
	}
}

func (e *Engine) feeParams() pnl.FeeParams {
	return pnl.FeeParams{
		MarginFeeBps:         e.cfg.MarginFeeBps,
		LiquidationFeeUsd:    e.cfg.LiquidationFeeUsd,
		MaxLeverage:          e.cfg.MaxLeverage,
		FundingRatePrecision: e.cfg.FundingRatePrecision,
	}
}

// FindSwapPath returns the best path for amountIn of from into to under strategy, skipping
// the markets in disabled.
func (e *Engine) FindSwapPath(info *shared.MarketsInfo, from, to *shared.Token, amountIn *big.Int, strategy shared.SwapPathStrategy, disabled map[common.Address]bool) *shared.SwapPathStats {
	constraints := router.Constraints{
		MaxHops:         e.cfg.MaxSwapPathLength,
		DisabledMarkets: disabled,
		Strategy:        strategy,
	}
	stats := router.FindSwapPath(info, from, to, amountIn, constraints, e.cfg.SwapFees(), e.cfg.WrappedToken)
	if stats == nil {
		e.logger.Debug().
			Str("from", symbol(from)).
			Str("to", symbol(to)).
			Int("maxHops", e.cfg.MaxSwapPathLength).
			Stringer("strategy", strategy).
			Msg("no swap path")
	}
	return stats
}

// GetSwapAmountsByFromValue quotes amountIn of from into to. A nil swapPath is routed
// with the best-output strategy.
func (e *Engine) GetSwapAmountsByFromValue(info *shared.MarketsInfo, from, to *shared.Token, amountIn *big.Int, swapPath []common.Address, slippageBps *big.Int) *shared.SwapAmounts {
	if swapPath == nil && !from.IsEquivalent(to) {
		stats := e.FindSwapPath(info, from, to, amountIn, shared.SwapPathStrategyBestOutput, nil)
		if stats == nil {
			return nil
		}
		swapPath = stats.SwapPath
	}
	amounts := swap.GetSwapAmountsByFromValue(info, from, to, amountIn, swapPath, slippageBps, e.cfg.SwapFees(), e.cfg.WrappedToken)
	if amounts == nil {
		e.logger.Debug().Str("from", symbol(from)).Str("to", symbol(to)).Int("hops", len(swapPath)).Msg("cannot quote swap by input")
	}
	return amounts
}

// GetSwapAmountsByToValue finds the input of from needed to receive amountOut of to. A nil
// swapPath is routed at the fee-free input estimate.
func (e *Engine) GetSwapAmountsByToValue(info *shared.MarketsInfo, from, to *shared.Token, amountOut *big.Int, swapPath []common.Address, slippageBps *big.Int) *shared.SwapAmounts {
	if swapPath == nil && !from.IsEquivalent(to) {
		if !from.HasPrices() || !to.HasPrices() || amountOut == nil {
			return nil
		}
		estimate := math.ConvertTokenAmount(amountOut, to.Decimals, to.Prices.MaxPrice, from.Decimals, from.Prices.MinPrice, shared.RoundingUp)
		stats := e.FindSwapPath(info, from, to, estimate, shared.SwapPathStrategyBestOutput, nil)
		if stats == nil {
			return nil
		}
		swapPath = stats.SwapPath
	}
	amounts := swap.GetSwapAmountsByToValue(info, from, to, amountOut, swapPath, slippageBps, e.cfg.SwapFees(), e.cfg.WrappedToken)
	if amounts == nil {
		e.logger.Debug().Str("from", symbol(from)).Str("to", symbol(to)).Int("hops", len(swapPath)).Msg("cannot quote swap by output")
	}
	return amounts
}

// GetIncreasePositionAmounts prices an increase. When the pay token differs from the
// collateral token and p.SwapPath is nil, the collateral swap is routed first.
func (e *Engine) GetIncreasePositionAmounts(p position.IncreaseParams) *shared.IncreasePositionAmounts {
	if p.SwapPath == nil && !p.InitialCollateralToken.IsEquivalent(p.CollateralToken) {
		amount := p.InitialCollateralAmount
		if !math.IsPositive(amount) {
			amount = e.routingAmount(p.InitialCollateralToken)
		}
		stats := e.FindSwapPath(p.Info, p.InitialCollateralToken, p.CollateralToken, amount, shared.SwapPathStrategyBestOutput, nil)
		if stats == nil {
			return nil
		}
		p.SwapPath = stats.SwapPath
	}
	amounts := position.GetIncreasePositionAmounts(p, e.Settings())
	if amounts == nil {
		e.logger.Debug().
			Str("index", symbol(p.IndexToken)).
			Str("collateral", symbol(p.CollateralToken)).
			Bool("isLong", p.IsLong).
			Uint8("strategy", uint8(p.Strategy)).
			Msg("cannot price increase")
	}
	return amounts
}

// GetDecreasePositionAmounts prices a decrease. A receive token other than the collateral
// token is routed when p.SwapPath is nil.
func (e *Engine) GetDecreasePositionAmounts(p position.DecreaseParams) *shared.DecreasePositionAmounts {
	if p.SwapPath == nil && p.ReceiveToken != nil && !p.ReceiveToken.IsEquivalent(p.CollateralToken) {
		stats := e.FindSwapPath(p.Info, p.CollateralToken, p.ReceiveToken, e.routingAmount(p.CollateralToken), shared.SwapPathStrategyBestOutput, nil)
		if stats == nil {
			return nil
		}
		p.SwapPath = stats.SwapPath
	}
	amounts := position.GetDecreasePositionAmounts(p, e.Settings())
	if amounts == nil {
		e.logger.Debug().
			Str("index", symbol(p.IndexToken)).
			Str("collateral", symbol(p.CollateralToken)).
			Bool("fullClose", p.IsFullClose).
			Bool("keepLeverage", p.KeepLeverage).
			Msg("cannot price decrease")
	}
	return amounts
}

// GetPositionDelta returns the PnL of pos at price under the configured minimum-profit rule.
func (e *Engine) GetPositionDelta(price *big.Int, pos *shared.Position, now int64) *shared.PositionDelta {
	return pnl.GetPositionDelta(price, pos, pnl.MinProfitRule{Time: e.cfg.MinProfitTime, Bps: e.cfg.MinProfitBps}, now)
}

// GetLiquidationPrice returns the liquidation price of p under the configured fees.
func (e *Engine) GetLiquidationPrice(p pnl.PositionParams, discountBps *big.Int) *big.Int {
	fees := e.feeParams()
	fees.DiscountBps = discountBps
	price := pnl.GetLiquidationPrice(p, fees)
	if price == nil {
		e.logger.Debug().Bool("isLong", p.IsLong).Msg("no liquidation price")
	}
	return price
}

// GetLeverage returns the leverage of p in basis points under the configured fees.
func (e *Engine) GetLeverage(p pnl.PositionParams, discountBps *big.Int) *big.Int {
	fees := e.feeParams()
	fees.DiscountBps = discountBps
	return pnl.GetLeverage(p, fees)
}

// routingAmount is one whole token, the size paths are ranked at when no amount is known.
func (e *Engine) routingAmount(token *shared.Token) *big.Int {
	if token == nil {
		return big.NewInt(0)
	}
	return math.Pow10(token.Decimals)
}

func symbol(t *shared.Token) string {
	if t == nil {
		return "<nil>"
	}
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address.Hex()
}
