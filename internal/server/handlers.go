package server

import (
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/krazyTry/perpdex-go/decimal_math"
	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/pnl"
	"github.com/krazyTry/perpdex-go/position"
	"github.com/krazyTry/perpdex-go/shared"
	"github.com/krazyTry/perpdex-go/snapshot"
)

const unpriceable = "cannot price this trade with the current snapshot"

// badRequest answers 404 for unknown tokens and 400 for every other input error.
func badRequest(w http.ResponseWriter, kind string, start time.Time, err error) {
	observeQuote(kind, start, "bad_request")
	status := http.StatusBadRequest
	if errors.Is(err, ErrUnknownToken) {
		status = http.StatusNotFound
	}
	writeError(w, err.Error(), status)
}

// SwapQuote handles POST /api/v1/swap/quote.
func (s *Server) SwapQuote(w http.ResponseWriter, r *http.Request) {
	const kind = "swap"
	start := time.Now()

	var req SwapQuoteRequest
	if !decode(w, r, &req) {
		return
	}
	snap := s.snapshot.Load()
	if snap == nil {
		writeError(w, ErrNoSnapshot.Error(), http.StatusServiceUnavailable)
		return
	}

	from, err := s.token(snap, "from", req.From)
	if err != nil {
		badRequest(w, kind, start, err)
		return
	}
	to, err := s.token(snap, "to", req.To)
	if err != nil {
		badRequest(w, kind, start, err)
		return
	}
	amountIn, err := optionalBig("amountIn", req.AmountIn)
	if err != nil {
		badRequest(w, kind, start, err)
		return
	}
	amountOut, err := optionalBig("amountOut", req.AmountOut)
	if err != nil {
		badRequest(w, kind, start, err)
		return
	}
	if (amountIn == nil) == (amountOut == nil) {
		badRequest(w, kind, start, errors.New("exactly one of amountIn and amountOut is required"))
		return
	}
	slippage, err := optionalBig("slippageBps", req.SlippageBps)
	if err != nil {
		badRequest(w, kind, start, err)
		return
	}
	swapPath, err := parsePath(req.SwapPath)
	if err != nil {
		badRequest(w, kind, start, err)
		return
	}
	strategy, err := parseStrategy(req.Strategy)
	if err != nil {
		badRequest(w, kind, start, err)
		return
	}

	if swapPath == nil && !from.IsEquivalent(to) {
		routeAmount := amountIn
		if routeAmount == nil {
			routeAmount = big.NewInt(0)
			if from.HasPrices() && to.HasPrices() {
				routeAmount = convertEstimate(amountOut, to, from)
			}
		}
		stats := s.engine.FindSwapPath(snap.Info, from, to, routeAmount, strategy, nil)
		if stats == nil {
			observeQuote(kind, start, "unpriceable")
			writeError(w, unpriceable, http.StatusUnprocessableEntity)
			return
		}
		swapPath = stats.SwapPath
		SwapPathHops.Observe(float64(len(swapPath)))
	}

	var amounts *shared.SwapAmounts
	if amountIn != nil {
		amounts = s.engine.GetSwapAmountsByFromValue(snap.Info, from, to, amountIn, swapPath, slippage)
	} else {
		amounts = s.engine.GetSwapAmountsByToValue(snap.Info, from, to, amountOut, swapPath, slippage)
	}
	if amounts == nil {
		observeQuote(kind, start, "unpriceable")
		writeError(w, unpriceable, http.StatusUnprocessableEntity)
		return
	}

	observeQuote(kind, start, "ok")
	writeJSON(w, SwapQuoteResponse{
		AmountIn:        str(amounts.AmountIn),
		AmountOut:       str(amounts.AmountOut),
		MinOutputAmount: str(amounts.MinOutputAmount),
		UsdIn:           str(amounts.UsdIn),
		UsdOut:          str(amounts.UsdOut),
		UsdOutDisplay:   decimal_math.FormatUsd(amounts.UsdOut),
		Path:            pathDTO(amounts.SwapPathStats),
	})
}

// IncreaseQuote handles POST /api/v1/positions/increase.
func (s *Server) IncreaseQuote(w http.ResponseWriter, r *http.Request) {
	const kind = "increase"
	start := time.Now()

	var req IncreaseRequest
	if !decode(w, r, &req) {
		return
	}
	snap := s.snapshot.Load()
	if snap == nil {
		writeError(w, ErrNoSnapshot.Error(), http.StatusServiceUnavailable)
		return
	}

	p := position.IncreaseParams{Info: snap.Info, IsLong: req.IsLong, Now: req.Now}
	marketAddress, err := parseAddress("market", req.Market)
	if err != nil {
		badRequest(w, kind, start, err)
		return
	}
	market, ok := snap.Info.Market(marketAddress)
	if !ok {
		writeError(w, "unknown market", http.StatusNotFound)
		return
	}
	p.Market = market
	if p.IndexToken, ok = snap.Info.Token(market.IndexToken); !ok {
		writeError(w, "unknown index token", http.StatusNotFound)
		return
	}
	if p.InitialCollateralToken, err = s.token(snap, "payToken", req.PayToken); err != nil {
		badRequest(w, kind, start, err)
		return
	}
	if p.CollateralToken, err = s.token(snap, "collateralToken", req.CollateralToken); err != nil {
		badRequest(w, kind, start, err)
		return
	}
	if p.Strategy, err = parseLeverageStrategy(req.Strategy); err != nil {
		badRequest(w, kind, start, err)
		return
	}

	scalars := []struct {
		name   string
		value  string
		target **big.Int
	}{
		{"payAmount", req.PayAmount, &p.InitialCollateralAmount},
		{"indexAmount", req.IndexAmount, &p.IndexTokenAmount},
		{"leverage", req.Leverage, &p.Leverage},
		{"triggerPrice", req.TriggerPrice, &p.TriggerPrice},
		{"acceptableImpactBps", req.AcceptableImpact, &p.FixedAcceptablePriceImpactBps},
		{"discountBps", req.DiscountBps, &p.DiscountBps},
	}
	for _, sc := range scalars {
		if *sc.target, err = optionalBig(sc.name, sc.value); err != nil {
			badRequest(w, kind, start, err)
			return
		}
	}
	if p.SwapPath, err = parsePath(req.SwapPath); err != nil {
		badRequest(w, kind, start, err)
		return
	}
	if req.Account != "" {
		account, err := parseAddress("account", req.Account)
		if err != nil {
			badRequest(w, kind, start, err)
			return
		}
		p.Position, _ = snap.Position(account, market.Address, p.CollateralToken.Address, req.IsLong)
	}

	a := s.engine.GetIncreasePositionAmounts(p)
	if a == nil {
		observeQuote(kind, start, "unpriceable")
		writeError(w, unpriceable, http.StatusUnprocessableEntity)
		return
	}

	observeQuote(kind, start, "ok")
	writeJSON(w, IncreaseResponse{
		PayAmount:            str(a.InitialCollateralAmount),
		CollateralAmount:     str(a.CollateralAmount),
		CollateralUsd:        str(a.CollateralUsd),
		SizeDeltaUsd:         str(a.SizeDeltaUsd),
		SizeDeltaInTokens:    str(a.SizeDeltaInTokens),
		ExecutionPrice:       str(a.ExecutionPrice),
		AcceptablePrice:      str(a.AcceptablePrice),
		PriceImpactUsd:       str(a.PriceImpactUsd),
		PositionFeeUsd:       str(a.PositionFeeUsd),
		DiscountUsd:          str(a.DiscountUsd),
		FundingFeeUsd:        str(a.FundingFeeUsd),
		NextSizeUsd:          str(a.NextSizeUsd),
		NextCollateralUsd:    str(a.NextCollateralUsd),
		NextAveragePrice:     str(a.NextAveragePrice),
		NextLeverage:         str(a.NextLeverage),
		NextLeverageDisplay:  decimal_math.FormatLeverage(a.NextLeverage),
		NextLiquidationPrice: str(a.NextLiquidationPrice),
		Path:                 pathDTO(a.SwapPathStats),
	})
}

// DecreaseQuote handles POST /api/v1/positions/decrease.
func (s *Server) DecreaseQuote(w http.ResponseWriter, r *http.Request) {
	const kind = "decrease"
	start := time.Now()

	var req DecreaseRequest
	if !decode(w, r, &req) {
		return
	}
	snap := s.snapshot.Load()
	if snap == nil {
		writeError(w, ErrNoSnapshot.Error(), http.StatusServiceUnavailable)
		return
	}

	p := position.DecreaseParams{
		Info:         snap.Info,
		KeepLeverage: req.KeepLeverage,
		IsFullClose:  req.FullClose,
		Now:          req.Now,
	}
	pos, ok := s.position(w, snap, kind, start, req.Account, req.Market, req.CollateralToken, req.IsLong)
	if !ok {
		return
	}
	p.Position = pos
	p.Market, _ = snap.Info.Market(pos.Market)
	p.CollateralToken, _ = snap.Info.Token(pos.CollateralToken)
	if p.IndexToken, ok = snap.Info.Token(p.Market.IndexToken); !ok {
		writeError(w, "unknown index token", http.StatusNotFound)
		return
	}

	var err error
	if req.ReceiveToken != "" {
		if p.ReceiveToken, err = s.token(snap, "receiveToken", req.ReceiveToken); err != nil {
			badRequest(w, kind, start, err)
			return
		}
	}
	scalars := []struct {
		name   string
		value  string
		target **big.Int
	}{
		{"sizeDeltaUsd", req.SizeDeltaUsd, &p.SizeDeltaUsd},
		{"collateralDeltaUsd", req.CollateralDelta, &p.CollateralDeltaUsd},
		{"slippageBps", req.SlippageBps, &p.SlippageBps},
		{"triggerPrice", req.TriggerPrice, &p.TriggerPrice},
		{"acceptableImpactBps", req.AcceptableImpact, &p.FixedAcceptablePriceImpactBps},
		{"discountBps", req.DiscountBps, &p.DiscountBps},
	}
	for _, sc := range scalars {
		if *sc.target, err = optionalBig(sc.name, sc.value); err != nil {
			badRequest(w, kind, start, err)
			return
		}
	}
	if p.SwapPath, err = parsePath(req.SwapPath); err != nil {
		badRequest(w, kind, start, err)
		return
	}

	a := s.engine.GetDecreasePositionAmounts(p)
	if a == nil {
		observeQuote(kind, start, "unpriceable")
		writeError(w, unpriceable, http.StatusUnprocessableEntity)
		return
	}

	observeQuote(kind, start, "ok")
	writeJSON(w, DecreaseResponse{
		SizeDeltaUsd:         str(a.SizeDeltaUsd),
		SizeDeltaInTokens:    str(a.SizeDeltaInTokens),
		ExecutionPrice:       str(a.ExecutionPrice),
		AcceptablePrice:      str(a.AcceptablePrice),
		PriceImpactUsd:       str(a.PriceImpactUsd),
		RealizedPnlUsd:       str(a.RealizedPnlUsd),
		CollateralDeltaUsd:   str(a.CollateralDeltaUsd),
		PositionFeeUsd:       str(a.PositionFeeUsd),
		FundingFeeUsd:        str(a.FundingFeeUsd),
		ReceiveToken:         a.ReceiveToken.Hex(),
		ReceiveAmount:        str(a.ReceiveAmount),
		ReceiveUsd:           str(a.ReceiveUsd),
		NextSizeUsd:          str(a.NextSizeUsd),
		NextCollateralUsd:    str(a.NextCollateralUsd),
		NextLeverage:         str(a.NextLeverage),
		NextLiquidationPrice: str(a.NextLiquidationPrice),
		Path:                 pathDTO(a.SwapPathStats),
	})
}

// PositionInfo handles POST /api/v1/positions/info: PnL, leverage and liquidation price
// of a position in the snapshot.
func (s *Server) PositionInfo(w http.ResponseWriter, r *http.Request) {
	const kind = "position"
	start := time.Now()

	var req PositionRequest
	if !decode(w, r, &req) {
		return
	}
	snap := s.snapshot.Load()
	if snap == nil {
		writeError(w, ErrNoSnapshot.Error(), http.StatusServiceUnavailable)
		return
	}
	pos, ok := s.position(w, snap, kind, start, req.Account, req.Market, req.CollateralToken, req.IsLong)
	if !ok {
		return
	}
	discount, err := optionalBig("discountBps", req.DiscountBps)
	if err != nil {
		badRequest(w, kind, start, err)
		return
	}

	market, _ := snap.Info.Market(pos.Market)
	index, ok := snap.Info.Token(market.IndexToken)
	if !ok || !index.HasPrices() {
		observeQuote(kind, start, "unpriceable")
		writeError(w, unpriceable, http.StatusUnprocessableEntity)
		return
	}
	now := req.Now
	if now == 0 {
		now = time.Now().Unix()
	}

	markPrice := position.GetMarkPrice(index.Prices, false, pos.IsLong)
	delta := s.engine.GetPositionDelta(markPrice, pos, now)
	if delta == nil {
		observeQuote(kind, start, "unpriceable")
		writeError(w, unpriceable, http.StatusUnprocessableEntity)
		return
	}

	var cumulative *big.Int
	if pool, ok := market.Pool(pos.CollateralToken); ok {
		cumulative = pool.CumulativeFundingRate
	}
	params := pnl.PositionParams{
		IsLong:                pos.IsLong,
		Size:                  pos.SizeUsd,
		Collateral:            pos.CollateralUsd,
		AveragePrice:          pos.AveragePrice,
		EntryFundingRate:      pos.EntryFundingRate,
		CumulativeFundingRate: cumulative,
		Delta:                 delta.Delta,
		HasProfit:             delta.HasProfit,
	}
	liquidationPrice := s.engine.GetLiquidationPrice(params, discount)
	params.IncludeDelta = true
	leverage := s.engine.GetLeverage(params, discount)

	observeQuote(kind, start, "ok")
	writeJSON(w, PositionResponse{
		Delta:                   str(delta.Signed()),
		PendingDelta:            str(delta.PendingDelta),
		HasProfit:               delta.HasProfit,
		DeltaPercentageDisplay:  decimal_math.FormatBps(delta.DeltaPercentage),
		Leverage:                str(leverage),
		LeverageDisplay:         decimal_math.FormatLeverage(leverage),
		LiquidationPrice:        str(liquidationPrice),
		LiquidationPriceDisplay: decimal_math.FormatUsd(liquidationPrice),
	})
}

// position resolves a snapshot position from its request key, answering the error itself.
func (s *Server) position(w http.ResponseWriter, snap *snapshot.Snapshot, kind string, start time.Time, account, market, collateral string, isLong bool) (*shared.Position, bool) {
	accountAddress, err := parseAddress("account", account)
	if err != nil {
		badRequest(w, kind, start, err)
		return nil, false
	}
	marketAddress, err := parseAddress("market", market)
	if err != nil {
		badRequest(w, kind, start, err)
		return nil, false
	}
	collateralAddress, err := parseAddress("collateralToken", collateral)
	if err != nil {
		badRequest(w, kind, start, err)
		return nil, false
	}
	pos, ok := snap.Position(accountAddress, marketAddress, collateralAddress, isLong)
	if !ok {
		observeQuote(kind, start, "bad_request")
		writeError(w, "unknown position", http.StatusNotFound)
		return nil, false
	}
	return pos, true
}

// convertEstimate values amountOut of to in from at oracle prices, fees ignored.
func convertEstimate(amountOut *big.Int, to, from *shared.Token) *big.Int {
	return math.ConvertTokenAmount(amountOut, to.Decimals, to.Prices.MaxPrice, from.Decimals, from.Prices.MinPrice, shared.RoundingUp)
}
