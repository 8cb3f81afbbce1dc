package server

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perpdex "github.com/krazyTry/perpdex-go"
	"github.com/krazyTry/perpdex-go/config"
	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/shared"
	"github.com/krazyTry/perpdex-go/snapshot"
)

var (
	addrA    = common.HexToAddress("0x000000000000000000000000000000000000000a")
	addrB    = common.HexToAddress("0x000000000000000000000000000000000000000b")
	addrD    = common.HexToAddress("0x000000000000000000000000000000000000000d")
	marketAB = common.HexToAddress("0x0000000000000000000000000000000000000ab0")
	marketDB = common.HexToAddress("0x0000000000000000000000000000000000000db0")
	account  = common.HexToAddress("0x00000000000000000000000000000000000000f1")
)

func usd(n int64) *big.Int {
	return math.Expand(n, shared.UsdDecimals)
}

func token(address common.Address, symbol string, decimals uint8, price int64) *shared.Token {
	return &shared.Token{
		Address:  address,
		Symbol:   symbol,
		Decimals: decimals,
		Prices:   &shared.TokenPrices{MinPrice: usd(price), MaxPrice: usd(price)},
	}
}

// fixture prices A at $2200 against the stable B and holds one long A position opened at
// $2000. D is listed but its only market is disabled.
func fixture() *snapshot.Snapshot {
	a := token(addrA, "A", 18, 2200)
	a.IsWrapped = true
	b := token(addrB, "B", 6, 1)
	b.IsStable = true
	d := token(addrD, "D", 18, 5)

	ab := &shared.Market{
		Address:    marketAB,
		IndexToken: addrA,
		LongToken:  addrA,
		ShortToken: addrB,
		Long:       shared.PoolState{PoolAmount: math.Expand(1000, 18), CumulativeFundingRate: big.NewInt(0)},
		Short:      shared.PoolState{PoolAmount: math.Expand(2_000_000, 6), CumulativeFundingRate: big.NewInt(0)},
	}
	db := &shared.Market{
		Address:    marketDB,
		IndexToken: addrD,
		LongToken:  addrD,
		ShortToken: addrB,
		IsDisabled: true,
		Long:       shared.PoolState{PoolAmount: math.Expand(1000, 18)},
		Short:      shared.PoolState{PoolAmount: math.Expand(1000, 6)},
	}
	return &snapshot.Snapshot{
		ChainID: uint64(config.ChainArbitrum),
		Info: &shared.MarketsInfo{
			Markets: map[common.Address]*shared.Market{marketAB: ab, marketDB: db},
			Tokens:  map[common.Address]*shared.Token{addrA: a, addrB: b, addrD: d},
		},
		Positions: []*shared.Position{{
			Account:          account,
			Market:           marketAB,
			CollateralToken:  addrB,
			IsLong:           true,
			SizeUsd:          usd(10_000),
			SizeInTokens:     math.Expand(5, 18),
			CollateralUsd:    usd(1000),
			AveragePrice:     usd(2000),
			EntryFundingRate: big.NewInt(0),
		}},
	}
}

func newServer(snap *snapshot.Snapshot) http.Handler {
	cfg := config.MustForChain(config.ChainArbitrum)
	cfg.WrappedToken = addrA
	return New(perpdex.NewEngine(cfg), snap, zerolog.Nop()).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(fixture()), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestListMarkets(t *testing.T) {
	rec := do(t, newServer(fixture()), http.MethodGet, "/api/v1/markets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var markets []MarketDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &markets))
	require.Len(t, markets, 2)
	byAddress := map[string]MarketDTO{}
	for _, m := range markets {
		byAddress[m.Address] = m
	}
	assert.Equal(t, addrB.Hex(), byAddress[marketAB.Hex()].ShortToken)
	assert.False(t, byAddress[marketAB.Hex()].IsDisabled)
	assert.True(t, byAddress[marketDB.Hex()].IsDisabled)
}

func TestSwapQuote(t *testing.T) {
	h := newServer(fixture())

	rec := do(t, h, http.MethodPost, "/api/v1/swap/quote", `{
		"from": "`+addrA.Hex()+`",
		"to": "`+addrB.Hex()+`",
		"amountIn": "1000000000000000000",
		"slippageBps": "50"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SwapQuoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// 2200 B less the 25 bps fee.
	assert.Equal(t, "2194500000", resp.AmountOut)
	assert.Equal(t, "2183527500", resp.MinOutputAmount)
	require.NotNil(t, resp.Path)
	assert.Equal(t, []string{marketAB.Hex()}, resp.Path.Markets)
	assert.True(t, resp.Path.Executable)
	assert.Equal(t, "$5.50", resp.Path.FeeDisplay)
}

func TestSwapQuoteByOutput(t *testing.T) {
	rec := do(t, newServer(fixture()), http.MethodPost, "/api/v1/swap/quote", `{
		"from": "`+addrA.Hex()+`",
		"to": "`+addrB.Hex()+`",
		"amountOut": "2194500000",
		"strategy": "shortest-path"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SwapQuoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	in, ok := new(big.Int).SetString(resp.AmountIn, 10)
	require.True(t, ok)
	assert.True(t, in.Cmp(math.Pow10(18)) <= 0)
}

func TestSwapQuoteErrors(t *testing.T) {
	h := newServer(fixture())
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed body", `{"from":`, http.StatusBadRequest},
		{"both amounts", `{"from":"` + addrA.Hex() + `","to":"` + addrB.Hex() + `","amountIn":"1","amountOut":"1"}`, http.StatusBadRequest},
		{"no amount", `{"from":"` + addrA.Hex() + `","to":"` + addrB.Hex() + `"}`, http.StatusBadRequest},
		{"negative amount", `{"from":"` + addrA.Hex() + `","to":"` + addrB.Hex() + `","amountIn":"-1"}`, http.StatusBadRequest},
		{"bad address", `{"from":"nope","to":"` + addrB.Hex() + `","amountIn":"1"}`, http.StatusBadRequest},
		{"unknown strategy", `{"from":"` + addrA.Hex() + `","to":"` + addrB.Hex() + `","amountIn":"1","strategy":"cheapest"}`, http.StatusBadRequest},
		{"unknown token", `{"from":"0x00000000000000000000000000000000000000ee","to":"` + addrB.Hex() + `","amountIn":"1"}`, http.StatusNotFound},
		{"no route", `{"from":"` + addrD.Hex() + `","to":"` + addrB.Hex() + `","amountIn":"1000000000000000000"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/swap/quote", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestNoSnapshot(t *testing.T) {
	h := newServer(nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/api/v1/markets", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodPost, "/api/v1/swap/quote", `{}`).Code)
}

func TestSetSnapshot(t *testing.T) {
	cfg := config.MustForChain(config.ChainArbitrum)
	s := New(perpdex.NewEngine(cfg), nil, zerolog.Nop())
	h := s.Routes()
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/api/v1/markets", "").Code)

	s.SetSnapshot(fixture())
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/markets", "").Code)
}

func TestIncreaseQuote(t *testing.T) {
	rec := do(t, newServer(fixture()), http.MethodPost, "/api/v1/positions/increase", `{
		"market": "`+marketAB.Hex()+`",
		"payToken": "`+addrB.Hex()+`",
		"collateralToken": "`+addrB.Hex()+`",
		"isLong": true,
		"strategy": "size",
		"indexAmount": "5000000000000000000",
		"leverage": "100000"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp IncreaseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, usd(11_000).String(), resp.SizeDeltaUsd)
	// 1100 of margin plus the 11 USD fee.
	assert.Equal(t, "1111000000", resp.PayAmount)
	assert.Equal(t, "10.00x", resp.NextLeverageDisplay)
	assert.Nil(t, resp.Path)
}

func TestIncreaseQuoteErrors(t *testing.T) {
	h := newServer(fixture())

	unknownMarket := do(t, h, http.MethodPost, "/api/v1/positions/increase",
		`{"market":"0x0000000000000000000000000000000000000fff","payToken":"`+addrB.Hex()+`","collateralToken":"`+addrB.Hex()+`"}`)
	assert.Equal(t, http.StatusNotFound, unknownMarket.Code)

	badStrategy := do(t, h, http.MethodPost, "/api/v1/positions/increase",
		`{"market":"`+marketAB.Hex()+`","payToken":"`+addrB.Hex()+`","collateralToken":"`+addrB.Hex()+`","strategy":"all-in"}`)
	assert.Equal(t, http.StatusBadRequest, badStrategy.Code)

	// 150x is above the configured maximum.
	tooLevered := do(t, h, http.MethodPost, "/api/v1/positions/increase",
		`{"market":"`+marketAB.Hex()+`","payToken":"`+addrB.Hex()+`","collateralToken":"`+addrB.Hex()+`","isLong":true,"strategy":"collateral","payAmount":"1000000000","leverage":"1500000"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, tooLevered.Code)
}

func TestDecreaseQuote(t *testing.T) {
	h := newServer(fixture())

	rec := do(t, h, http.MethodPost, "/api/v1/positions/decrease", `{
		"account": "`+account.Hex()+`",
		"market": "`+marketAB.Hex()+`",
		"collateralToken": "`+addrB.Hex()+`",
		"isLong": true,
		"fullClose": true
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DecreaseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// 1000 of collateral, 1000 of profit, less the 10 USD close fee.
	assert.Equal(t, usd(1990).String(), resp.ReceiveUsd)
	assert.Equal(t, addrB.Hex(), resp.ReceiveToken)
	assert.Equal(t, "0", resp.NextSizeUsd)

	missing := do(t, h, http.MethodPost, "/api/v1/positions/decrease", `{
		"account": "`+account.Hex()+`",
		"market": "`+marketAB.Hex()+`",
		"collateralToken": "`+addrB.Hex()+`",
		"isLong": false,
		"fullClose": true
	}`)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestPositionInfo(t *testing.T) {
	rec := do(t, newServer(fixture()), http.MethodPost, "/api/v1/positions/info", `{
		"account": "`+account.Hex()+`",
		"market": "`+marketAB.Hex()+`",
		"collateralToken": "`+addrB.Hex()+`",
		"isLong": true,
		"now": 1700000000
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp PositionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.HasProfit)
	assert.Equal(t, usd(1000).String(), resp.Delta)
	assert.Equal(t, "100.00%", resp.DeltaPercentageDisplay)
	// 10000 of size over 2000 of collateral with profit.
	assert.Equal(t, "50000", resp.Leverage)
	assert.Equal(t, "5.00x", resp.LeverageDisplay)
	assert.NotEmpty(t, resp.LiquidationPrice)
}
