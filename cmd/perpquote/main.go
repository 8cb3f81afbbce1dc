// perpquote prices a single swap or position order against a snapshot file and prints
// the result.
//
//	perpquote -snapshot markets.json swap -from WETH -to USDC -amount 1.5
//	perpquote -snapshot markets.json increase -market 0x... -pay USDC -collateral USDC -long -amount 100 -leverage 10
//	perpquote -snapshot markets.json decrease -account 0x... -market 0x... -collateral USDC -long -size 500
package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	perpdex "github.com/krazyTry/perpdex-go"
	"github.com/krazyTry/perpdex-go/config"
	"github.com/krazyTry/perpdex-go/decimal_math"
	"github.com/krazyTry/perpdex-go/position"
	"github.com/krazyTry/perpdex-go/shared"
	"github.com/krazyTry/perpdex-go/snapshot"
)

func main() {
	snapshotPath := flag.String("snapshot", "", "market snapshot JSON file")
	chainID := flag.Uint64("chain", uint64(config.ChainArbitrum), "chain id of the protocol configuration")
	verbose := flag.Bool("v", false, "log why a quote could not be priced")
	flag.Usage = usage
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *snapshotPath == "" || flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cfg, err := config.ForChain(config.ChainID(*chainID))
	if err != nil {
		log.Fatal().Err(err).Msg("Unknown chain")
	}
	snap, err := snapshot.Load(*snapshotPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *snapshotPath).Msg("Failed to load snapshot")
	}
	engine := perpdex.NewEngine(cfg, perpdex.WithLogger(log.Logger))

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "swap":
		err = runSwap(engine, snap, args)
	case "increase":
		err = runIncrease(engine, snap, args)
	case "decrease":
		err = runDecrease(engine, snap, args)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s -snapshot FILE [-chain ID] [-v] swap|increase|decrease [flags]\n", os.Args[0])
	flag.PrintDefaults()
}

func runSwap(engine *perpdex.Engine, snap *snapshot.Snapshot, args []string) error {
	fs := flag.NewFlagSet("swap", flag.ExitOnError)
	from := fs.String("from", "", "token to pay, symbol or address")
	to := fs.String("to", "", "token to receive, symbol or address")
	amount := fs.String("amount", "", "amount of -from to pay")
	amountOut := fs.String("out", "", "amount of -to to receive, instead of -amount")
	slippage := fs.Int64("slippage", 50, "slippage tolerance in basis points")
	strategy := fs.String("strategy", shared.SwapPathStrategyBestOutput.String(), "best-output, shortest-path or highest-liquidity")
	fs.Parse(args)

	tokenIn, err := findToken(snap, *from)
	if err != nil {
		return err
	}
	tokenOut, err := findToken(snap, *to)
	if err != nil {
		return err
	}
	if (*amount == "") == (*amountOut == "") {
		return fmt.Errorf("exactly one of -amount and -out is required")
	}

	var amounts *shared.SwapAmounts
	if *amount != "" {
		amountIn, err := parseAmount(*amount, tokenIn.Decimals)
		if err != nil {
			return err
		}
		var path []common.Address
		if !tokenIn.IsEquivalent(tokenOut) {
			s, err := parseStrategy(*strategy)
			if err != nil {
				return err
			}
			stats := engine.FindSwapPath(snap.Info, tokenIn, tokenOut, amountIn, s, nil)
			if stats == nil {
				return fmt.Errorf("no swap path from %s to %s", tokenIn.Symbol, tokenOut.Symbol)
			}
			path = stats.SwapPath
		}
		amounts = engine.GetSwapAmountsByFromValue(snap.Info, tokenIn, tokenOut, amountIn, path, big.NewInt(*slippage))
	} else {
		out, err := parseAmount(*amountOut, tokenOut.Decimals)
		if err != nil {
			return err
		}
		amounts = engine.GetSwapAmountsByToValue(snap.Info, tokenIn, tokenOut, out, nil, big.NewInt(*slippage))
	}
	if amounts == nil {
		return fmt.Errorf("cannot quote %s -> %s", tokenIn.Symbol, tokenOut.Symbol)
	}

	fmt.Printf("pay      %s (%s)\n", decimal_math.FormatAmount(amounts.AmountIn, tokenIn.Decimals, tokenIn.Symbol, 6), decimal_math.FormatUsd(amounts.UsdIn))
	fmt.Printf("receive  %s (%s)\n", decimal_math.FormatAmount(amounts.AmountOut, tokenOut.Decimals, tokenOut.Symbol, 6), decimal_math.FormatUsd(amounts.UsdOut))
	fmt.Printf("minimum  %s\n", decimal_math.FormatAmount(amounts.MinOutputAmount, tokenOut.Decimals, tokenOut.Symbol, 6))
	printPath(amounts.SwapPathStats)
	return nil
}

func runIncrease(engine *perpdex.Engine, snap *snapshot.Snapshot, args []string) error {
	fs := flag.NewFlagSet("increase", flag.ExitOnError)
	marketFlag := fs.String("market", "", "market address")
	pay := fs.String("pay", "", "token to pay, symbol or address")
	collateral := fs.String("collateral", "", "collateral token, symbol or address")
	isLong := fs.Bool("long", false, "open a long; short otherwise")
	amount := fs.String("amount", "", "amount of -pay")
	indexAmount := fs.String("size", "", "position size in index tokens")
	leverage := fs.String("leverage", "", "leverage, e.g. 10 or 2.5")
	trigger := fs.String("trigger", "", "limit trigger price in USD")
	account := fs.String("account", "", "account whose snapshot position is increased")
	fs.Parse(args)

	market, err := findMarket(snap, *marketFlag)
	if err != nil {
		return err
	}
	p := position.IncreaseParams{Info: snap.Info, Market: market, IsLong: *isLong, Now: time.Now().Unix()}
	var ok bool
	if p.IndexToken, ok = snap.Info.Token(market.IndexToken); !ok {
		return fmt.Errorf("market %s: unknown index token", market.Address.Hex())
	}
	if p.InitialCollateralToken, err = findToken(snap, *pay); err != nil {
		return err
	}
	if p.CollateralToken, err = findToken(snap, *collateral); err != nil {
		return err
	}
	if *amount != "" {
		if p.InitialCollateralAmount, err = parseAmount(*amount, p.InitialCollateralToken.Decimals); err != nil {
			return err
		}
	}
	if *indexAmount != "" {
		if p.IndexTokenAmount, err = parseAmount(*indexAmount, p.IndexToken.Decimals); err != nil {
			return err
		}
	}
	if *leverage != "" {
		// Leverage is typed as a multiple and carried in basis points.
		if p.Leverage, err = parseAmount(*leverage, 4); err != nil {
			return err
		}
	}
	if *trigger != "" {
		if p.TriggerPrice, err = parseAmount(*trigger, shared.UsdDecimals); err != nil {
			return err
		}
	}
	switch {
	case p.InitialCollateralAmount != nil && p.IndexTokenAmount != nil:
		p.Strategy = shared.LeverageIndependent
	case p.IndexTokenAmount != nil:
		p.Strategy = shared.LeverageBySize
	default:
		p.Strategy = shared.LeverageByCollateral
	}
	if *account != "" {
		if !common.IsHexAddress(*account) {
			return fmt.Errorf("invalid account %q", *account)
		}
		p.Position, _ = snap.Position(common.HexToAddress(*account), market.Address, p.CollateralToken.Address, *isLong)
	}

	a := engine.GetIncreasePositionAmounts(p)
	if a == nil {
		return fmt.Errorf("cannot price increase")
	}
	fmt.Printf("pay          %s\n", decimal_math.FormatAmount(a.InitialCollateralAmount, p.InitialCollateralToken.Decimals, p.InitialCollateralToken.Symbol, 6))
	fmt.Printf("collateral   %s (%s)\n", decimal_math.FormatAmount(a.CollateralAmount, p.CollateralToken.Decimals, p.CollateralToken.Symbol, 6), decimal_math.FormatUsd(a.CollateralUsd))
	fmt.Printf("size         %s (%s)\n", decimal_math.FormatUsd(a.SizeDeltaUsd), decimal_math.FormatAmount(a.SizeDeltaInTokens, p.IndexToken.Decimals, p.IndexToken.Symbol, 6))
	fmt.Printf("entry        %s, acceptable %s\n", decimal_math.FormatUsd(a.ExecutionPrice), decimal_math.FormatUsd(a.AcceptablePrice))
	fmt.Printf("impact       %s\n", decimal_math.FormatUsd(a.PriceImpactUsd))
	fmt.Printf("fees         position %s, funding %s\n", decimal_math.FormatUsd(a.PositionFeeUsd), decimal_math.FormatUsd(a.FundingFeeUsd))
	fmt.Printf("leverage     %s\n", decimal_math.FormatLeverage(a.NextLeverage))
	fmt.Printf("liquidation  %s\n", decimal_math.FormatUsd(a.NextLiquidationPrice))
	printPath(a.SwapPathStats)
	return nil
}

func runDecrease(engine *perpdex.Engine, snap *snapshot.Snapshot, args []string) error {
	fs := flag.NewFlagSet("decrease", flag.ExitOnError)
	account := fs.String("account", "", "position owner")
	marketFlag := fs.String("market", "", "market address")
	collateral := fs.String("collateral", "", "collateral token, symbol or address")
	isLong := fs.Bool("long", false, "the position is a long")
	size := fs.String("size", "", "size to close in USD")
	withdraw := fs.String("withdraw", "", "collateral to withdraw in USD")
	keepLeverage := fs.Bool("keep-leverage", false, "release collateral in proportion to the size closed")
	full := fs.Bool("close", false, "close the whole position")
	receive := fs.String("receive", "", "token to receive, symbol or address")
	slippage := fs.Int64("slippage", 50, "slippage tolerance in basis points for the receive swap")
	fs.Parse(args)

	market, err := findMarket(snap, *marketFlag)
	if err != nil {
		return err
	}
	if !common.IsHexAddress(*account) {
		return fmt.Errorf("invalid account %q", *account)
	}
	p := position.DecreaseParams{
		Info:         snap.Info,
		Market:       market,
		SlippageBps:  big.NewInt(*slippage),
		KeepLeverage: *keepLeverage,
		IsFullClose:  *full,
		Now:          time.Now().Unix(),
	}
	var ok bool
	if p.IndexToken, ok = snap.Info.Token(market.IndexToken); !ok {
		return fmt.Errorf("market %s: unknown index token", market.Address.Hex())
	}
	if p.CollateralToken, err = findToken(snap, *collateral); err != nil {
		return err
	}
	if p.Position, ok = snap.Position(common.HexToAddress(*account), market.Address, p.CollateralToken.Address, *isLong); !ok {
		return fmt.Errorf("no position for %s", *account)
	}
	if *receive != "" {
		if p.ReceiveToken, err = findToken(snap, *receive); err != nil {
			return err
		}
	}
	if *size != "" {
		if p.SizeDeltaUsd, err = parseAmount(*size, shared.UsdDecimals); err != nil {
			return err
		}
	}
	if *withdraw != "" {
		if p.CollateralDeltaUsd, err = parseAmount(*withdraw, shared.UsdDecimals); err != nil {
			return err
		}
	}

	a := engine.GetDecreasePositionAmounts(p)
	if a == nil {
		return fmt.Errorf("cannot price decrease")
	}
	receiveToken, _ := snap.Info.Token(a.ReceiveToken)
	if receiveToken == nil {
		receiveToken = p.CollateralToken
	}
	fmt.Printf("close        %s\n", decimal_math.FormatUsd(a.SizeDeltaUsd))
	fmt.Printf("exit         %s, acceptable %s\n", decimal_math.FormatUsd(a.ExecutionPrice), decimal_math.FormatUsd(a.AcceptablePrice))
	fmt.Printf("realized     %s\n", decimal_math.FormatUsd(a.RealizedPnlUsd))
	fmt.Printf("fees         position %s, funding %s\n", decimal_math.FormatUsd(a.PositionFeeUsd), decimal_math.FormatUsd(a.FundingFeeUsd))
	fmt.Printf("receive      %s (%s)\n", decimal_math.FormatAmount(a.ReceiveAmount, receiveToken.Decimals, receiveToken.Symbol, 6), decimal_math.FormatUsd(a.ReceiveUsd))
	if !a.IsFullClose {
		fmt.Printf("remaining    %s, collateral %s, leverage %s\n", decimal_math.FormatUsd(a.NextSizeUsd), decimal_math.FormatUsd(a.NextCollateralUsd), decimal_math.FormatLeverage(a.NextLeverage))
		fmt.Printf("liquidation  %s\n", decimal_math.FormatUsd(a.NextLiquidationPrice))
	}
	printPath(a.SwapPathStats)
	return nil
}

func printPath(stats *shared.SwapPathStats) {
	if stats == nil {
		return
	}
	markets := make([]string, 0, len(stats.SwapPath))
	for _, m := range stats.SwapPath {
		markets = append(markets, m.Hex())
	}
	fmt.Printf("path         %s\n", strings.Join(markets, " -> "))
	fmt.Printf("swap fees    %s, impact %s\n", decimal_math.FormatUsd(stats.TotalSwapFeeUsd), decimal_math.FormatUsd(stats.TotalSwapPriceImpactUsd))
	if !stats.Ok() {
		fmt.Println("warning      a hop lacks liquidity or capacity")
	}
}

// findToken resolves a token by address or case-insensitive symbol.
func findToken(snap *snapshot.Snapshot, v string) (*shared.Token, error) {
	if common.IsHexAddress(v) {
		if t, ok := snap.Info.Token(common.HexToAddress(v)); ok {
			return t, nil
		}
		return nil, fmt.Errorf("unknown token %s", v)
	}
	for _, t := range snap.Info.Tokens {
		if strings.EqualFold(t.Symbol, v) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unknown token %q", v)
}

func findMarket(snap *snapshot.Snapshot, v string) (*shared.Market, error) {
	if !common.IsHexAddress(v) {
		return nil, fmt.Errorf("invalid market address %q", v)
	}
	m, ok := snap.Info.Market(common.HexToAddress(v))
	if !ok {
		return nil, fmt.Errorf("unknown market %s", v)
	}
	return m, nil
}

// parseAmount reads a human decimal such as "1.25" into base units.
func parseAmount(v string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", v, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", v)
	}
	return decimal_math.FromDecimal(d, int32(decimals)), nil
}

func parseStrategy(v string) (shared.SwapPathStrategy, error) {
	for _, s := range []shared.SwapPathStrategy{
		shared.SwapPathStrategyBestOutput,
		shared.SwapPathStrategyShortestPath,
		shared.SwapPathStrategyHighestLiquidity,
	} {
		if v == s.String() {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", v)
}
