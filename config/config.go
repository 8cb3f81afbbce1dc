package config

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/krazyTry/perpdex-go/math"
	"github.com/krazyTry/perpdex-go/math/pool_fees"
	"github.com/krazyTry/perpdex-go/shared"
)

type ChainID uint64

const (
	ChainArbitrum  ChainID = 42161
	ChainAvalanche ChainID = 43114
)

func (c ChainID) String() string {
	switch c {
	case ChainArbitrum:
		return "arbitrum"
	case ChainAvalanche:
		return "avalanche"
	default:
		return fmt.Sprintf("chain-%d", uint64(c))
	}
}

var ErrUnsupportedChain = errors.New("unsupported chain")

// Config is the protocol configuration a calculation runs against. It is a plain value:
// callers get a fresh copy from ForChain and may override fields before use.
type Config struct {
	ChainID ChainID

	SwapFeeBps       *big.Int
	StableSwapFeeBps *big.Int
	TaxBps           *big.Int
	StableTaxBps     *big.Int

	MarginFeeBps      *big.Int
	LiquidationFeeUsd *big.Int
	// MaxLeverage is in basis points, 100x = 1_000_000.
	MaxLeverage *big.Int

	// MinProfitTime is in seconds. Zero disables the minimum-profit rule.
	MinProfitTime int64
	MinProfitBps  *big.Int

	FundingRatePrecision *big.Int

	MaxSwapPathLength int
	// AcceptablePriceImpactBufferBps is added to the expected impact when no fixed
	// acceptable impact is supplied.
	AcceptablePriceImpactBufferBps *big.Int

	WrappedToken common.Address
}

// SwapFees returns the swap fee schedule of c.
func (c Config) SwapFees() pool_fees.SwapFeeSchedule {
	return pool_fees.SwapFeeSchedule{
		SwapFeeBps:       c.SwapFeeBps,
		StableSwapFeeBps: c.StableSwapFeeBps,
		TaxBps:           c.TaxBps,
		StableTaxBps:     c.StableTaxBps,
	}
}

// ForChain builds the configuration for chainID.
func ForChain(chainID ChainID) (Config, error) {
	cfg := Config{
		ChainID: chainID,

		SwapFeeBps:       big.NewInt(25),
		StableSwapFeeBps: big.NewInt(1),
		TaxBps:           big.NewInt(50),
		StableTaxBps:     big.NewInt(5),

		MarginFeeBps:      big.NewInt(10),
		LiquidationFeeUsd: math.Expand(5, shared.UsdDecimals),
		MaxLeverage:       big.NewInt(100 * shared.BasisPointsDivisor),

		MinProfitTime: 0,
		MinProfitBps:  big.NewInt(0),

		FundingRatePrecision: big.NewInt(1_000_000),

		MaxSwapPathLength:              3,
		AcceptablePriceImpactBufferBps: big.NewInt(30),
	}

	switch chainID {
	case ChainArbitrum:
		cfg.WrappedToken = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	case ChainAvalanche:
		cfg.WrappedToken = common.HexToAddress("0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7")
		cfg.TaxBps = big.NewInt(60)
	default:
		return Config{}, fmt.Errorf("%w: %d", ErrUnsupportedChain, uint64(chainID))
	}
	return cfg, nil
}

// MustForChain is ForChain for chain ids known at compile time.
func MustForChain(chainID ChainID) Config {
	cfg, err := ForChain(chainID)
	if err != nil {
		panic(err)
	}
	return cfg
}
