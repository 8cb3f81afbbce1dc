package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Env is the process configuration of the perpdex binaries.
type Env struct {
	ChainID      uint64 `envconfig:"CHAIN_ID" default:"42161"`
	SnapshotPath string `envconfig:"SNAPSHOT" required:"true"`
	ListenAddr   string `envconfig:"LISTEN_ADDR" default:":8080"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	// Overrides of the chain table; negative means "keep the chain default".
	MaxSwapPathLength int   `envconfig:"MAX_SWAP_PATH_LENGTH" default:"-1"`
	MinProfitTime     int64 `envconfig:"MIN_PROFIT_TIME" default:"-1"`
	MinProfitBps      int64 `envconfig:"MIN_PROFIT_BPS" default:"-1"`
}

// Validate rejects out-of-range overrides.
func (e *Env) Validate() error {
	if e.MaxSwapPathLength == 0 || e.MaxSwapPathLength > 5 {
		return fmt.Errorf("MAX_SWAP_PATH_LENGTH must be between 1 and 5, got %d", e.MaxSwapPathLength)
	}
	if e.MinProfitBps > 10_000 {
		return fmt.Errorf("MIN_PROFIT_BPS must not exceed 10000, got %d", e.MinProfitBps)
	}
	if e.SnapshotPath == "" {
		return errors.New("SNAPSHOT must be set")
	}
	return nil
}

// Config resolves the chain table for e.ChainID and applies the overrides.
func (e *Env) Config() (Config, error) {
	cfg, err := ForChain(ChainID(e.ChainID))
	if err != nil {
		return Config{}, err
	}
	if e.MaxSwapPathLength > 0 {
		cfg.MaxSwapPathLength = e.MaxSwapPathLength
	}
	if e.MinProfitTime >= 0 {
		cfg.MinProfitTime = e.MinProfitTime
	}
	if e.MinProfitBps >= 0 {
		cfg.MinProfitBps = big.NewInt(e.MinProfitBps)
	}
	return cfg, nil
}

// LoadEnv reads an optional .env file, then PERPDEX_* variables.
func LoadEnv() (*Env, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var env Env
	if err := envconfig.Process("perpdex", &env); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("validate env: %w", err)
	}
	return &env, nil
}
