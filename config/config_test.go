package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForChain(t *testing.T) {
	arb, err := ForChain(ChainArbitrum)
	require.NoError(t, err)
	assert.Equal(t, "25", arb.SwapFeeBps.String())
	assert.Equal(t, "50", arb.TaxBps.String())
	assert.Equal(t, 3, arb.MaxSwapPathLength)
	assert.Equal(t, "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", arb.WrappedToken.Hex())

	avax, err := ForChain(ChainAvalanche)
	require.NoError(t, err)
	assert.Equal(t, "60", avax.TaxBps.String())
	assert.Equal(t, "60", avax.SwapFees().TaxBps.String())

	_, err = ForChain(ChainID(1))
	assert.ErrorIs(t, err, ErrUnsupportedChain)
	assert.Panics(t, func() { MustForChain(ChainID(1)) })
}

func TestForChainReturnsFreshValues(t *testing.T) {
	a := MustForChain(ChainArbitrum)
	a.SwapFeeBps.SetInt64(99)
	b := MustForChain(ChainArbitrum)
	assert.Equal(t, "25", b.SwapFeeBps.String())
}

func TestChainIDString(t *testing.T) {
	assert.Equal(t, "arbitrum", ChainArbitrum.String())
	assert.Equal(t, "avalanche", ChainAvalanche.String())
	assert.Equal(t, "chain-7", ChainID(7).String())
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PERPDEX_SNAPSHOT", "/tmp/snapshot.json")
	t.Setenv("PERPDEX_CHAIN_ID", "43114")
	t.Setenv("PERPDEX_MAX_SWAP_PATH_LENGTH", "2")
	t.Setenv("PERPDEX_MIN_PROFIT_TIME", "3600")
	t.Setenv("PERPDEX_MIN_PROFIT_BPS", "150")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/snapshot.json", env.SnapshotPath)
	assert.Equal(t, ":8080", env.ListenAddr)

	cfg, err := env.Config()
	require.NoError(t, err)
	assert.Equal(t, ChainAvalanche, cfg.ChainID)
	assert.Equal(t, 2, cfg.MaxSwapPathLength)
	assert.Equal(t, int64(3600), cfg.MinProfitTime)
	assert.Equal(t, "150", cfg.MinProfitBps.String())
}

func TestLoadEnvKeepsChainDefaults(t *testing.T) {
	t.Setenv("PERPDEX_SNAPSHOT", "/tmp/snapshot.json")
	t.Setenv("PERPDEX_CHAIN_ID", "42161")
	t.Setenv("PERPDEX_MAX_SWAP_PATH_LENGTH", "-1")
	t.Setenv("PERPDEX_MIN_PROFIT_TIME", "-1")
	t.Setenv("PERPDEX_MIN_PROFIT_BPS", "-1")

	env, err := LoadEnv()
	require.NoError(t, err)
	cfg, err := env.Config()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxSwapPathLength)
	assert.Equal(t, int64(0), cfg.MinProfitTime)
	assert.Equal(t, "0", cfg.MinProfitBps.String())
}

func TestEnvValidate(t *testing.T) {
	valid := Env{SnapshotPath: "s.json", MaxSwapPathLength: -1, MinProfitBps: -1}
	assert.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*Env){
		"no snapshot":    func(e *Env) { e.SnapshotPath = "" },
		"zero path":      func(e *Env) { e.MaxSwapPathLength = 0 },
		"long path":      func(e *Env) { e.MaxSwapPathLength = 9 },
		"min profit bps": func(e *Env) { e.MinProfitBps = 20_000 },
	} {
		t.Run(name, func(t *testing.T) {
			e := valid
			mutate(&e)
			assert.Error(t, e.Validate())
		})
	}
}

func TestEnvConfigUnsupportedChain(t *testing.T) {
	env := Env{ChainID: 1, SnapshotPath: "s.json", MaxSwapPathLength: -1}
	_, err := env.Config()
	assert.ErrorIs(t, err, ErrUnsupportedChain)
}
