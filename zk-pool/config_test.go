package zk_pool

import (
	"path/filepath"
	"testing"

	"github.com/kysee/zkpool/zk-pool/types"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 20, cfg.TreeDepth)

	d, err := cfg.DenominationValue()
	require.NoError(t, err)
	require.Equal(t, "100000000000000000", d.Dec())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "zkpool.json")

	// written back on first load
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	cfg.TreeDepth = 16
	cfg.ProvingScheme = "plonk"
	cfg.DataDir = ""
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
	require.NoError(t, loaded.Validate())
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"depth":        func(c *Config) { c.TreeDepth = 0 },
		"deep":         func(c *Config) { c.TreeDepth = 33 },
		"history":      func(c *Config) { c.RootHistory = 0 },
		"scheme":       func(c *Config) { c.ProvingScheme = "stark" },
		"vk":           func(c *Config) { c.VerificationKeyPath = "" },
		"denomination": func(c *Config) { c.Denomination = "1.5" },
		"zero":         func(c *Config) { c.Denomination = "0" },
		"overflow":     func(c *Config) { c.Denomination = "115792089237316195423570985008687907853269984665640564039457584007913129639936" },
	}
	for name, mod := range cases {
		cfg := DefaultConfig()
		mod(cfg)
		require.ErrorIs(t, cfg.Validate(), types.ErrConfig, name)
	}
}
