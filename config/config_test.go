package config

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Custodian = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	cfg.Admin = common.HexToAddress("0x0000000000000000000000000000000000000042")
	cfg.Pool = common.HexToAddress("0x00000000000000000000000000000000000000dd")
	return cfg
}

func TestValidateConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validConfig().ValidateConfig())
	})

	t.Run("missing identities", func(t *testing.T) {
		err := DefaultConfig().ValidateConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "custodian must be specified")
		assert.Contains(t, err.Error(), "admin must be specified")
		assert.Contains(t, err.Error(), "pool must be specified")
	})

	t.Run("fee out of range", func(t *testing.T) {
		cfg := validConfig()
		cfg.FeeRateBps = 10001
		err := cfg.ValidateConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fee_rate_bps")
	})

	t.Run("prometheus endpoint required when enabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.PrometheusEnabled = true
		err := cfg.ValidateConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "prometheus_endpoint")
	})
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dustvault.json")

	cfg := validConfig()
	cfg.FeeRateBps = 50
	cfg.MinHealthFactor = big.NewInt(12000)
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Custodian, loaded.Custodian)
	assert.Equal(t, int64(50), loaded.FeeRateBps)
	assert.Equal(t, int64(12000), loaded.MinHealthFactor.Int64())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Run("overrides addresses", func(t *testing.T) {
		t.Setenv(EnvAdmin, "0x0000000000000000000000000000000000000099")
		cfg := validConfig()
		require.NoError(t, ApplyEnvOverrides(cfg))
		assert.Equal(t, common.HexToAddress("0x0000000000000000000000000000000000000099"), cfg.Admin)
	})

	t.Run("rejects malformed addresses", func(t *testing.T) {
		t.Setenv(EnvAdmin, "not-an-address")
		cfg := validConfig()
		err := ApplyEnvOverrides(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), EnvAdmin)
	})
}
