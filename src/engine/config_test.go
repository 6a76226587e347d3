package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Run("defaults pass", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("zero values fill in from defaults", func(t *testing.T) {
		cfg := Config{}
		require.NoError(t, cfg.Validate())

		// Commission is the one knob where zero is meaningful, so Validate
		// leaves it alone.
		expected := DefaultConfig()
		expected.CommissionRate = 0
		assert.Equal(t, expected, cfg)
	})

	t.Run("zero commission stays zero", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.CommissionRate = 0
		require.NoError(t, cfg.Validate())

		assert.Zero(t, cfg.CommissionRate)
	})

	t.Run("rejects out-of-range values", func(t *testing.T) {
		for name, mutate := range map[string]func(*Config){
			"negative balance":         func(c *Config) { c.InitialBalance = -1 },
			"negative commission":      func(c *Config) { c.CommissionRate = -0.1 },
			"negative grid step":       func(c *Config) { c.GridStepPercent = -1 },
			"max below min orders":     func(c *Config) { c.MinOrders = 10; c.MaxOrders = 5 },
			"multiplier below one":     func(c *Config) { c.MaxGridStepMultiplier = 0.5 },
			"shrinking volume growth":  func(c *Config) { c.VolumeGrowthFactor = 0.9 },
			"volume fraction over one": func(c *Config) { c.BaseVolumeFraction = 1.5 },
			"coverage at half":         func(c *Config) { c.MinGridCoverage = 0.5 },
			"negative ema period":      func(c *Config) { c.EmaPeriod = -3 },
			"negative fill window":     func(c *Config) { c.FillWindow = -1 },
			"negative bucket size":     func(c *Config) { c.BucketSizePercent = -0.5 },
		} {
			t.Run(name, func(t *testing.T) {
				cfg := DefaultConfig()
				mutate(&cfg)
				assert.Error(t, cfg.Validate())
			})
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("reads yaml over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"initialBalance: 5000\n"+
				"gridStepPercent: 2.5\n"+
				"emaPeriod: 10\n",
		), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, 5000.0, cfg.InitialBalance)
		assert.Equal(t, 2.5, cfg.GridStepPercent)
		assert.Equal(t, 10, cfg.EmaPeriod)
		assert.Equal(t, DefaultConfig().MaxOrders, cfg.MaxOrders)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid values are an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("initialBalance: -100\n"), 0644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}
