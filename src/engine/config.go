package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the order/grid engine. Zero values are
// filled in from DefaultConfig by Validate.
type Config struct {
	InitialBalance        float64 `yaml:"initialBalance"`
	CommissionRate        float64 `yaml:"commissionRate"`
	GridStepPercent       float64 `yaml:"gridStepPercent"`
	MinOrders             int     `yaml:"minOrders"`
	MaxOrders             int     `yaml:"maxOrders"`
	MaxGridStepMultiplier float64 `yaml:"maxGridStepMultiplier"`
	VolumeGrowthFactor    float64 `yaml:"volumeGrowthFactor"`
	BaseVolumeFraction    float64 `yaml:"baseVolumeFraction"`
	MinGridCoverage       float64 `yaml:"minGridCoverage"`
	EmaPeriod             int     `yaml:"emaPeriod"`
	FillWindow            int     `yaml:"fillWindow"`
	BucketSizePercent     float64 `yaml:"bucketSizePercent"`
}

func DefaultConfig() Config {
	return Config{
		InitialBalance:        10000,
		CommissionRate:        0.001,
		GridStepPercent:       1.0,
		MinOrders:             3,
		MaxOrders:             10,
		MaxGridStepMultiplier: 8,
		VolumeGrowthFactor:    1.1,
		BaseVolumeFraction:    0.01,
		MinGridCoverage:       0.2,
		EmaPeriod:             20,
		FillWindow:            50,
		BucketSizePercent:     0.5,
	}
}

func (c *Config) Validate() error {
	defaults := DefaultConfig()

	if c.InitialBalance == 0 {
		c.InitialBalance = defaults.InitialBalance
	}
	if c.InitialBalance < 0 {
		return fmt.Errorf("Config.Validate: initial balance must be non-negative, got %v", c.InitialBalance)
	}

	if c.CommissionRate < 0 {
		return fmt.Errorf("Config.Validate: commission rate must be non-negative, got %v", c.CommissionRate)
	}

	if c.GridStepPercent == 0 {
		c.GridStepPercent = defaults.GridStepPercent
	}
	if c.GridStepPercent < 0 {
		return fmt.Errorf("Config.Validate: grid step percent must be positive, got %v", c.GridStepPercent)
	}

	if c.MinOrders == 0 {
		c.MinOrders = defaults.MinOrders
	}
	if c.MaxOrders == 0 {
		c.MaxOrders = defaults.MaxOrders
	}
	if c.MinOrders < 1 || c.MaxOrders < c.MinOrders {
		return fmt.Errorf("Config.Validate: require 1 <= minOrders <= maxOrders, got %v and %v", c.MinOrders, c.MaxOrders)
	}

	if c.MaxGridStepMultiplier == 0 {
		c.MaxGridStepMultiplier = defaults.MaxGridStepMultiplier
	}
	if c.MaxGridStepMultiplier < 1 {
		return fmt.Errorf("Config.Validate: max grid step multiplier must be at least 1, got %v", c.MaxGridStepMultiplier)
	}

	if c.VolumeGrowthFactor == 0 {
		c.VolumeGrowthFactor = defaults.VolumeGrowthFactor
	}
	if c.VolumeGrowthFactor < 1 {
		return fmt.Errorf("Config.Validate: volume growth factor must be at least 1, got %v", c.VolumeGrowthFactor)
	}

	if c.BaseVolumeFraction == 0 {
		c.BaseVolumeFraction = defaults.BaseVolumeFraction
	}
	if c.BaseVolumeFraction <= 0 || c.BaseVolumeFraction > 1 {
		return fmt.Errorf("Config.Validate: base volume fraction must be in (0, 1], got %v", c.BaseVolumeFraction)
	}

	if c.MinGridCoverage == 0 {
		c.MinGridCoverage = defaults.MinGridCoverage
	}
	if c.MinGridCoverage < 0 || c.MinGridCoverage >= 0.5 {
		return fmt.Errorf("Config.Validate: min grid coverage must be in [0, 0.5), got %v", c.MinGridCoverage)
	}

	if c.EmaPeriod == 0 {
		c.EmaPeriod = defaults.EmaPeriod
	}
	if c.EmaPeriod < 1 {
		return fmt.Errorf("Config.Validate: ema period must be at least 1, got %v", c.EmaPeriod)
	}

	if c.FillWindow == 0 {
		c.FillWindow = defaults.FillWindow
	}
	if c.FillWindow < 1 {
		return fmt.Errorf("Config.Validate: fill window must be at least 1, got %v", c.FillWindow)
	}

	if c.BucketSizePercent == 0 {
		c.BucketSizePercent = defaults.BucketSizePercent
	}
	if c.BucketSizePercent <= 0 {
		return fmt.Errorf("Config.Validate: bucket size percent must be positive, got %v", c.BucketSizePercent)
	}

	return nil
}

func LoadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("LoadConfig: failed to read %s: %w", filename, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("LoadConfig: failed to unmarshal %s: %w", filename, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("LoadConfig: %w", err)
	}

	return cfg, nil
}
