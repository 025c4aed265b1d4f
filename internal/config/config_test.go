package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KOSH_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "INR", cfg.BaseCurrency)
	assert.InDelta(t, 0.03, cfg.RiskFreeRate, 1e-9)
	assert.InDelta(t, 0.05, cfg.DriftThreshold, 1e-9)
	assert.InDelta(t, 100000.0, cfg.InitialInvestment, 1e-9)
	assert.False(t, cfg.DevMode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KOSH_DATA_DIR", t.TempDir())
	t.Setenv("KOSH_PORT", "9090")
	t.Setenv("KOSH_DRIFT_THRESHOLD", "0.10")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.InDelta(t, 0.10, cfg.DriftThreshold, 1e-9)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero port", func(c *Config) { c.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"drift threshold zero", func(c *Config) { c.DriftThreshold = 0 }, true},
		{"drift threshold one", func(c *Config) { c.DriftThreshold = 1.0 }, true},
		{"negative initial investment", func(c *Config) { c.InitialInvestment = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Port:              8080,
				DriftThreshold:    0.05,
				InitialInvestment: 100000,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
