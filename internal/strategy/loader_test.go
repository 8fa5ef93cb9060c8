package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStrategy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "AUD", cfg.BaseCurrency)
	assert.Equal(t, 200, cfg.Signals.TechnicalTrend.SMASlow)
	assert.Equal(t, 14, cfg.Signals.MeanReversion.RSIPeriod)
	assert.InDelta(t, 0.6, cfg.Signals.Momentum.Weight, 1e-9)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeStrategy(t, `
base_currency: USD
signals:
  mean_reversion:
    rsi_buy_below: 25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.InDelta(t, 25, cfg.Signals.MeanReversion.RSIBuyBelow, 1e-9)
	// Untouched sections keep their defaults.
	assert.Equal(t, 50, cfg.Signals.TechnicalTrend.SMAFast)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeStrategy(t, `
base_currency: AUD
signals:
  technical_trend:
    sma_fastest: 10
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode strategy file")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults pass",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing base currency",
			mutate:  func(c *Config) { c.BaseCurrency = "" },
			wantErr: "base_currency",
		},
		{
			name:    "sma fast not shorter than slow",
			mutate:  func(c *Config) { c.Signals.TechnicalTrend.SMAFast = 300 },
			wantErr: "sma_fast",
		},
		{
			name:    "rsi period too small",
			mutate:  func(c *Config) { c.Signals.MeanReversion.RSIPeriod = 1 },
			wantErr: "rsi_period",
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Signals.Momentum.Weight = -0.1 },
			wantErr: "non-negative",
		},
		{
			name:    "breakout threshold out of range",
			mutate:  func(c *Config) { c.Signals.Breakout52W.NearHighPct = 1.5 },
			wantErr: "near_high_pct",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
