package strategy

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a strategy YAML file over the defaults. KnownFields(true)
// rejects typos and unused fields immediately instead of silently
// screening with half a strategy. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode strategy file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate strategy: %w", err)
	}

	return cfg, nil
}

// Validate checks structural constraints the engine relies on.
func Validate(cfg *Config) error {
	if cfg.BaseCurrency == "" {
		return fmt.Errorf("base_currency is required")
	}

	if t := cfg.Signals.TechnicalTrend; t.Enabled {
		if t.SMAFast <= 0 || t.SMASlow <= 0 {
			return fmt.Errorf("technical_trend: sma windows must be positive")
		}
		if t.SMAFast >= t.SMASlow {
			return fmt.Errorf("technical_trend: sma_fast must be shorter than sma_slow")
		}
	}

	if m := cfg.Signals.MeanReversion; m.Enabled && m.RSIPeriod <= 1 {
		return fmt.Errorf("mean_reversion: rsi_period must be greater than 1")
	}

	if n := cfg.Signals.NewsSentiment; n.Enabled && n.LookbackDays <= 0 {
		return fmt.Errorf("news_sentiment: lookback_days must be positive")
	}

	if b := cfg.Signals.Breakout52W; b.Enabled && (b.NearHighPct <= 0 || b.NearHighPct >= 1) {
		return fmt.Errorf("breakout52w: near_high_pct must be in (0, 1)")
	}

	for _, w := range []float64{
		cfg.Signals.TechnicalTrend.Weight,
		cfg.Signals.Momentum.Weight,
		cfg.Signals.MeanReversion.Weight,
		cfg.Signals.Dividend.YieldWeight,
		cfg.Signals.Dividend.PayoutWeight,
		cfg.Signals.NewsSentiment.Weight,
		cfg.Signals.Breakout52W.Weight,
	} {
		if w < 0 {
			return fmt.Errorf("factor weights must be non-negative")
		}
	}

	return nil
}
