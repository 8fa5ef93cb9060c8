package strategy

// Config holds the screening strategy: which factors are enabled, their
// thresholds, and their score weights. The aggregation rule (sum of fired
// weights, BUY/HOLD/PASS thresholds) is fixed in the engine; everything
// here is tunable per deployment.
type Config struct {
	BaseCurrency string   `yaml:"base_currency" json:"base_currency"`
	Universes    []string `yaml:"universes" json:"universes"`
	Watchlist    []string `yaml:"watchlist" json:"watchlist"`
	Signals      Signals  `yaml:"signals" json:"signals"`
	Risk         Risk     `yaml:"risk" json:"risk"`
}

// Signals groups the per-factor rule configuration.
type Signals struct {
	TechnicalTrend TrendConfig    `yaml:"technical_trend" json:"technical_trend"`
	Momentum       MomentumConfig `yaml:"momentum" json:"momentum"`
	MeanReversion  MeanRevConfig  `yaml:"mean_reversion" json:"mean_reversion"`
	Value          ValueConfig    `yaml:"value" json:"value"`
	Quality        QualityConfig  `yaml:"quality" json:"quality"`
	Dividend       DividendConfig `yaml:"dividend" json:"dividend"`
	NewsSentiment  NewsConfig     `yaml:"news_sentiment" json:"news_sentiment"`
	Breakout52W    BreakoutConfig `yaml:"breakout52w" json:"breakout52w"`
}

type TrendConfig struct {
	Enabled             bool    `yaml:"enabled" json:"enabled"`
	RequireAboveSMASlow bool    `yaml:"require_above_sma_slow" json:"require_above_sma_slow"`
	SMAFast             int     `yaml:"sma_fast" json:"sma_fast"`
	SMASlow             int     `yaml:"sma_slow" json:"sma_slow"`
	Weight              float64 `yaml:"weight" json:"weight"`
}

type MomentumConfig struct {
	Enabled       bool    `yaml:"enabled" json:"enabled"`
	Min12MMom     float64 `yaml:"min_12m_mom" json:"min_12m_mom"`
	SkipLastMonth bool    `yaml:"skip_last_month" json:"skip_last_month"`
	Weight        float64 `yaml:"weight" json:"weight"`
}

type MeanRevConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	RSIPeriod   int     `yaml:"rsi_period" json:"rsi_period"`
	RSIBuyBelow float64 `yaml:"rsi_buy_below" json:"rsi_buy_below"`
	Weight      float64 `yaml:"weight" json:"weight"`
}

type ValueConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	MaxPE       float64 `yaml:"max_pe" json:"max_pe"`
	MaxPB       float64 `yaml:"max_pb" json:"max_pb"`
	PEGMax      float64 `yaml:"peg_max" json:"peg_max"`
	EVEBITDAMax float64 `yaml:"ev_ebitda_max" json:"ev_ebitda_max"`
}

type QualityConfig struct {
	Enabled          bool    `yaml:"enabled" json:"enabled"`
	MinROE           float64 `yaml:"min_roe" json:"min_roe"`
	MinGrossMargin   float64 `yaml:"min_gross_margin" json:"min_gross_margin"`
	MinFCFMargin     float64 `yaml:"min_fcf_margin" json:"min_fcf_margin"`
	MinRevCAGR3Y     float64 `yaml:"min_rev_cagr_3y" json:"min_rev_cagr_3y"`
	MaxNetDebtEBITDA float64 `yaml:"max_net_debt_ebitda" json:"max_net_debt_ebitda"`
}

type DividendConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	MinYield     float64 `yaml:"min_yield" json:"min_yield"`
	MaxPayout    float64 `yaml:"max_payout" json:"max_payout"`
	YieldWeight  float64 `yaml:"yield_weight" json:"yield_weight"`
	PayoutWeight float64 `yaml:"payout_weight" json:"payout_weight"`
}

type NewsConfig struct {
	Enabled         bool    `yaml:"enabled" json:"enabled"`
	LookbackDays    int     `yaml:"lookback_days" json:"lookback_days"`
	MinAvgSentiment float64 `yaml:"min_avg_sentiment" json:"min_avg_sentiment"`
	Weight          float64 `yaml:"weight" json:"weight"`
}

type BreakoutConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	NearHighPct float64 `yaml:"near_high_pct" json:"near_high_pct"`
	Weight      float64 `yaml:"weight" json:"weight"`
}

// Risk holds portfolio-level limits used for risk flags and alerts.
type Risk struct {
	PositionCapPctNAV float64 `yaml:"position_cap_pct_nav" json:"position_cap_pct_nav"`
	DailyNewBuyLimit  int     `yaml:"daily_new_buy_limit" json:"daily_new_buy_limit"`
	StopLossPct       float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`
}

// Default returns the built-in strategy. The numbers are empirical
// defaults, not invariants.
func Default() *Config {
	return &Config{
		BaseCurrency: "AUD",
		Universes:    []string{"auto:sp500", "auto:asx200"},
		Signals: Signals{
			TechnicalTrend: TrendConfig{
				Enabled:             true,
				RequireAboveSMASlow: true,
				SMAFast:             50,
				SMASlow:             200,
				Weight:              0.4,
			},
			Momentum: MomentumConfig{
				Enabled:       true,
				Min12MMom:     0.08,
				SkipLastMonth: true,
				Weight:        0.6,
			},
			MeanReversion: MeanRevConfig{
				Enabled:     true,
				RSIPeriod:   14,
				RSIBuyBelow: 30,
				Weight:      0.3,
			},
			Value: ValueConfig{
				Enabled:     true,
				MaxPE:       28,
				MaxPB:       5,
				PEGMax:      2.0,
				EVEBITDAMax: 18,
			},
			Quality: QualityConfig{
				Enabled:          true,
				MinROE:           0.12,
				MinGrossMargin:   0.25,
				MinFCFMargin:     0.05,
				MinRevCAGR3Y:     0.05,
				MaxNetDebtEBITDA: 3.0,
			},
			Dividend: DividendConfig{
				Enabled:      true,
				MinYield:     0.03,
				MaxPayout:    0.85,
				YieldWeight:  0.2,
				PayoutWeight: 0.1,
			},
			NewsSentiment: NewsConfig{
				Enabled:         true,
				LookbackDays:    7,
				MinAvgSentiment: 0.1,
				Weight:          0.2,
			},
			Breakout52W: BreakoutConfig{
				Enabled:     true,
				NearHighPct: 0.05,
				Weight:      0.3,
			},
		},
		Risk: Risk{
			PositionCapPctNAV: 0.10,
			DailyNewBuyLimit:  5,
			StopLossPct:       0.12,
		},
	}
}
