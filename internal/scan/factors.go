package scan

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/wonny/scout/internal/fundamentals"
	"github.com/wonny/scout/internal/strategy"
)

// Valuation and quality sub-checks carry fixed partial weights; the
// thresholds they compare against are configurable but the split of a
// category's weight across its checks is not.
const (
	peWeight       = 0.3
	pbWeight       = 0.2
	pegWeight      = 0.2
	evEbitdaWeight = 0.2

	roeWeight     = 0.3
	gmWeight      = 0.2
	fcfWeight     = 0.2
	cagrWeight    = 0.2
	netDebtWeight = 0.2
)

// smaEpsilon keeps a price sitting exactly on the slow average counted
// as above it.
const smaEpsilon = 1e-6

func trendFactor(cfg strategy.TrendConfig, closes []float64, px float64, extras map[string]interface{}) factorResult {
	if !cfg.Enabled {
		return abstained()
	}
	if len(closes) < cfg.SMASlow {
		return abstained()
	}

	smaSlow := last(talib.Sma(closes, cfg.SMASlow))
	if math.IsNaN(smaSlow) || smaSlow <= 0 {
		return failed(fmt.Errorf("degenerate SMA%d over %d closes", cfg.SMASlow, len(closes)))
	}
	extras["sma_slow"] = smaSlow
	if len(closes) >= cfg.SMAFast {
		extras["sma_fast"] = last(talib.Sma(closes, cfg.SMAFast))
	}

	if !cfg.RequireAboveSMASlow || px >= smaSlow*(1-smaEpsilon) {
		return abstained().fire(cfg.Weight, "Uptrend intact (≥SMA200)")
	}
	return abstained()
}

// momentumFactor scores the 12-month return measured to one month ago,
// so the most recent month's reversal noise is excluded.
func momentumFactor(cfg strategy.MomentumConfig, closes []float64, extras map[string]interface{}) factorResult {
	if !cfg.Enabled {
		return abstained()
	}
	n := len(closes)
	if n < 253 {
		return abstained()
	}

	if closes[n-252] <= 0 {
		return failed(fmt.Errorf("non-positive base price %.2f a year back", closes[n-252]))
	}
	var m12 float64
	if cfg.SkipLastMonth {
		m12 = closes[n-21]/closes[n-252] - 1
	} else {
		m12 = closes[n-1]/closes[n-252] - 1
	}
	extras["mom12"] = m12

	if m12 >= cfg.Min12MMom {
		return abstained().fire(cfg.Weight, fmt.Sprintf("12m momentum %.1f%% strong", m12*100))
	}
	return abstained()
}

func meanReversionFactor(cfg strategy.MeanRevConfig, closes []float64, extras map[string]interface{}) factorResult {
	if !cfg.Enabled {
		return abstained()
	}
	if len(closes) <= cfg.RSIPeriod {
		return abstained()
	}

	rsi := last(talib.Rsi(closes, cfg.RSIPeriod))
	if math.IsNaN(rsi) {
		return failed(fmt.Errorf("RSI%d undefined over %d closes", cfg.RSIPeriod, len(closes)))
	}
	extras["rsi"] = rsi

	if rsi <= cfg.RSIBuyBelow {
		return abstained().fire(cfg.Weight, fmt.Sprintf("RSI %.1f oversold", rsi))
	}
	return abstained()
}

func valuationFactor(cfg strategy.ValueConfig, facts *fundamentals.Bundle) factorResult {
	if !cfg.Enabled {
		return abstained()
	}

	r := abstained()
	if pe, ok := facts.Get("pe_ttm", "pe_fwd"); ok && pe != 0 && cfg.MaxPE != 0 && pe <= cfg.MaxPE {
		r = r.fire(peWeight, fmt.Sprintf("PE %.1f ≤ %g", pe, cfg.MaxPE))
	}
	if pb, ok := facts.Get("pb"); ok && pb != 0 && cfg.MaxPB != 0 && pb <= cfg.MaxPB {
		r = r.fire(pbWeight, fmt.Sprintf("PB %.1f ≤ %g", pb, cfg.MaxPB))
	}
	if peg, ok := facts.Get("peg"); ok && peg != 0 && cfg.PEGMax != 0 && peg <= cfg.PEGMax {
		r = r.fire(pegWeight, fmt.Sprintf("PEG %.2f ≤ %g", peg, cfg.PEGMax))
	}
	if ev, ok := facts.Get("ev_ebitda"); ok && ev != 0 && cfg.EVEBITDAMax != 0 && ev <= cfg.EVEBITDAMax {
		r = r.fire(evEbitdaWeight, fmt.Sprintf("EV/EBITDA %.1f ≤ %g", ev, cfg.EVEBITDAMax))
	}
	return r
}

func qualityFactor(cfg strategy.QualityConfig, facts *fundamentals.Bundle) factorResult {
	if !cfg.Enabled {
		return abstained()
	}

	r := abstained()
	if roe, ok := facts.Get("roe"); ok && roe != 0 && roe >= cfg.MinROE {
		r = r.fire(roeWeight, fmt.Sprintf("ROE %.1f%% ≥ %.0f%%", roe*100, cfg.MinROE*100))
	}
	if gm, ok := facts.Get("gross_margin"); ok && gm != 0 && gm >= cfg.MinGrossMargin {
		r = r.fire(gmWeight, fmt.Sprintf("GM %.1f%% ≥ %.0f%%", gm*100, cfg.MinGrossMargin*100))
	}
	if fcf, ok := facts.Get("fcf_margin"); ok && fcf != 0 && fcf >= cfg.MinFCFMargin {
		r = r.fire(fcfWeight, fmt.Sprintf("FCF %.1f%% ≥ %.0f%%", fcf*100, cfg.MinFCFMargin*100))
	}
	if cagr, ok := facts.Get("rev_cagr_3y"); ok && cagr != 0 && cagr >= cfg.MinRevCAGR3Y {
		r = r.fire(cagrWeight, fmt.Sprintf("Rev CAGR %.1f%% ≥ %.0f%%", cagr*100, cfg.MinRevCAGR3Y*100))
	}
	// zero net debt is meaningful, only outright absence skips the check
	if nd, ok := facts.Get("net_debt_ebitda"); ok && nd <= cfg.MaxNetDebtEBITDA {
		r = r.fire(netDebtWeight, fmt.Sprintf("NetDebt/EBITDA %.1f ≤ %g", nd, cfg.MaxNetDebtEBITDA))
	}
	return r
}

func dividendFactor(cfg strategy.DividendConfig, facts *fundamentals.Bundle, dy float64, hasDY bool, extras map[string]interface{}) factorResult {
	if !cfg.Enabled {
		return abstained()
	}

	if hasDY {
		extras["div_yield_ttm"] = dy
	} else {
		extras["div_yield_ttm"] = nil
	}

	r := abstained()
	if hasDY && dy != 0 && dy >= cfg.MinYield {
		r = r.fire(cfg.YieldWeight, fmt.Sprintf("Dividend yield %.1f%% ≥ %.0f%%", dy*100, cfg.MinYield*100))
	}
	if hasDY && dy != 0 && cfg.MaxPayout != 0 {
		if payout, ok := facts.Get("payout_ratio"); ok && payout != 0 && payout <= cfg.MaxPayout {
			r = r.fire(cfg.PayoutWeight, fmt.Sprintf("Payout ratio %.0f%% sustainable", payout*100))
		}
	}
	return r
}

func sentimentFactor(cfg strategy.NewsConfig, avg float64, hasAvg bool, extras map[string]interface{}) factorResult {
	if !cfg.Enabled {
		return abstained()
	}

	if hasAvg {
		extras["news_sentiment_avg"] = avg
	} else {
		extras["news_sentiment_avg"] = nil
	}

	if hasAvg && avg >= cfg.MinAvgSentiment {
		return abstained().fire(cfg.Weight, fmt.Sprintf("News sentiment %+.2f supportive", avg))
	}
	return abstained()
}

func breakoutFactor(cfg strategy.BreakoutConfig, closes []float64, extras map[string]interface{}) factorResult {
	if !cfg.Enabled {
		return abstained()
	}
	n := len(closes)
	if n == 0 {
		return abstained()
	}

	window := closes
	if n > 252 {
		window = closes[n-252:]
	}
	hi := window[0]
	for _, c := range window[1:] {
		if c > hi {
			hi = c
		}
	}
	if hi == 0 {
		return abstained()
	}

	dist := (hi - closes[n-1]) / hi
	extras["near_52w_high"] = 1 - dist

	if dist <= cfg.NearHighPct {
		return abstained().fire(cfg.Weight, "Near 52w high")
	}
	return abstained()
}

func last(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return vals[len(vals)-1]
}
