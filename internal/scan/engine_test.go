package scan

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scout/internal/events"
	"github.com/wonny/scout/internal/fundamentals"
	"github.com/wonny/scout/internal/marketdata"
	"github.com/wonny/scout/internal/news"
	"github.com/wonny/scout/internal/strategy"
	"github.com/wonny/scout/pkg/config"
	"github.com/wonny/scout/pkg/diskcache"
	"github.com/wonny/scout/pkg/logger"
)

// ---- fakes ----

type fakeMD struct {
	series map[string]*marketdata.Series
	infos  map[string]marketdata.Info
	fx     float64
	fxOK   bool
}

func (f *fakeMD) History(_ context.Context, symbol, _, _ string) *marketdata.Series {
	return f.series[symbol]
}

func (f *fakeMD) Info(_ context.Context, symbol string) marketdata.Info {
	return f.infos[symbol]
}

func (f *fakeMD) FX(_ context.Context, _ string) (float64, bool) {
	return f.fx, f.fxOK
}

type fakeFund struct {
	bundles map[string]*fundamentals.Bundle
}

func (f *fakeFund) Facts(_ context.Context, ticker string) *fundamentals.Bundle {
	return f.bundles[ticker]
}

type fakeNews struct {
	avg    float64
	hasAvg bool
	items  []news.Item
}

func (f *fakeNews) AverageSentiment(_ context.Context, _ string, _ int) (float64, bool) {
	return f.avg, f.hasAvg
}

func (f *fakeNews) Recent(_ context.Context, _ string, _, _ int) []news.Item {
	return f.items
}

// ---- helpers ----

func seriesOf(symbol string, closes []float64) *marketdata.Series {
	s := &marketdata.Series{Symbol: symbol, Currency: "USD"}
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		s.Bars = append(s.Bars, marketdata.Bar{Date: day.AddDate(0, 0, i), Close: c})
	}
	return s
}

func risingCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 0.1*float64(i)
	}
	return out
}

func fallingCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 - 0.5*float64(i)
	}
	return out
}

func testEngine(t *testing.T, md marketdata.Provider, fund fundamentals.Provider, np news.Provider) *Engine {
	t.Helper()
	appCfg := &config.Config{}
	appCfg.Scan.MaxTickers = 120
	appCfg.Scan.SleepMs = 0
	ev := events.NewProvider(md, logger.Nop(), diskcache.New(t.TempDir(), time.Minute))
	return NewEngine(appCfg, strategy.Default(), logger.Nop(), md, fund, np, ev)
}

// ---- factor tests ----

func TestTrendFactor(t *testing.T) {
	cfg := strategy.Default().Signals.TechnicalTrend
	extras := map[string]interface{}{}

	closes := risingCloses(300)
	r := trendFactor(cfg, closes, closes[len(closes)-1], extras)
	assert.Equal(t, cfg.Weight, r.weight)
	assert.Equal(t, []string{"Uptrend intact (≥SMA200)"}, r.reasons)
	assert.Contains(t, extras, "sma_slow")
	assert.Contains(t, extras, "sma_fast")

	// Below the slow average nothing fires.
	r = trendFactor(cfg, closes, 50, map[string]interface{}{})
	assert.Zero(t, r.weight)
	assert.Empty(t, r.reasons)

	// Too little history abstains entirely.
	r = trendFactor(cfg, risingCloses(100), 200, map[string]interface{}{})
	assert.Zero(t, r.weight)
}

func TestMomentumFactorNeedsFullYear(t *testing.T) {
	cfg := strategy.Default().Signals.Momentum

	r := momentumFactor(cfg, risingCloses(252), map[string]interface{}{})
	assert.Zero(t, r.weight, "252 closes are one short of the window")

	extras := map[string]interface{}{}
	r = momentumFactor(cfg, risingCloses(253), extras)
	assert.Equal(t, cfg.Weight, r.weight)
	require.Len(t, r.reasons, 1)
	assert.Contains(t, r.reasons[0], "12m momentum")
	assert.Contains(t, extras, "mom12")
}

func TestMeanReversionFactor(t *testing.T) {
	cfg := strategy.Default().Signals.MeanReversion
	extras := map[string]interface{}{}

	r := meanReversionFactor(cfg, fallingCloses(60), extras)
	assert.Equal(t, cfg.Weight, r.weight)
	require.Len(t, r.reasons, 1)
	assert.Contains(t, r.reasons[0], "oversold")

	r = meanReversionFactor(cfg, risingCloses(60), map[string]interface{}{})
	assert.Zero(t, r.weight, "a steady climb is never oversold")

	r = meanReversionFactor(cfg, risingCloses(10), map[string]interface{}{})
	assert.Zero(t, r.weight, "not enough closes for the RSI window")
}

func TestFactorsFailOnDegenerateSeries(t *testing.T) {
	sig := strategy.Default().Signals

	// A halted listing reported as all-zero closes makes the slow
	// average zero.
	r := trendFactor(sig.TechnicalTrend, make([]float64, 300), 0, map[string]interface{}{})
	assert.Equal(t, factorFailed, r.status)
	assert.Error(t, r.err)
	assert.Empty(t, r.reasons)
	assert.Zero(t, r.weight)

	// A zero close at the momentum base makes the 12m return undefined.
	closes := risingCloses(300)
	closes[len(closes)-252] = 0
	r = momentumFactor(sig.Momentum, closes, map[string]interface{}{})
	assert.Equal(t, factorFailed, r.status)
	assert.Error(t, r.err)
	assert.Zero(t, r.weight)
}

func TestScreenOneIsolatesFailedFactor(t *testing.T) {
	// The momentum base price is corrupt, but every other factor still
	// gets its say.
	closes := risingCloses(300)
	closes[len(closes)-252] = 0
	md := &fakeMD{series: map[string]*marketdata.Series{"AAPL": seriesOf("AAPL", closes)}}
	fund := &fakeFund{bundles: map[string]*fundamentals.Bundle{
		"AAPL": {Provider: "yf", Metrics: map[string]float64{"pe_ttm": 15}},
	}}
	e := testEngine(t, md, fund, &fakeNews{})
	e.cfg.BaseCurrency = "USD"

	sig := e.ScreenOne(context.Background(), "AAPL")
	require.NotNil(t, sig)
	assert.NotContains(t, sig.Extras, "mom12")
	assert.Contains(t, sig.Extras, "sma_slow")
	var hasTrend bool
	for _, reason := range sig.Reasons {
		if strings.Contains(reason, "Uptrend") {
			hasTrend = true
		}
	}
	assert.True(t, hasTrend, "trend must still fire when momentum fails")
}

func TestScreenOneTrendAndMomentumAloneCanReachBuy(t *testing.T) {
	// With only the two price factors enabled, raised weights that sum
	// past the threshold must yield a BUY on a clean uptrend.
	md := &fakeMD{series: map[string]*marketdata.Series{"AAPL": seriesOf("AAPL", risingCloses(300))}}
	e := testEngine(t, md, &fakeFund{}, &fakeNews{})
	e.cfg.BaseCurrency = "USD"
	e.cfg.Signals.TechnicalTrend.Weight = 0.8
	e.cfg.Signals.Momentum.Weight = 0.9
	e.cfg.Signals.MeanReversion.Enabled = false
	e.cfg.Signals.Value.Enabled = false
	e.cfg.Signals.Quality.Enabled = false
	e.cfg.Signals.Dividend.Enabled = false
	e.cfg.Signals.NewsSentiment.Enabled = false
	e.cfg.Signals.Breakout52W.Enabled = false

	sig := e.ScreenOne(context.Background(), "AAPL")
	require.NotNil(t, sig)
	assert.InDelta(t, 1.7, sig.Score, 1e-9)
	assert.Equal(t, SideBuy, sig.Side)
	assert.Len(t, sig.Reasons, 2)
}

func TestValuationFactorPartialWeights(t *testing.T) {
	cfg := strategy.Default().Signals.Value

	facts := &fundamentals.Bundle{Metrics: map[string]float64{
		"pe_ttm": 15, "pb": 3, "peg": 1.2, "ev_ebitda": 10,
	}}
	r := valuationFactor(cfg, facts)
	assert.InDelta(t, peWeight+pbWeight+pegWeight+evEbitdaWeight, r.weight, 1e-9)
	assert.Len(t, r.reasons, 4)

	// Only PE under the limit.
	facts = &fundamentals.Bundle{Metrics: map[string]float64{"pe_ttm": 15, "pb": 9}}
	r = valuationFactor(cfg, facts)
	assert.InDelta(t, peWeight, r.weight, 1e-9)

	// pe_fwd stands in when pe_ttm is absent.
	facts = &fundamentals.Bundle{Metrics: map[string]float64{"pe_fwd": 12}}
	r = valuationFactor(cfg, facts)
	assert.InDelta(t, peWeight, r.weight, 1e-9)

	// Empty facts abstain.
	r = valuationFactor(cfg, &fundamentals.Bundle{Metrics: map[string]float64{}})
	assert.Zero(t, r.weight)
}

func TestQualityFactorZeroNetDebtCounts(t *testing.T) {
	cfg := strategy.Default().Signals.Quality

	facts := &fundamentals.Bundle{Metrics: map[string]float64{"net_debt_ebitda": 0}}
	r := qualityFactor(cfg, facts)
	assert.InDelta(t, netDebtWeight, r.weight, 1e-9, "zero net debt is a pass, not an absence")

	// A zero ROE is indistinguishable from missing data and is skipped.
	facts = &fundamentals.Bundle{Metrics: map[string]float64{"roe": 0}}
	r = qualityFactor(cfg, facts)
	assert.Zero(t, r.weight)
}

func TestDividendFactor(t *testing.T) {
	cfg := strategy.Default().Signals.Dividend
	extras := map[string]interface{}{}

	facts := &fundamentals.Bundle{Metrics: map[string]float64{"payout_ratio": 0.5}}
	r := dividendFactor(cfg, facts, 0.04, true, extras)
	assert.InDelta(t, cfg.YieldWeight+cfg.PayoutWeight, r.weight, 1e-9)
	assert.InDelta(t, 0.04, extras["div_yield_ttm"], 1e-9)

	// Without a yield the payout check cannot fire either.
	extras = map[string]interface{}{}
	r = dividendFactor(cfg, facts, 0, false, extras)
	assert.Zero(t, r.weight)
	assert.Nil(t, extras["div_yield_ttm"])
}

func TestBreakoutFactorUsesTrailingYear(t *testing.T) {
	cfg := strategy.Default().Signals.Breakout52W

	// An old spike outside the trailing 252 closes must not count as
	// the 52-week high.
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100
	}
	closes[10] = 500
	extras := map[string]interface{}{}
	r := breakoutFactor(cfg, closes, extras)
	assert.Equal(t, cfg.Weight, r.weight)
	assert.Equal(t, []string{"Near 52w high"}, r.reasons)

	// Far below the recent high nothing fires.
	closes = risingCloses(300)
	closes[len(closes)-1] = 50
	r = breakoutFactor(cfg, closes, map[string]interface{}{})
	assert.Zero(t, r.weight)
}

// ---- engine tests ----

func TestScreenOneStrongCandidate(t *testing.T) {
	closes := risingCloses(300)
	md := &fakeMD{
		series: map[string]*marketdata.Series{"AAPL": seriesOf("AAPL", closes)},
		fx:     0.65, fxOK: true,
	}
	fund := &fakeFund{bundles: map[string]*fundamentals.Bundle{
		"AAPL": {Provider: "yf", Metrics: map[string]float64{"pe_ttm": 15, "roe": 0.3}},
	}}
	e := testEngine(t, md, fund, &fakeNews{})
	// Score in the instrument's own currency for assertion clarity.
	e.cfg.BaseCurrency = "USD"

	sig := e.ScreenOne(context.Background(), "AAPL")
	require.NotNil(t, sig)

	// trend 0.4 + momentum 0.6 + breakout 0.3 + PE 0.3 + ROE 0.3
	assert.InDelta(t, 1.9, sig.Score, 1e-9)
	assert.Equal(t, SideBuy, sig.Side)
	assert.Contains(t, sig.Reasons, "Uptrend intact (≥SMA200)")
	assert.Contains(t, sig.Reasons, "Near 52w high")
	assert.InDelta(t, closes[len(closes)-1], sig.Px, 1e-9)
	assert.Equal(t, "yf", sig.Extras["facts_provider"])
	assert.InDelta(t, 0.18, sig.Extras["facts_completeness"], 1e-9)
}

func TestScreenOneShortHistory(t *testing.T) {
	md := &fakeMD{series: map[string]*marketdata.Series{
		"NEWCO": seriesOf("NEWCO", fallingCloses(50)),
	}}
	e := testEngine(t, md, &fakeFund{}, &fakeNews{})
	e.cfg.BaseCurrency = "USD"

	sig := e.ScreenOne(context.Background(), "NEWCO")
	require.NotNil(t, sig)

	// Trend and momentum abstain on 50 closes; only the RSI check has
	// enough data, and a steady decline is oversold.
	assert.InDelta(t, 0.3, sig.Score, 1e-9)
	assert.Equal(t, SidePass, sig.Side)
	require.Len(t, sig.Reasons, 1)
	assert.Contains(t, sig.Reasons[0], "oversold")
}

func TestScreenOneNoHistory(t *testing.T) {
	e := testEngine(t, &fakeMD{}, &fakeFund{}, &fakeNews{})
	assert.Nil(t, e.ScreenOne(context.Background(), "GHOST"))
}

func TestScreenOneDividendYieldFallsBackToInfo(t *testing.T) {
	md := &fakeMD{
		series: map[string]*marketdata.Series{"CBA.AX": seriesOf("CBA.AX", risingCloses(300))},
		infos:  map[string]marketdata.Info{"CBA.AX": {"dividendYield": 0.045}},
		fx:     0.65, fxOK: true,
	}
	e := testEngine(t, md, &fakeFund{}, &fakeNews{})

	sig := e.ScreenOne(context.Background(), "CBA.AX")
	require.NotNil(t, sig)
	assert.InDelta(t, 0.045, sig.Extras["div_yield_ttm"], 1e-9)

	found := false
	for _, r := range sig.Reasons {
		if r == "Dividend yield 4.5% ≥ 3%" {
			found = true
		}
	}
	assert.True(t, found, "yield reason missing: %v", sig.Reasons)
}

func TestScreenOneNewsSentiment(t *testing.T) {
	md := &fakeMD{
		series: map[string]*marketdata.Series{"AAPL": seriesOf("AAPL", risingCloses(300))},
		fx:     0.65, fxOK: true,
	}
	e := testEngine(t, md, &fakeFund{}, &fakeNews{avg: 0.42, hasAvg: true})
	e.cfg.BaseCurrency = "USD"

	sig := e.ScreenOne(context.Background(), "AAPL")
	require.NotNil(t, sig)
	assert.Contains(t, sig.Reasons, "News sentiment +0.42 supportive")
	assert.InDelta(t, 0.42, sig.Extras["news_sentiment_avg"], 1e-9)
}

func TestScreenRanksAndCaps(t *testing.T) {
	md := &fakeMD{
		series: map[string]*marketdata.Series{
			"AAA": seriesOf("AAA", fallingCloses(50)),
			"BBB": seriesOf("BBB", risingCloses(300)),
		},
		fx: 0.65, fxOK: true,
	}
	e := testEngine(t, md, &fakeFund{}, &fakeNews{})
	e.cfg.BaseCurrency = "USD"
	ctx := context.Background()

	// GHOST has no data and is omitted; duplicates and case collapse.
	signals, err := e.Screen(ctx, []string{"bbb", "AAA", "BBB", "GHOST"}, 0, "")
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, "BBB", signals[0].Ticker, "highest score first")
	assert.Equal(t, "AAA", signals[1].Ticker)

	// The cap applies to the sorted symbol list before screening.
	signals, err = e.Screen(ctx, []string{"AAA", "BBB"}, 1, "")
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "AAA", signals[0].Ticker)
}

func TestScreenChunkValidation(t *testing.T) {
	e := testEngine(t, &fakeMD{}, &fakeFund{}, &fakeNews{})
	ctx := context.Background()

	_, err := e.Screen(ctx, []string{"AAA"}, 0, "nonsense")
	require.Error(t, err)

	_, err = e.Screen(ctx, []string{"AAA"}, 0, "x:2")
	require.Error(t, err)

	signals, err := e.Screen(ctx, []string{"AAA"}, 0, "5:9")
	require.NoError(t, err)
	assert.Empty(t, signals, "out-of-range window clamps to empty")
}

func TestApplyChunk(t *testing.T) {
	arr := []string{"A", "B", "C", "D"}

	got, err := applyChunk(arr, "1:3")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, got)

	got, err = applyChunk(arr, ":2")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got)

	got, err = applyChunk(arr, "2:")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, got)

	got, err = applyChunk(arr, "")
	require.NoError(t, err)
	assert.Equal(t, arr, got)

	_, err = applyChunk(arr, "3")
	assert.Error(t, err)
}

// ---- currency tests ----

func TestToBaseRoundTrip(t *testing.T) {
	md := &fakeMD{fx: 0.8, fxOK: true}
	ctx := context.Background()

	toAUD := testEngine(t, md, &fakeFund{}, &fakeNews{})
	toAUD.cfg.BaseCurrency = "AUD"
	toUSD := testEngine(t, md, &fakeFund{}, &fakeNews{})
	toUSD.cfg.BaseCurrency = "USD"

	aud := toAUD.toBase(ctx, 100, "USD")
	assert.InDelta(t, 125, aud, 1e-9)

	back := toUSD.toBase(ctx, aud, "AUD")
	assert.InDelta(t, 100, back, 1e-9, "conversion must round-trip")

	// Same currency passes through.
	assert.InDelta(t, 100, toUSD.toBase(ctx, 100, "USD"), 1e-9)
}

func TestToBaseFXFallback(t *testing.T) {
	e := testEngine(t, &fakeMD{fxOK: false}, &fakeFund{}, &fakeNews{})
	e.cfg.BaseCurrency = "AUD"

	got := e.toBase(context.Background(), 65, "USD")
	assert.InDelta(t, 100, got, 1e-9, "fallback rate must price the instrument")
}

func TestResolveCurrency(t *testing.T) {
	assert.Equal(t, "AUD", resolveCurrency("CBA.AX"))
	assert.Equal(t, "USD", resolveCurrency("AAPL"))
	assert.Equal(t, "USD", resolveCurrency("BRK-B"))
}
