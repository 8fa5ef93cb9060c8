package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/scout/internal/marketdata"
	"github.com/wonny/scout/internal/strategy"
	"github.com/wonny/scout/pkg/logger"
)

const (
	skipDays    = 21
	momWindow   = 252
	tradingDays = 252.0
)

// Result holds the per-instrument metrics of one backtest run.
type Result struct {
	Ticker string  `json:"ticker"`
	CAGR   float64 `json:"cagr"`
	MaxDD  float64 `json:"max_dd"`
	Sharpe float64 `json:"sharpe"`
	Trades int     `json:"trades"`
}

// Summary averages the per-instrument metrics.
type Summary struct {
	AvgCAGR   float64 `json:"avg_cagr"`
	AvgMaxDD  float64 `json:"avg_max_dd"`
	AvgSharpe float64 `json:"avg_sharpe"`
	Tickers   int     `json:"tickers"`
}

// Report is the multi-instrument backtest output.
type Report struct {
	Summary Summary  `json:"summary"`
	Results []Result `json:"results"`
}

// Bench is the passive comparison curve.
type Bench struct {
	Label  string    `json:"label"`
	Equity []float64 `json:"equity"`
}

// Curve is the strategy equity series for a single instrument.
type Curve struct {
	Dates    []string  `json:"dates"`
	Equity   []float64 `json:"equity"`
	Drawdown []float64 `json:"drawdown"`
	Bench    Bench     `json:"bench"`
}

// Backtester replays the in-or-out filter over daily history: invested
// while the close holds above its slow average and the 12-month
// momentum measured to one month ago is positive, in cash otherwise.
type Backtester struct {
	cfg    *strategy.Config
	md     marketdata.Provider
	logger *logger.Logger
}

func New(cfg *strategy.Config, md marketdata.Provider, log *logger.Logger) *Backtester {
	return &Backtester{cfg: cfg, md: md, logger: log}
}

// RunMulti backtests each distinct ticker over the given number of
// years. Instruments with no usable history are skipped, not failed.
func (b *Backtester) RunMulti(ctx context.Context, tickers []string, years int) Report {
	distinct := dedupeSorted(tickers)
	period := periodFor(years)

	results := make([]Result, 0, len(distinct))
	for _, tk := range distinct {
		series := b.md.History(ctx, tk, period, "1d")
		if series.Len() == 0 {
			b.logger.WithField("ticker", tk).Debug("No history for backtest, skipping")
			continue
		}
		closes := series.Closes()
		equity, trades := strategyEquity(closes, b.smaSlow())
		cagr, maxDD, sharpe := equityStats(equity)
		results = append(results, Result{
			Ticker: tk,
			CAGR:   round6(cagr),
			MaxDD:  round6(maxDD),
			Sharpe: round4(sharpe),
			Trades: trades,
		})
	}

	sum := Summary{Tickers: len(results)}
	if len(results) > 0 {
		for _, r := range results {
			sum.AvgCAGR += r.CAGR
			sum.AvgMaxDD += r.MaxDD
			sum.AvgSharpe += r.Sharpe
		}
		n := float64(len(results))
		sum.AvgCAGR /= n
		sum.AvgMaxDD /= n
		sum.AvgSharpe /= n
	}
	return Report{Summary: sum, Results: results}
}

// EquitySeries returns the dated strategy curve, its drawdown, and a
// normalized buy-and-hold benchmark for one instrument.
func (b *Backtester) EquitySeries(ctx context.Context, ticker string, years int) Curve {
	curve := Curve{
		Dates:    []string{},
		Equity:   []float64{},
		Drawdown: []float64{},
		Bench:    Bench{Label: "Buy&Hold", Equity: []float64{}},
	}

	series := b.md.History(ctx, ticker, periodFor(years), "1d")
	if series.Len() == 0 {
		return curve
	}

	closes := series.Closes()
	equity, _ := strategyEquity(closes, b.smaSlow())

	peak := equity[0]
	for i, bar := range series.Bars {
		if equity[i] > peak {
			peak = equity[i]
		}
		dd := 0.0
		if peak > 0 {
			dd = equity[i]/peak - 1
		}
		bench := 0.0
		if closes[0] > 0 {
			bench = closes[i] / closes[0]
		}
		curve.Dates = append(curve.Dates, bar.Date.Format("2006-01-02"))
		curve.Equity = append(curve.Equity, equity[i])
		curve.Drawdown = append(curve.Drawdown, dd)
		curve.Bench.Equity = append(curve.Bench.Equity, bench)
	}
	return curve
}

// smaSlow reads the trend window from the strategy file, so the replay
// uses the same slow average the live screen does.
func (b *Backtester) smaSlow() int {
	if w := b.cfg.Signals.TechnicalTrend.SMASlow; w > 0 {
		return w
	}
	return 200
}

// strategyEquity compounds the daily returns of the invested days into
// an equity curve starting at 1, and counts position flips as trades.
func strategyEquity(closes []float64, smaWindow int) ([]float64, int) {
	n := len(closes)
	equity := make([]float64, n)
	if n == 0 {
		return equity, 0
	}
	equity[0] = 1

	var sma []float64
	if n >= smaWindow {
		sma = talib.Sma(closes, smaWindow)
	}

	trades := 0
	prevInvested := false
	for i := 1; i < n; i++ {
		inv := invested(closes, sma, i)
		if inv != prevInvested {
			trades++
		}
		prevInvested = inv

		ret := 0.0
		if inv && closes[i-1] > 0 {
			ret = closes[i]/closes[i-1] - 1
		}
		equity[i] = equity[i-1] * (1 + ret)
	}
	return equity, trades
}

// invested reports whether day i passes both filters. Momentum is
// undefined inside the first year, so those days stay in cash.
func invested(closes, sma []float64, i int) bool {
	if i < momWindow || sma == nil || sma[i] <= 0 {
		return false
	}
	base := closes[i-momWindow]
	if base <= 0 {
		return false
	}
	mom := closes[i-skipDays]/base - 1
	return closes[i] >= sma[i] && mom > 0
}

// equityStats derives CAGR, max drawdown, and an annualized Sharpe
// ratio from a daily equity curve.
func equityStats(equity []float64) (cagr, maxDD, sharpe float64) {
	n := len(equity)
	if n == 0 || equity[0] <= 0 {
		return 0, 0, 0
	}

	yrs := float64(n) / tradingDays
	if yrs > 0 && equity[n-1] > 0 {
		cagr = math.Pow(equity[n-1]/equity[0], 1/yrs) - 1
	}

	rets := make([]float64, 0, n)
	rets = append(rets, 0)
	peak := equity[0]
	for i := 1; i < n; i++ {
		if equity[i] > peak {
			peak = equity[i]
		}
		if dd := equity[i]/peak - 1; dd < maxDD {
			maxDD = dd
		}
		if equity[i-1] > 0 {
			rets = append(rets, equity[i]/equity[i-1]-1)
		}
	}

	mu := stat.Mean(rets, nil) * tradingDays
	sigma := stat.PopStdDev(rets, nil) * math.Sqrt(tradingDays)
	if sigma > 1e-12 {
		sharpe = mu / sigma
	}
	return cagr, maxDD, sharpe
}

func periodFor(years int) string {
	if years >= 30 {
		return "max"
	}
	if years < 1 {
		years = 1
	}
	return fmt.Sprintf("%dy", years)
}

func dedupeSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }
