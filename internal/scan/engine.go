package scan

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/scout/internal/events"
	"github.com/wonny/scout/internal/fundamentals"
	"github.com/wonny/scout/internal/marketdata"
	"github.com/wonny/scout/internal/news"
	"github.com/wonny/scout/internal/strategy"
	"github.com/wonny/scout/pkg/config"
	"github.com/wonny/scout/pkg/logger"
)

// Classification thresholds over the accumulated weight sum.
const (
	buyThreshold  = 1.5
	holdThreshold = 0.5
)

// fxFallback keeps pricing alive when the currency pair cannot be
// fetched.
const fxFallback = 0.65

// Engine scores instruments one at a time. It is stateless between
// calls; everything persisted lives in the queue or the caches behind
// the providers.
type Engine struct {
	cfg    *strategy.Config
	md     marketdata.Provider
	fund   fundamentals.Provider
	news   news.Provider
	events *events.Provider
	logger *logger.Logger

	maxUniverse int
	sleep       time.Duration
}

func NewEngine(appCfg *config.Config, stratCfg *strategy.Config, log *logger.Logger, md marketdata.Provider, fund fundamentals.Provider, newsProv news.Provider, ev *events.Provider) *Engine {
	return &Engine{
		cfg:         stratCfg,
		md:          md,
		fund:        fund,
		news:        newsProv,
		events:      ev,
		logger:      log,
		maxUniverse: appCfg.Scan.MaxTickers,
		sleep:       time.Duration(appCfg.Scan.SleepMs) * time.Millisecond,
	}
}

// Screen scores a symbol list and returns the signals ranked by score,
// highest first. The input is deduplicated and sorted before an
// optional chunk window and the size cap apply. Instruments with no
// price data are omitted. Only a malformed chunk spec is an error.
func (e *Engine) Screen(ctx context.Context, tickers []string, maxTickers int, chunk string) ([]Signal, error) {
	if len(tickers) == 0 {
		e.logger.Info("Scan input set is empty")
		return []Signal{}, nil
	}

	uniq := dedupeSorted(tickers)
	uniq, err := applyChunk(uniq, chunk)
	if err != nil {
		return nil, err
	}

	limit := e.maxUniverse
	if maxTickers > 0 {
		limit = maxTickers
	}
	if len(uniq) > limit {
		e.logger.WithFields(map[string]interface{}{
			"from": len(uniq),
			"to":   limit,
		}).Info("Capping scan universe")
		uniq = uniq[:limit]
	}

	out := make([]Signal, 0, len(uniq))
	for i, tk := range uniq {
		if i > 0 && e.sleep > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(e.sleep):
			}
		}
		if sig := e.ScreenOne(ctx, tk); sig != nil {
			out = append(out, *sig)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// ScreenOne scores a single instrument. Nil means no price data was
// available this cycle.
func (e *Engine) ScreenOne(ctx context.Context, ticker string) *Signal {
	series := e.md.History(ctx, ticker, "5y", "1d")
	if series.Len() == 0 {
		e.logger.WithField("ticker", ticker).Debug("No price history, skipping")
		return nil
	}

	closes := series.Closes()
	px := closes[len(closes)-1]
	extras := map[string]interface{}{}

	var reasons []string
	var score float64
	apply := func(name string, r factorResult) {
		if r.status == factorFailed {
			e.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"factor": name,
				"error":  r.err.Error(),
			}).Debug("Factor evaluation failed")
			return
		}
		reasons = append(reasons, r.reasons...)
		score += r.weight
	}

	sig := e.cfg.Signals
	apply("trend", trendFactor(sig.TechnicalTrend, closes, px, extras))
	apply("momentum", momentumFactor(sig.Momentum, closes, extras))
	apply("mean_reversion", meanReversionFactor(sig.MeanReversion, closes, extras))

	facts := e.fund.Facts(ctx, ticker)
	if facts == nil {
		facts = &fundamentals.Bundle{Metrics: map[string]float64{}}
	}
	extras["facts"] = facts

	apply("value", valuationFactor(sig.Value, facts))
	apply("quality", qualityFactor(sig.Quality, facts))

	dy, hasDY := facts.Get("div_yield_ttm")
	if !hasDY {
		if info := e.md.Info(ctx, ticker); info != nil {
			dy, hasDY = info.Float("dividendYield")
		}
	}
	apply("dividend", dividendFactor(sig.Dividend, facts, dy, hasDY, extras))

	var avg float64
	var hasAvg bool
	if sig.NewsSentiment.Enabled {
		avg, hasAvg = e.news.AverageSentiment(ctx, ticker, sig.NewsSentiment.LookbackDays)
	}
	apply("news_sentiment", sentimentFactor(sig.NewsSentiment, avg, hasAvg, extras))
	apply("breakout52w", breakoutFactor(sig.Breakout52W, closes, extras))

	provider := facts.Provider
	if provider == "" {
		provider = "yf"
	}
	extras["facts_provider"] = provider
	extras["facts_completeness"] = facts.Completeness()
	extras["events"] = e.events.EarningsAndDividend(ctx, ticker)

	score = math.Round(score*1000) / 1000
	side := SidePass
	switch {
	case score >= buyThreshold:
		side = SideBuy
	case score >= holdThreshold:
		side = SideHold
	}
	if reasons == nil {
		reasons = []string{}
	}

	return &Signal{
		Ticker:  ticker,
		Side:    side,
		Reasons: reasons,
		Score:   score,
		Px:      e.toBase(ctx, px, resolveCurrency(ticker)),
		AsOf:    time.Now().UTC(),
		Extras:  extras,
	}
}

// News passes recent scored headlines through from the news provider.
func (e *Engine) News(ctx context.Context, ticker string, days, limit int) []news.Item {
	items := e.news.Recent(ctx, ticker, days, limit)
	if items == nil {
		items = []news.Item{}
	}
	return items
}

// resolveCurrency maps the market suffix to a trading currency.
func resolveCurrency(ticker string) string {
	if strings.HasSuffix(ticker, ".AX") {
		return "AUD"
	}
	return "USD"
}

// toBase converts a price into the configured base currency over the
// cached AUD/USD rate. Unknown pairs pass through unchanged.
func (e *Engine) toBase(ctx context.Context, px float64, fromCcy string) float64 {
	base := strings.ToUpper(e.cfg.BaseCurrency)
	if base == fromCcy {
		return px
	}
	if (base == "AUD" && fromCcy == "USD") || (base == "USD" && fromCcy == "AUD") {
		fx, ok := e.md.FX(ctx, "AUDUSD=X")
		if !ok || fx == 0 {
			fx = fxFallback
		}
		if base == "USD" {
			return px * fx
		}
		return px / fx
	}
	return px
}

func dedupeSorted(in []string) []string {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// applyChunk slices a "start:end" window out of the sorted list. A
// malformed spec is a caller error, not something to silently ignore.
func applyChunk(arr []string, chunk string) ([]string, error) {
	if chunk == "" {
		return arr, nil
	}

	startStr, endStr, found := strings.Cut(chunk, ":")
	if !found {
		return nil, fmt.Errorf("invalid chunk spec %q: want start:end", chunk)
	}

	start := 0
	if startStr != "" {
		v, err := strconv.Atoi(startStr)
		if err != nil {
			return nil, fmt.Errorf("invalid chunk start %q: %w", startStr, err)
		}
		start = v
	}
	end := len(arr)
	if endStr != "" {
		v, err := strconv.Atoi(endStr)
		if err != nil {
			return nil, fmt.Errorf("invalid chunk end %q: %w", endStr, err)
		}
		end = v
	}

	start = clamp(start, 0, len(arr))
	end = clamp(end, start, len(arr))
	return arr[start:end], nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
