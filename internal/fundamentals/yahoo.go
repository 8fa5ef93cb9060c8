package fundamentals

import (
	"context"
	"time"

	"github.com/wonny/scout/internal/marketdata"
	"github.com/wonny/scout/pkg/diskcache"
	"github.com/wonny/scout/pkg/logger"
	"github.com/wonny/scout/pkg/redis"
)

// YahooProvider derives a metric bundle from instrument metadata. Ratio
// fields map straight through; balance-sheet ratios are computed from
// the raw figures when the pieces are present.
type YahooProvider struct {
	md     marketdata.Provider
	logger *logger.Logger
	disk   *diskcache.Cache
	shared *redis.Cache
	ttl    time.Duration
}

func NewYahooProvider(md marketdata.Provider, log *logger.Logger, disk *diskcache.Cache, shared *redis.Cache, ttl time.Duration) *YahooProvider {
	return &YahooProvider{md: md, logger: log, disk: disk, shared: shared, ttl: ttl}
}

func (p *YahooProvider) Facts(ctx context.Context, ticker string) *Bundle {
	cacheKey := "facts_yf:" + ticker

	var cached Bundle
	if ok, err := p.shared.Get(ctx, redis.FactsKey(ticker), &cached); err == nil && ok {
		return &cached
	}
	if p.disk.Get(cacheKey, &cached) {
		return &cached
	}

	info := p.md.Info(ctx, ticker)
	if info == nil {
		return nil
	}

	bundle := &Bundle{Provider: "yf", Metrics: make(map[string]float64)}
	put := func(metric string, keys ...string) {
		if v, ok := info.Float(keys...); ok {
			bundle.Metrics[metric] = v
		}
	}
	put("pe_ttm", "trailingPE")
	put("pe_fwd", "forwardPE")
	put("peg", "pegRatio", "trailingPegRatio")
	put("pb", "priceToBook")
	put("ev_ebitda", "enterpriseToEbitda")
	put("div_yield_ttm", "dividendYield")
	put("payout_ratio", "payoutRatio")
	put("roe", "returnOnEquity")
	put("gross_margin", "grossMargins")

	if revenue, ok := info.Float("totalRevenue"); ok && revenue != 0 {
		if fcf, ok := info.Float("freeCashflow"); ok {
			bundle.Metrics["fcf_margin"] = fcf / revenue
		}
	}
	if ebitda, ok := info.Float("ebitda"); ok && ebitda != 0 {
		debt, hasDebt := info.Float("totalDebt")
		cash, hasCash := info.Float("totalCash")
		if hasDebt && hasCash {
			bundle.Metrics["net_debt_ebitda"] = (debt - cash) / ebitda
		}
	}

	p.disk.Set(cacheKey, bundle)
	_ = p.shared.Set(ctx, redis.FactsKey(ticker), bundle, p.ttl)
	return bundle
}
