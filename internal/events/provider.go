package events

import (
	"context"
	"time"

	"github.com/wonny/scout/internal/marketdata"
	"github.com/wonny/scout/pkg/diskcache"
	"github.com/wonny/scout/pkg/logger"
)

// Calendar holds the upcoming dates attached to scan results. Absent
// dates are omitted from the JSON shape.
type Calendar struct {
	EarningsDate string `json:"earnings_date,omitempty"`
	ExDivDate    string `json:"ex_div_date,omitempty"`
}

// Provider reads calendar dates out of instrument metadata. A failed
// lookup yields an empty calendar, never an error.
type Provider struct {
	md     marketdata.Provider
	logger *logger.Logger
	disk   *diskcache.Cache
}

func NewProvider(md marketdata.Provider, log *logger.Logger, disk *diskcache.Cache) *Provider {
	return &Provider{md: md, logger: log, disk: disk}
}

func (p *Provider) EarningsAndDividend(ctx context.Context, ticker string) Calendar {
	cacheKey := "events:" + ticker
	var cached Calendar
	if p.disk.Get(cacheKey, &cached) {
		return cached
	}

	var cal Calendar
	info := p.md.Info(ctx, ticker)
	if info == nil {
		return cal
	}

	if ts, ok := info.Float("earningsDate"); ok {
		cal.EarningsDate = time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
	}
	if ts, ok := info.Float("exDividendDate"); ok {
		cal.ExDivDate = time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
	}

	p.disk.Set(cacheKey, cal)
	return cal
}
