package fundamentals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/scout/pkg/httputil"
	"github.com/wonny/scout/pkg/logger"
)

const fmpBaseURL = "https://financialmodelingprep.com/api/v3"

// FMPProvider pulls TTM ratio bundles from Financial Modeling Prep.
// Only usable with an API key; failures fall back to an empty bundle so
// scoring proceeds with whatever is present.
type FMPProvider struct {
	http    *httputil.Client
	logger  *logger.Logger
	key     string
	baseURL string
}

func NewFMPProvider(log *logger.Logger, key string) *FMPProvider {
	return &FMPProvider{
		http:    httputil.NewWithTimeout(log, 20*time.Second),
		logger:  log,
		key:     key,
		baseURL: fmpBaseURL,
	}
}

// WithBaseURL points the provider at a different upstream. Used in tests.
func (p *FMPProvider) WithBaseURL(u string) *FMPProvider {
	p.baseURL = u
	return p
}

func (p *FMPProvider) Facts(ctx context.Context, ticker string) *Bundle {
	if p.key == "" {
		return nil
	}

	profile := p.fetch(ctx, "profile/"+ticker)
	keyMetrics := p.fetch(ctx, "key-metrics-ttm/"+ticker)
	ratios := p.fetch(ctx, "ratios-ttm/"+ticker)

	bundle := &Bundle{Provider: "fmp", Metrics: make(map[string]float64)}
	put := func(metric string, record map[string]interface{}, field string) {
		if v, ok := record[field].(float64); ok {
			bundle.Metrics[metric] = v
		}
	}
	put("pe_ttm", ratios, "priceEarningsRatioTTM")
	put("pe_fwd", keyMetrics, "peRatioForwardTTM")
	put("peg", keyMetrics, "pegRatioTTM")
	put("pb", ratios, "priceToBookRatioTTM")
	put("ev_ebitda", ratios, "enterpriseValueOverEBITDATTM")
	put("payout_ratio", ratios, "payoutRatioTTM")
	put("gross_margin", ratios, "grossProfitMarginTTM")
	put("roe", ratios, "returnOnEquityTTM")
	put("fcf_margin", keyMetrics, "freeCashFlowMarginTTM")
	put("net_debt_ebitda", keyMetrics, "netDebtToEBITDATTM")

	price, hasPrice := profile["price"].(float64)
	lastDiv, hasDiv := profile["lastDiv"].(float64)
	if hasPrice && hasDiv && price != 0 && lastDiv != 0 {
		bundle.Metrics["div_yield_ttm"] = lastDiv / price
	}

	return bundle
}

// fetch returns the first record of an endpoint response, empty on any
// failure. FMP wraps single-symbol lookups in a one-element array.
func (p *FMPProvider) fetch(ctx context.Context, path string) map[string]interface{} {
	u := fmt.Sprintf("%s/%s?apikey=%s", p.baseURL, path, url.QueryEscape(p.key))

	body, status, err := p.http.GetBody(ctx, u)
	if err != nil || status != 200 {
		p.logger.WithFields(map[string]interface{}{
			"path":   path,
			"status": status,
		}).Debug("Fundamentals endpoint unavailable")
		return map[string]interface{}{}
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(body, &records); err == nil && len(records) > 0 {
		return records[0]
	}

	var record map[string]interface{}
	if err := json.Unmarshal(body, &record); err == nil {
		return record
	}
	return map[string]interface{}{}
}
