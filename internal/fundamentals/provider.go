package fundamentals

import (
	"context"
	"math"
)

// expectedMetrics is the metric set a fully populated bundle carries.
// Completeness is measured against it regardless of which provider
// filled the bundle.
var expectedMetrics = []string{
	"pe_ttm", "pe_fwd", "peg", "pb", "ev_ebitda", "roe",
	"gross_margin", "fcf_margin", "net_debt_ebitda", "div_yield_ttm", "payout_ratio",
}

// Bundle is one instrument's fundamental metrics. Metrics only holds
// values that were actually obtained; absent metrics have no key.
type Bundle struct {
	Provider string             `json:"provider"`
	Metrics  map[string]float64 `json:"metrics"`
}

// Get reads the first present metric among keys.
func (b *Bundle) Get(keys ...string) (float64, bool) {
	if b == nil {
		return 0, false
	}
	for _, k := range keys {
		if v, ok := b.Metrics[k]; ok {
			return v, true
		}
	}
	return 0, false
}

// Completeness reports the covered share of the expected metric set,
// rounded to two decimals.
func (b *Bundle) Completeness() float64 {
	present := 0
	if b != nil {
		for _, k := range expectedMetrics {
			if _, ok := b.Metrics[k]; ok {
				present++
			}
		}
	}
	return math.Round(float64(present)/float64(len(expectedMetrics))*100) / 100
}

// Provider fetches fundamental metric bundles. A nil bundle or an empty
// metric map means the data could not be obtained; callers score with
// what they have.
type Provider interface {
	Facts(ctx context.Context, ticker string) *Bundle
}
