package marketdata

import (
	"context"
	"time"
)

// Bar is one daily observation of an instrument.
type Bar struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Series is an ordered-by-date close-price history for one instrument.
// Never mutated in place; expiry refetches the whole series.
type Series struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency,omitempty"`
	Bars     []Bar  `json:"bars"`
}

// Len returns the number of bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes returns the close prices in date order.
func (s *Series) Closes() []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Last returns the most recent close, or 0 for an empty series.
func (s *Series) Last() float64 {
	if s.Len() == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}

// Info is a flattened instrument metadata record: profile strings plus
// fundamental figures, keyed by the upstream field name.
type Info map[string]interface{}

// Float reads the first present numeric field among keys.
func (i Info) Float(keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := i[k].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		}
	}
	return 0, false
}

// String reads a string field, empty if missing.
func (i Info) String(key string) string {
	if v, ok := i[key].(string); ok {
		return v
	}
	return ""
}

// Provider is the capability set the rest of the system depends on.
// Absence (nil series, nil info, ok=false) means the data could not be
// obtained this cycle; callers skip rather than fail.
type Provider interface {
	// History fetches a daily close series, e.g. period "5y", interval "1d".
	History(ctx context.Context, symbol, period, interval string) *Series
	// Info fetches instrument metadata and fundamental fields.
	Info(ctx context.Context, symbol string) Info
	// FX fetches the latest rate for a pair such as "AUDUSD=X".
	FX(ctx context.Context, pair string) (float64, bool)
}
