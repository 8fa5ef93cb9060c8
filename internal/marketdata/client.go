package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/scout/pkg/config"
	"github.com/wonny/scout/pkg/httputil"
	"github.com/wonny/scout/pkg/logger"
)

// errRateLimited marks a failure where the upstream told us to back off.
// It gets a steeper backoff curve than ordinary transient failures.
var errRateLimited = errors.New("rate limited by upstream")

// Client is the resilient market-data access layer: one shared throttle
// gate across all call kinds, per-kind TTL caches, and retry with
// backoff classified by failure kind. Exhausted retries surface as
// absence, never as an error.
type Client struct {
	http       *httputil.Client
	logger     *logger.Logger
	limiter    *rate.Limiter
	maxRetries int
	baseSleep  time.Duration

	prices *ttlCache
	infos  *ttlCache
	fxs    *ttlCache

	baseURL string
}

// infoModules is the quoteSummary module set flattened into an Info.
const infoModules = "assetProfile,summaryDetail,defaultKeyStatistics,financialData,calendarEvents"

// NewClient creates the data access layer from config.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	md := cfg.MarketData
	return &Client{
		// burst 1 makes the limiter a minimum inter-call spacing gate
		http:       httputil.NewWithTimeout(log, 20*time.Second).DisableRetry(),
		logger:     log,
		limiter:    rate.NewLimiter(rate.Limit(md.RequestsPerSec), 1),
		maxRetries: md.MaxRetries,
		baseSleep:  md.BaseSleep,
		prices:     newTTLCache(md.PriceTTL),
		infos:      newTTLCache(md.FactsTTL),
		fxs:        newTTLCache(md.FXTTL),
		baseURL:    "https://query1.finance.yahoo.com",
	}
}

// WithBaseURL points the client at a different upstream. Used in tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// History fetches a daily close series. A nil result means no data could
// be obtained this cycle and the instrument should be skipped.
func (c *Client) History(ctx context.Context, symbol, period, interval string) *Series {
	key := fmt.Sprintf("h:%s:%s:%s", symbol, period, interval)
	if v, ok := c.prices.get(key); ok {
		return v.(*Series)
	}

	out, ok := c.withRetry(ctx, key, func() (interface{}, error) {
		return c.fetchChart(ctx, symbol, period, interval)
	})
	if !ok || out == nil {
		return nil
	}

	series := out.(*Series)
	c.prices.set(key, series)
	return series
}

// Info fetches instrument metadata and fundamental fields. Nil means
// absent.
func (c *Client) Info(ctx context.Context, symbol string) Info {
	key := fmt.Sprintf("i:%s", symbol)
	if v, ok := c.infos.get(key); ok {
		return v.(Info)
	}

	out, ok := c.withRetry(ctx, key, func() (interface{}, error) {
		return c.fetchInfo(ctx, symbol)
	})
	if !ok || out == nil {
		return nil
	}

	info := out.(Info)
	c.infos.set(key, info)
	return info
}

// FX fetches the latest rate for a currency pair.
func (c *Client) FX(ctx context.Context, pair string) (float64, bool) {
	key := fmt.Sprintf("fx:%s", pair)
	if v, ok := c.fxs.get(key); ok {
		return v.(float64), true
	}

	out, ok := c.withRetry(ctx, key, func() (interface{}, error) {
		series, err := c.fetchChart(ctx, pair, "7d", "1d")
		if err != nil {
			return nil, err
		}
		if series.Len() == 0 {
			return nil, nil
		}
		return series.Last(), nil
	})
	if !ok || out == nil {
		return 0, false
	}

	fx := out.(float64)
	c.fxs.set(key, fx)
	return fx, true
}

// withRetry runs one upstream call under the shared throttle gate with
// backoff. Rate-limit failures back off at base*2^attempt, other
// transient failures at base*1.5^attempt. Exhaustion reports absence.
func (c *Client) withRetry(ctx context.Context, key string, do func() (interface{}, error)) (interface{}, bool) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, false
		}

		out, err := do()
		if err == nil {
			return out, true
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}

		var sleep time.Duration
		if errors.Is(err, errRateLimited) {
			sleep = time.Duration(float64(c.baseSleep) * math.Pow(2, float64(attempt)))
		} else {
			sleep = time.Duration(float64(c.baseSleep) * math.Pow(1.5, float64(attempt)))
		}

		c.logger.WithFields(map[string]interface{}{
			"key":     key,
			"attempt": attempt + 1,
			"sleep":   sleep,
			"error":   err.Error(),
		}).Warn("Market data call failed, backing off")

		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(sleep):
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"key":   key,
		"error": lastErr.Error(),
	}).Warn("Market data call gave up after retries")
	return nil, false
}

// ---- chart endpoint ----

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) fetchChart(ctx context.Context, symbol, period, interval string) (*Series, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s&events=div",
		c.baseURL, url.PathEscape(symbol), url.QueryEscape(period), url.QueryEscape(interval))

	body, err := c.fetchJSON(ctx, u)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return &Series{Symbol: symbol}, nil
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode chart response: %w", err)
	}
	if len(parsed.Chart.Result) == 0 {
		return &Series{Symbol: symbol}, nil
	}

	result := parsed.Chart.Result[0]
	series := &Series{Symbol: symbol, Currency: result.Meta.Currency}
	if len(result.Indicators.Quote) == 0 {
		return series, nil
	}

	closes := result.Indicators.Quote[0].Close
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		series.Bars = append(series.Bars, Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *closes[i],
		})
	}
	return series, nil
}

// ---- quoteSummary endpoint ----

func (c *Client) fetchInfo(ctx context.Context, symbol string) (Info, error) {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		c.baseURL, url.PathEscape(symbol), infoModules)

	body, err := c.fetchJSON(ctx, u)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return Info{}, nil
	}

	var parsed struct {
		QuoteSummary struct {
			Result []map[string]map[string]json.RawMessage `json:"result"`
		} `json:"quoteSummary"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode quoteSummary response: %w", err)
	}
	if len(parsed.QuoteSummary.Result) == 0 {
		return Info{}, nil
	}

	info := Info{}
	for _, module := range parsed.QuoteSummary.Result[0] {
		for field, raw := range module {
			info.merge(field, raw)
		}
	}
	return info, nil
}

// merge flattens one quoteSummary field. Numeric fields arrive wrapped
// as {"raw": n, "fmt": "..."}; profile fields are plain scalars. The
// earnings calendar nests its date one level deeper, so it is pulled up
// explicitly.
func (i Info) merge(field string, raw json.RawMessage) {
	if field == "earnings" {
		var nested struct {
			EarningsDate []struct {
				Raw *float64 `json:"raw"`
			} `json:"earningsDate"`
		}
		if json.Unmarshal(raw, &nested) == nil && len(nested.EarningsDate) > 0 && nested.EarningsDate[0].Raw != nil {
			i["earningsDate"] = *nested.EarningsDate[0].Raw
		}
		return
	}
	var wrapped struct {
		Raw *float64 `json:"raw"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Raw != nil {
		i[field] = *wrapped.Raw
		return
	}

	var scalar interface{}
	if err := json.Unmarshal(raw, &scalar); err != nil {
		return
	}
	switch scalar.(type) {
	case string, float64, bool:
		i[field] = scalar
	}
}

// fetchJSON issues one throttled GET and classifies the failure. A nil
// body with nil error means the symbol does not exist upstream.
func (c *Client) fetchJSON(ctx context.Context, u string) ([]byte, error) {
	body, status, err := c.http.GetBody(ctx, u)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		return body, nil
	case status == http.StatusTooManyRequests || status == 999:
		return nil, errRateLimited
	case status == http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}
}
