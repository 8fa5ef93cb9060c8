package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scout/pkg/config"
	"github.com/wonny/scout/pkg/logger"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.MarketData.RequestsPerSec = 1000
	cfg.MarketData.MaxRetries = 2
	cfg.MarketData.BaseSleep = 5 * time.Millisecond
	cfg.MarketData.PriceTTL = time.Minute
	cfg.MarketData.FactsTTL = time.Minute
	cfg.MarketData.FXTTL = time.Minute
	return cfg
}

func chartBody(symbol, currency string, closes []float64) string {
	ts := ""
	cl := ""
	base := int64(1700000000)
	for i, c := range closes {
		if i > 0 {
			ts += ","
			cl += ","
		}
		ts += fmt.Sprintf("%d", base+int64(i)*86400)
		cl += fmt.Sprintf("%g", c)
	}
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"currency":%q},"timestamp":[%s],"indicators":{"quote":[{"close":[%s]}]}}]}}`, currency, ts, cl)
}

func TestHistoryParsesChart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/AAPL")
		fmt.Fprint(w, chartBody("AAPL", "USD", []float64{100, 101, 102}))
	}))
	defer srv.Close()

	c := NewClient(testConfig(), logger.Nop()).WithBaseURL(srv.URL)
	series := c.History(context.Background(), "AAPL", "1y", "1d")
	require.NotNil(t, series)
	assert.Equal(t, 3, series.Len())
	assert.Equal(t, "USD", series.Currency)
	assert.InDelta(t, 102, series.Last(), 1e-9)
}

func TestHistorySkipsNilCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"currency":"USD"},"timestamp":[1700000000,1700086400,1700172800],"indicators":{"quote":[{"close":[100,null,102]}]}}]}}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(), logger.Nop()).WithBaseURL(srv.URL)
	series := c.History(context.Background(), "AAPL", "1y", "1d")
	require.NotNil(t, series)
	assert.Equal(t, 2, series.Len())
	assert.Equal(t, []float64{100, 102}, series.Closes())
}

func TestHistoryCachesByKey(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, chartBody("AAPL", "USD", []float64{100}))
	}))
	defer srv.Close()

	c := NewClient(testConfig(), logger.Nop()).WithBaseURL(srv.URL)
	ctx := context.Background()

	require.NotNil(t, c.History(ctx, "AAPL", "1y", "1d"))
	require.NotNil(t, c.History(ctx, "AAPL", "1y", "1d"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second call must be served from cache")

	// A different interval is a different cache entry.
	require.NotNil(t, c.History(ctx, "AAPL", "1y", "1wk"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestRetryExhaustionReportsAbsence(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(testConfig(), logger.Nop()).WithBaseURL(srv.URL)
	series := c.History(context.Background(), "AAPL", "1y", "1d")

	assert.Nil(t, series, "exhausted retries must surface as absence")
	// maxRetries 2 means the initial attempt plus two retries.
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestRetryRecoversAfterRateLimit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, chartBody("AAPL", "USD", []float64{100, 101}))
	}))
	defer srv.Close()

	start := time.Now()
	c := NewClient(testConfig(), logger.Nop()).WithBaseURL(srv.URL)
	series := c.History(context.Background(), "AAPL", "1y", "1d")

	require.NotNil(t, series)
	assert.Equal(t, 2, series.Len())
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	// base*2^0 + base*2^1 of rate-limit backoff must have elapsed.
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestNotFoundIsAbsentWithoutRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testConfig(), logger.Nop()).WithBaseURL(srv.URL)
	series := c.History(context.Background(), "NOPE", "1y", "1d")

	require.NotNil(t, series, "a delisted symbol yields an empty series, not an error")
	assert.Equal(t, 0, series.Len())
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "404 must not be retried")
}

func TestInfoFlattensRawFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v10/finance/quoteSummary/AAPL")
		assert.Contains(t, r.URL.RawQuery, "assetProfile")
		fmt.Fprint(w, `{"quoteSummary":{"result":[{
			"summaryDetail":{"trailingPE":{"raw":27.5,"fmt":"27.50"},"dividendYield":{"raw":0.005}},
			"assetProfile":{"sector":"Technology","fullTimeEmployees":{"raw":160000}},
			"calendarEvents":{"earnings":{"earningsDate":[{"raw":1766880000},{"raw":1767312000}]},"exDividendDate":{"raw":1765000000}}
		}]}}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(), logger.Nop()).WithBaseURL(srv.URL)
	info := c.Info(context.Background(), "AAPL")
	require.NotNil(t, info)

	pe, ok := info.Float("trailingPE")
	require.True(t, ok)
	assert.InDelta(t, 27.5, pe, 1e-9)

	assert.Equal(t, "Technology", info.String("sector"))

	// The earnings calendar date is pulled up from its nested array.
	ed, ok := info.Float("earningsDate")
	require.True(t, ok)
	assert.InDelta(t, 1766880000, ed, 1e-9)

	xd, ok := info.Float("exDividendDate")
	require.True(t, ok)
	assert.InDelta(t, 1765000000, xd, 1e-9)
}

func TestFXReturnsLatestClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartBody("AUDUSD=X", "USD", []float64{0.64, 0.65, 0.66}))
	}))
	defer srv.Close()

	c := NewClient(testConfig(), logger.Nop()).WithBaseURL(srv.URL)
	fx, ok := c.FX(context.Background(), "AUDUSD=X")
	require.True(t, ok)
	assert.InDelta(t, 0.66, fx, 1e-9)
}

func TestTTLCacheEvictsOnRead(t *testing.T) {
	cache := newTTLCache(10 * time.Millisecond)
	cache.set("k", 42)

	v, ok := cache.get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	time.Sleep(20 * time.Millisecond)
	_, ok = cache.get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.len(), "expired entry is removed on read")
}
