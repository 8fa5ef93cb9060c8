package universe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scout/pkg/config"
	"github.com/wonny/scout/pkg/logger"
	"github.com/wonny/scout/pkg/redis"
)

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	cfg := &config.Config{}
	cfg.CacheDir = t.TempDir()
	cfg.UniverseDir = t.TempDir()
	cfg.Scan.UniverseTTL = 24 * time.Hour

	rdb, err := redis.New(cfg)
	require.NoError(t, err)

	return NewResolver(cfg, logger.Nop(), redis.NewCache(rdb, "test"))
}

func writeUniverseFile(t *testing.T, r *Resolver, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(r.universeDir, name+".txt"), []byte(body), 0o644))
}

// pointRemotesAt redirects every remote universe source for the duration
// of the test.
func pointRemotesAt(t *testing.T, url string) {
	t.Helper()
	origWiki, origWikiASX := sp500WikiURL, asx200WikiURL
	origCSV, origCSVASX := sp500CSVURL, asx200CSVURLs
	sp500WikiURL = url + "/wiki/sp500"
	asx200WikiURL = url + "/wiki/asx200"
	sp500CSVURL = url + "/csv/sp500"
	asx200CSVURLs = []string{url + "/csv/asx200"}
	t.Cleanup(func() {
		sp500WikiURL, asx200WikiURL = origWiki, origWikiASX
		sp500CSVURL, asx200CSVURLs = origCSV, origCSVASX
	})
}

func TestResolveLocalFile(t *testing.T) {
	r := testResolver(t)
	writeUniverseFile(t, r, "mylist", "# my watchlist\naapl\n\nMSFT\nNVDA\n")

	got := r.Resolve(context.Background(), []string{"file:mylist"})
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, got)

	// A bare unknown name reads the same bundled file.
	got = r.Resolve(context.Background(), []string{"mylist"})
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, got)
}

func TestResolveUnionIsSortedAndDeduplicated(t *testing.T) {
	r := testResolver(t)
	writeUniverseFile(t, r, "a", "MSFT\nAAPL\n")
	writeUniverseFile(t, r, "b", "NVDA\nAAPL\n")

	got := r.Resolve(context.Background(), []string{"a", "b"})
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, got)
}

func TestResolveMissingContributesNothing(t *testing.T) {
	r := testResolver(t)
	writeUniverseFile(t, r, "a", "AAPL\n")

	got := r.Resolve(context.Background(), []string{"a", "file:nope", ""})
	assert.Equal(t, []string{"AAPL"}, got)
}

func TestAutoFallsBackToSeedAndCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	pointRemotesAt(t, srv.URL)

	r := testResolver(t)
	ctx := context.Background()

	got := r.resolveOne(ctx, "auto:sp500")
	require.NotEmpty(t, got)
	assert.Contains(t, got, "AAPL")
	assert.Contains(t, got, "BRK-B")
	firstHits := atomic.LoadInt32(&hits)
	assert.Greater(t, firstHits, int32(0))

	// The seed result was written back, so re-resolving within the TTL
	// must not touch the network again.
	got2 := r.resolveOne(ctx, "auto:sp500")
	assert.Equal(t, got, got2)
	assert.Equal(t, firstHits, atomic.LoadInt32(&hits))

	// Refresh drops the cached copy and goes remote again.
	r.Refresh(ctx, "auto:sp500")
	assert.Greater(t, atomic.LoadInt32(&hits), firstHits)
}

func TestAutoPrefersBundledFileOverSeed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	pointRemotesAt(t, srv.URL)

	r := testResolver(t)
	writeUniverseFile(t, r, "asx200", "CBA.AX\nBHP.AX\n")

	got := r.resolveOne(context.Background(), "auto:asx200")
	assert.Equal(t, []string{"CBA.AX", "BHP.AX"}, got)
}

func TestAutoUnknownKey(t *testing.T) {
	r := testResolver(t)
	assert.Empty(t, r.resolveOne(context.Background(), "auto:ftse100"))
}

func TestFetchSP500ParsesConstituentsTable(t *testing.T) {
	page := `<html><body>
<table id="constituents" class="wikitable">
<tr><th>Symbol</th><th>Security</th></tr>
<tr><td>MMM</td><td>3M</td></tr>
<tr><td>AAPL</td><td>Apple</td></tr>
<tr><td>BRK.B</td><td>Berkshire Hathaway</td></tr>
<tr><td>AAPL</td><td>Apple duplicate row</td></tr>
</table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()
	orig := sp500WikiURL
	sp500WikiURL = srv.URL
	t.Cleanup(func() { sp500WikiURL = orig })

	r := testResolver(t)
	got, err := r.fetchSP500(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"MMM", "AAPL", "BRK-B"}, got)
}

func TestFetchASX200SuffixesCodes(t *testing.T) {
	page := `<html><body>
<table class="wikitable">
<tr><th>Code</th><th>Company</th><th>Sector</th></tr>
<tr><td>CBA</td><td>Commonwealth Bank</td><td>Financials</td></tr>
<tr><td>BHP</td><td>BHP Group</td><td>Materials</td></tr>
<tr><td>A very long cell that is not a code</td><td>X</td><td>Y</td></tr>
</table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()
	orig := asx200WikiURL
	asx200WikiURL = srv.URL
	t.Cleanup(func() { asx200WikiURL = orig })

	r := testResolver(t)
	got, err := r.fetchASX200(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CBA.AX", "BHP.AX"}, got)
}

func TestFetchASX200ReadsOnlySymbolColumn(t *testing.T) {
	// The index page carries more wikitables than the constituents one.
	// Header cells and annual-return year rows must not become tickers.
	page := `<html><body>
<table class="wikitable">
<tr><th>Year</th><th>Return</th></tr>
<tr><td>2023</td><td>12.1%</td></tr>
<tr><td>2024</td><td>7.9%</td></tr>
</table>
<table class="wikitable">
<tr><th>Company</th><th>Code</th><th>Sector</th></tr>
<tr><td>Commonwealth Bank</td><td>CBA</td><td>Financials</td></tr>
<tr><td>Woodside</td><td>ASX:WDS</td><td>Energy</td></tr>
<tr><td>Some Company</td><td></td><td>Industrials</td></tr>
</table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()
	orig := asx200WikiURL
	asx200WikiURL = srv.URL
	t.Cleanup(func() { asx200WikiURL = orig })

	r := testResolver(t)
	got, err := r.fetchASX200(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CBA.AX", "WDS.AX"}, got)
	assert.NotContains(t, got, "CODE.AX")
	assert.NotContains(t, got, "2023.AX")
	assert.NotContains(t, got, "YEAR.AX")
}

func TestFetchCSVSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Symbol,Name\nBRK.B,Berkshire\nmsft,Microsoft\n,Blank\n")
	}))
	defer srv.Close()

	r := testResolver(t)
	got, err := r.fetchCSVSymbols(context.Background(), srv.URL, []string{"Symbol"}, sp500CSVTransform)
	require.NoError(t, err)
	assert.Equal(t, []string{"BRK-B", "MSFT"}, got)
}

func TestLocalNames(t *testing.T) {
	r := testResolver(t)
	writeUniverseFile(t, r, "sp500", "AAPL\n")
	writeUniverseFile(t, r, "asx200", "CBA.AX\n")
	require.NoError(t, os.WriteFile(filepath.Join(r.universeDir, "notes.md"), []byte("x"), 0o644))

	assert.Equal(t, []string{"asx200", "sp500"}, r.LocalNames())
}

func TestCachePathSanitizesKey(t *testing.T) {
	r := testResolver(t)
	p := r.cachePath("auto:sp500")
	assert.Equal(t, "auto_sp500.txt", filepath.Base(p))
}
