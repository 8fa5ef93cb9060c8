package news

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

	"github.com/wonny/scout/pkg/diskcache"
	"github.com/wonny/scout/pkg/logger"
)

func feedXML(items ...string) string {
	body := `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel>`
	for _, it := range items {
		body += it
	}
	return body + "</channel></rss>"
}

func feedItem(title, pubDate string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>https://example.com/a</link><description></description><pubDate>%s</pubDate></item>`, title, pubDate)
}

func testRSS(t *testing.T, url string) *RSSProvider {
	t.Helper()
	disk := diskcache.New(t.TempDir(), time.Hour)
	return NewRSSProvider(logger.Nop(), disk).WithBaseURL(url)
}

func TestScoreText(t *testing.T) {
	assert.Greater(t, scoreText("Acme beats earnings, shares surge"), 0.0)
	assert.Less(t, scoreText("Acme misses estimates, stock plunges"), 0.0)
	assert.Zero(t, scoreText("Acme holds annual general meeting"))

	// Scores are squashed into [-1, 1] regardless of headline length.
	long := scoreText("surge surge surge surge surge surge surge surge")
	assert.LessOrEqual(t, long, 1.0)

	// Negation flips and dampens the hit.
	plain := scoreText("profit growth")
	negated := scoreText("no profit growth")
	assert.Less(t, negated, plain)
}

func TestAverageSentiment(t *testing.T) {
	recent := time.Now().UTC().Format(time.RFC1123Z)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedXML(
			feedItem("Acme beats expectations, shares rally", recent),
			feedItem("Acme profit jumps on record growth", recent),
		))
	}))
	defer srv.Close()

	p := testRSS(t, srv.URL)
	avg, ok := p.AverageSentiment(context.Background(), "ACME", 7)
	require.True(t, ok)
	assert.Greater(t, avg, 0.0)
}

func TestAverageSentimentNoHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedXML())
	}))
	defer srv.Close()

	p := testRSS(t, srv.URL)
	avg, ok := p.AverageSentiment(context.Background(), "ACME", 7)
	assert.False(t, ok, "no headlines is not a zero average")
	assert.Zero(t, avg)
}

func TestAverageSentimentCaches(t *testing.T) {
	var hits int32
	recent := time.Now().UTC().Format(time.RFC1123Z)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, feedXML(feedItem("Acme gains", recent)))
	}))
	defer srv.Close()

	p := testRSS(t, srv.URL)
	ctx := context.Background()

	first, ok := p.AverageSentiment(ctx, "ACME", 7)
	require.True(t, ok)
	n := atomic.LoadInt32(&hits)

	second, ok := p.AverageSentiment(ctx, "ACME", 7)
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, n, atomic.LoadInt32(&hits), "second read must come from cache")
}

func TestRecentFiltersAndDeduplicates(t *testing.T) {
	now := time.Now().UTC()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedXML(
			feedItem("Fresh headline", now.Format(time.RFC1123Z)),
			feedItem("Fresh headline", now.Add(-time.Hour).Format(time.RFC1123Z)),
			feedItem("Stale headline", now.AddDate(0, 0, -30).Format(time.RFC1123Z)),
			feedItem("Undated headline", ""),
		))
	}))
	defer srv.Close()

	p := testRSS(t, srv.URL)
	items := p.Recent(context.Background(), "ACME", 7, 10)

	titles := make([]string, 0, len(items))
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	assert.NotContains(t, titles, "Stale headline")
	assert.Contains(t, titles, "Undated headline", "items without a parseable date are kept")
	assert.Contains(t, titles, "Fresh headline")

	count := 0
	for _, title := range titles {
		if title == "Fresh headline" {
			count++
		}
	}
	assert.Equal(t, 1, count, "duplicate titles collapse to the newest")
}

func TestRecentLimit(t *testing.T) {
	recent := time.Now().UTC().Format(time.RFC1123Z)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedXML(
			feedItem("One", recent),
			feedItem("Two", recent),
			feedItem("Three", recent),
		))
	}))
	defer srv.Close()

	p := testRSS(t, srv.URL)
	items := p.Recent(context.Background(), "ACME", 7, 2)
	assert.Len(t, items, 2)
}

func TestQueryURLsForASX(t *testing.T) {
	p := testRSS(t, "http://feeds.local")

	urls := p.queryURLs("AAPL")
	require.Len(t, urls, 1)
	assert.Contains(t, urls[0], "AAPL+stock")

	urls = p.queryURLs("CBA.AX")
	require.Len(t, urls, 3)
	assert.Contains(t, urls[1], "ASX+announcement")
	assert.Contains(t, urls[2], "asx.com.au")
}

func TestParsePubDate(t *testing.T) {
	got := parsePubDate("Mon, 02 Jan 2026 15:04:05 +0000")
	require.NotNil(t, got)
	assert.Equal(t, 2026, got.Year())

	assert.Nil(t, parsePubDate(""))
	assert.Nil(t, parsePubDate("not a date"))
}
