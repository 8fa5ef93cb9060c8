package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/scout/pkg/diskcache"
	"github.com/wonny/scout/pkg/httputil"
	"github.com/wonny/scout/pkg/logger"
)

// Announcements surfaces recent exchange announcements for Australian
// listings through region-pinned news-search feeds.
type Announcements struct {
	http    *httputil.Client
	logger  *logger.Logger
	disk    *diskcache.Cache
	baseURL string
}

func NewAnnouncements(log *logger.Logger, disk *diskcache.Cache) *Announcements {
	return &Announcements{
		http:    httputil.NewWithTimeout(log, 20*time.Second),
		logger:  log,
		disk:    disk,
		baseURL: googleNewsRSS,
	}
}

func (a *Announcements) WithBaseURL(u string) *Announcements {
	a.baseURL = u
	return a
}

func (a *Announcements) feedURLs(ticker string) []string {
	code := strings.TrimSuffix(ticker, ".AX")
	queries := []string{
		"site:asx.com.au " + code + " announcement",
		code + " ASX announcement",
	}
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		out = append(out, fmt.Sprintf("%s?q=%s&hl=en-AU&gl=AU&ceid=AU:en", a.baseURL, url.QueryEscape(q)))
	}
	return out
}

// Recent returns announcement headlines from the lookback window,
// newest first, deduplicated by title.
func (a *Announcements) Recent(ctx context.Context, ticker string, lookbackDays, limit int) []Item {
	cacheKey := fmt.Sprintf("asx_ann:%s:%d:%d", ticker, lookbackDays, limit)
	var cached []Item
	if a.disk.Get(cacheKey, &cached) {
		return cached
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	var items []Item
	for _, u := range a.feedURLs(ticker) {
		body, status, err := a.http.GetBody(ctx, u)
		if err != nil || status != 200 {
			continue
		}
		for _, it := range parseFeedItems(body) {
			published := parsePubDate(it.PubDate)
			if published != nil && published.Before(cutoff) {
				continue
			}
			items = append(items, Item{Title: it.Title, Link: it.Link, Published: published})
		}
	}

	items = dedupeItems(items)
	if len(items) > limit {
		items = items[:limit]
	}
	a.disk.Set(cacheKey, items)
	return items
}
