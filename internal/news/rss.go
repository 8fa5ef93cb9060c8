package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/scout/pkg/diskcache"
	"github.com/wonny/scout/pkg/httputil"
	"github.com/wonny/scout/pkg/logger"
)

const googleNewsRSS = "https://news.google.com/rss/search"

// RSSProvider scores public news-search feeds. Australian listings get
// extra exchange-announcement queries since their generic ticker query
// is usually too noisy.
type RSSProvider struct {
	http    *httputil.Client
	logger  *logger.Logger
	disk    *diskcache.Cache
	baseURL string
}

func NewRSSProvider(log *logger.Logger, disk *diskcache.Cache) *RSSProvider {
	return &RSSProvider{
		http:    httputil.NewWithTimeout(log, 20*time.Second),
		logger:  log,
		disk:    disk,
		baseURL: googleNewsRSS,
	}
}

// WithBaseURL points the provider at a different feed host. Used in tests.
func (p *RSSProvider) WithBaseURL(u string) *RSSProvider {
	p.baseURL = u
	return p
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

func (p *RSSProvider) queryURLs(ticker string) []string {
	queries := []string{ticker + " stock"}
	if code, ok := strings.CutSuffix(ticker, ".AX"); ok {
		queries = append(queries,
			code+" ASX announcement",
			"site:asx.com.au "+code+" announcement",
		)
	}

	out := make([]string, 0, len(queries))
	for _, q := range queries {
		out = append(out, fmt.Sprintf("%s?q=%s&hl=en-US&gl=US&ceid=US:en", p.baseURL, url.QueryEscape(q)))
	}
	return out
}

type sentimentSnapshot struct {
	Avg float64 `json:"avg"`
	OK  bool    `json:"ok"`
}

func (p *RSSProvider) AverageSentiment(ctx context.Context, ticker string, lookbackDays int) (float64, bool) {
	cacheKey := fmt.Sprintf("news_rss:%s:%d", ticker, lookbackDays)
	var snap sentimentSnapshot
	if p.disk.Get(cacheKey, &snap) {
		return snap.Avg, snap.OK
	}

	var scores []float64
	for _, u := range p.queryURLs(ticker) {
		for _, it := range p.fetchFeed(ctx, u) {
			text := strings.TrimSpace(it.Title + ". " + it.Description)
			if text == "." || text == "" {
				continue
			}
			scores = append(scores, scoreText(text))
		}
	}

	snap = sentimentSnapshot{OK: len(scores) > 0}
	if len(scores) > 0 {
		snap.Avg = stat.Mean(scores, nil)
	}
	p.disk.Set(cacheKey, snap)
	return snap.Avg, snap.OK
}

func (p *RSSProvider) Recent(ctx context.Context, ticker string, lookbackDays, limit int) []Item {
	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)

	var items []Item
	for _, u := range p.queryURLs(ticker) {
		for _, it := range p.fetchFeed(ctx, u) {
			published := parsePubDate(it.PubDate)
			if published != nil && published.Before(cutoff) {
				continue
			}
			text := strings.TrimSpace(it.Title + ". " + it.Description)
			items = append(items, Item{
				Title:     it.Title,
				Link:      it.Link,
				Published: published,
				Sentiment: scoreText(text),
			})
		}
	}

	items = dedupeItems(items)
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (p *RSSProvider) fetchFeed(ctx context.Context, u string) []rssItem {
	body, status, err := p.http.GetBody(ctx, u)
	if err != nil || status != 200 {
		p.logger.WithFields(map[string]interface{}{
			"url":    u,
			"status": status,
		}).Debug("News feed unavailable")
		return nil
	}

	items := parseFeedItems(body)
	if items == nil {
		p.logger.Debug("News feed parse failed or empty")
	}
	return items
}

func parseFeedItems(body []byte) []rssItem {
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil
	}
	return feed.Channel.Items
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func parsePubDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
