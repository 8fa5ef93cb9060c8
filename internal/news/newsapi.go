package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/scout/pkg/httputil"
	"github.com/wonny/scout/pkg/logger"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// APIProvider uses the commercial headline search when a key is
// configured. Keyless instances report nothing so the caller can fall
// back to the feed-based provider.
type APIProvider struct {
	http    *httputil.Client
	logger  *logger.Logger
	key     string
	baseURL string
}

func NewAPIProvider(log *logger.Logger, key string) *APIProvider {
	return &APIProvider{
		http:    httputil.NewWithTimeout(log, 15*time.Second),
		logger:  log,
		key:     key,
		baseURL: newsAPIBaseURL,
	}
}

func (p *APIProvider) WithBaseURL(u string) *APIProvider {
	p.baseURL = u
	return p
}

type newsAPIResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

func (p *APIProvider) AverageSentiment(ctx context.Context, ticker string, lookbackDays int) (float64, bool) {
	items := p.Recent(ctx, ticker, lookbackDays, 50)
	if len(items) == 0 {
		return 0, false
	}
	var sum float64
	for _, it := range items {
		sum += it.Sentiment
	}
	return sum / float64(len(items)), true
}

func (p *APIProvider) Recent(ctx context.Context, ticker string, lookbackDays, limit int) []Item {
	if p.key == "" || limit <= 0 {
		return nil
	}

	u := fmt.Sprintf("%s?q=%s&language=en&pageSize=%d&sortBy=publishedAt&apiKey=%s",
		p.baseURL, url.QueryEscape(ticker+" stock"), limit, url.QueryEscape(p.key))

	body, status, err := p.http.GetBody(ctx, u)
	if err != nil || status != 200 {
		p.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"status": status,
		}).Debug("Headline search unavailable")
		return nil
	}

	var parsed newsAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}

	items := make([]Item, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		var published *time.Time
		if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			t = t.UTC()
			published = &t
		}
		items = append(items, Item{
			Title:     a.Title,
			Link:      a.URL,
			Published: published,
			Sentiment: scoreText(a.Title + ". " + a.Description),
		})
	}

	items = dedupeItems(items)
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
