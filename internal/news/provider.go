package news

import (
	"context"
	"sort"
	"time"
)

// Item is one scored headline.
type Item struct {
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Published *time.Time `json:"published"`
	Sentiment float64    `json:"sentiment"`
}

// Provider supplies recent headlines and their aggregate tone for one
// instrument. AverageSentiment reports ok=false when no scorable
// headlines were found, which is distinct from an average of zero.
type Provider interface {
	AverageSentiment(ctx context.Context, ticker string, lookbackDays int) (float64, bool)
	Recent(ctx context.Context, ticker string, lookbackDays, limit int) []Item
}

// dedupeItems keeps one item per title, preferring the most recently
// published, then sorts newest first.
func dedupeItems(items []Item) []Item {
	byTitle := make(map[string]Item, len(items))
	for _, it := range items {
		prev, ok := byTitle[it.Title]
		if !ok || publishedAfter(it.Published, prev.Published) {
			byTitle[it.Title] = it
		}
	}

	out := make([]Item, 0, len(byTitle))
	for _, it := range byTitle {
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return publishedAfter(out[i].Published, out[j].Published)
	})
	return out
}

func publishedAfter(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}
