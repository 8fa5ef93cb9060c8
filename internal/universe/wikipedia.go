package universe

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	sp500WikiURL  = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"
	asx200WikiURL = "https://en.wikipedia.org/wiki/S%26P/ASX_200"
)

var asxCodePattern = regexp.MustCompile(`^[A-Z0-9]{2,6}$`)

// fetchSP500 scrapes the constituents table. Class symbols use a dot on
// the page but a dash upstream (BRK.B vs BRK-B), so dots are rewritten.
func (r *Resolver) fetchSP500(ctx context.Context) ([]string, error) {
	body, status, err := r.http.GetBody(ctx, sp500WikiURL)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse constituents page: %w", err)
	}

	table := doc.Find("table#constituents").First()
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}

	var out []string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		td := row.Find("td").First()
		if td.Length() == 0 {
			return
		}
		ticker := strings.ToUpper(strings.TrimSpace(td.Text()))
		if ticker == "" {
			return
		}
		out = append(out, strings.ReplaceAll(ticker, ".", "-"))
	})

	out = dedupe(out)
	r.logger.WithField("count", len(out)).Info("Fetched S&P 500 constituents")
	return out, nil
}

// fetchASX200 scrapes the index page. The page has no stable table id
// and carries several wikitables (annual returns among them), so the
// constituents table is located by its header: only the column headed
// Code/Ticker/Symbol is read, which keeps header cells and year rows
// out of the universe.
func (r *Resolver) fetchASX200(ctx context.Context) ([]string, error) {
	body, status, err := r.http.GetBody(ctx, asx200WikiURL)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse index page: %w", err)
	}

	var out []string
	doc.Find("table.wikitable").Each(func(_ int, table *goquery.Selection) {
		col := symbolColumn(table)
		if col < 0 {
			return
		}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() <= col {
				return
			}
			text := strings.ToUpper(strings.TrimSpace(cells.Eq(col).Text()))
			text = strings.TrimPrefix(text, "ASX:")
			if asxCodePattern.MatchString(text) {
				out = append(out, text+".AX")
			}
		})
	})

	out = dedupe(out)
	r.logger.WithField("count", len(out)).Info("Fetched ASX 200 constituents")
	return out, nil
}

// symbolColumn finds the index of the ticker column in a wikitable
// header row, or -1 when the table has none.
func symbolColumn(table *goquery.Selection) int {
	col := -1
	table.Find("tr").First().Find("th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		header := strings.ToLower(strings.TrimSpace(th.Text()))
		switch {
		case strings.Contains(header, "asx code"),
			header == "code", header == "ticker", header == "symbol":
			col = i
			return false
		}
		return true
	})
	return col
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
