package universe

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Community-maintained constituent lists used when the primary scrape
// comes back empty.
var (
	sp500CSVURL = "https://raw.githubusercontent.com/datasets/s-and-p-500-companies/master/data/constituents.csv"

	asx200CSVURLs = []string{
		"https://raw.githubusercontent.com/wenboyu2/ASX200-List/master/asx200.csv",
		"https://raw.githubusercontent.com/theeconomistphd/asx200/master/asx200.csv",
	}

	asx200CSVCols = []string{"ASX code", "ASX Code", "Code", "Ticker", "Symbol"}
)

// fetchCSVSymbols downloads a CSV and pulls the symbol column, trying
// the given header names in order per row.
func (r *Resolver) fetchCSVSymbols(ctx context.Context, url string, symbolCols []string, transform func(string) string) ([]string, error) {
	r.logger.WithField("url", url).Info("Trying CSV universe source")

	body, status, err := r.http.GetBody(ctx, url)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}

	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}

	var out []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		for _, col := range symbolCols {
			idx, ok := colIndex[col]
			if !ok || idx >= len(record) {
				continue
			}
			sym := strings.TrimSpace(record[idx])
			if sym == "" {
				continue
			}
			if transform != nil {
				sym = transform(sym)
			}
			if sym != "" {
				out = append(out, strings.ToUpper(sym))
			}
			break
		}
	}

	out = dedupe(out)
	r.logger.WithFields(map[string]interface{}{
		"url":   url,
		"count": len(out),
	}).Info("CSV universe source parsed")
	return out, nil
}

func sp500CSVTransform(s string) string {
	return strings.ReplaceAll(s, ".", "-")
}

func asx200CSVTransform(s string) string {
	s = strings.ToUpper(s)
	if strings.HasSuffix(s, ".AX") {
		return s
	}
	return s + ".AX"
}
