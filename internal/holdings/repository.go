package holdings

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Holding is one portfolio position.
type Holding struct {
	ID       int64     `json:"id"`
	Ticker   string    `json:"ticker"`
	Quantity float64   `json:"quantity"`
	AvgPrice float64   `json:"avg_price"`
	AddedAt  time.Time `json:"added_at"`
}

// Repository stores portfolio positions.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the holdings table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS holdings (
			id BIGSERIAL PRIMARY KEY,
			ticker TEXT NOT NULL UNIQUE,
			quantity DOUBLE PRECISION NOT NULL,
			avg_price DOUBLE PRECISION NOT NULL,
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create holdings table: %w", err)
	}
	return nil
}

// List retrieves all positions ordered by ticker.
func (r *Repository) List(ctx context.Context) ([]Holding, error) {
	query := `
		SELECT id, ticker, quantity, avg_price, added_at
		FROM holdings
		ORDER BY ticker ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var out []Holding
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.ID, &h.Ticker, &h.Quantity, &h.AvgPrice, &h.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Create inserts or replaces the position for a ticker.
func (r *Repository) Create(ctx context.Context, ticker string, quantity, avgPrice float64) (*Holding, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	query := `
		INSERT INTO holdings (ticker, quantity, avg_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker)
		DO UPDATE SET quantity = EXCLUDED.quantity, avg_price = EXCLUDED.avg_price
		RETURNING id, ticker, quantity, avg_price, added_at
	`

	var h Holding
	err := r.pool.QueryRow(ctx, query, ticker, quantity, avgPrice).Scan(
		&h.ID, &h.Ticker, &h.Quantity, &h.AvgPrice, &h.AddedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create holding: %w", err)
	}
	return &h, nil
}

// Delete removes the position for a ticker.
func (r *Repository) Delete(ctx context.Context, ticker string) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	tag, err := r.pool.Exec(ctx, `DELETE FROM holdings WHERE ticker = $1`, ticker)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("holding %s not found", ticker)
	}
	return nil
}

// Import bulk-loads positions from delimited text. Expected columns:
// ticker, quantity, avg_price; a header row is detected and skipped.
// Returns the number of imported rows.
func (r *Repository) Import(ctx context.Context, src io.Reader) (int, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	imported := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("failed to read import row: %w", err)
		}
		if len(record) < 3 {
			continue
		}

		ticker := strings.ToUpper(strings.TrimSpace(record[0]))
		if ticker == "" || strings.EqualFold(ticker, "ticker") {
			continue
		}
		quantity, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			continue
		}
		avgPrice, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			continue
		}

		if _, err := r.Create(ctx, ticker, quantity, avgPrice); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
