package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/scout/internal/holdings"
	"github.com/wonny/scout/internal/marketdata"
	"github.com/wonny/scout/internal/strategy"
	"github.com/wonny/scout/pkg/logger"
)

// Position is one valued holding inside a snapshot.
type Position struct {
	Ticker string  `json:"ticker"`
	Weight float64 `json:"weight"`
}

// Snapshot is a point-in-time portfolio valuation.
type Snapshot struct {
	AsOf         time.Time  `json:"asof"`
	NAV          float64    `json:"nav"`
	Cash         float64    `json:"cash"`
	PnLTotal     float64    `json:"pnl_total"`
	PnLPct       float64    `json:"pnl_pct"`
	Volatility   float64    `json:"volatility"`
	TopPositions []Position `json:"top_positions"`
	RiskFlags    []string   `json:"risk_flags"`
}

// Analytics values holdings through the data access layer. A position
// whose price cannot be fetched is valued at its average price so the
// snapshot never fails outright.
type Analytics struct {
	cfg    *strategy.Config
	md     marketdata.Provider
	logger *logger.Logger
}

func NewAnalytics(cfg *strategy.Config, md marketdata.Provider, log *logger.Logger) *Analytics {
	return &Analytics{cfg: cfg, md: md, logger: log}
}

// Snapshot values the given positions and flags any that exceed the
// configured share of net asset value.
func (a *Analytics) Snapshot(ctx context.Context, positions []holdings.Holding) Snapshot {
	type valued struct {
		ticker string
		value  float64
		vol    float64
	}

	var nav, pnlTotal float64
	rows := make([]valued, 0, len(positions))

	for _, h := range positions {
		price := h.AvgPrice
		var vol float64
		if series := a.md.History(ctx, h.Ticker, "1mo", "1d"); series.Len() > 0 {
			price = series.Last()
			vol = annualizedVol(series.Closes())
		} else {
			a.logger.WithField("ticker", h.Ticker).Debug("No recent price, valuing at average cost")
		}

		value := h.Quantity * price
		nav += value
		pnlTotal += (price - h.AvgPrice) * h.Quantity
		rows = append(rows, valued{ticker: h.Ticker, value: value, vol: vol})
	}

	var pnlPct float64
	if nav != 0 {
		pnlPct = pnlTotal / nav
	}

	var portVol float64
	if nav != 0 {
		for _, row := range rows {
			portVol += row.vol * (row.value / nav)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].value > rows[j].value })

	top := make([]Position, 0, 5)
	for i, row := range rows {
		if i >= 5 {
			break
		}
		var weight float64
		if nav != 0 {
			weight = row.value / nav
		}
		top = append(top, Position{Ticker: row.ticker, Weight: weight})
	}

	riskFlags := []string{}
	positionCap := a.cfg.Risk.PositionCapPctNAV
	if positionCap > 0 && nav != 0 {
		for _, row := range rows {
			if weight := row.value / nav; weight > positionCap {
				riskFlags = append(riskFlags, fmt.Sprintf(
					"%s is %.1f%% of NAV (cap %.0f%%)", row.ticker, weight*100, positionCap*100))
			}
		}
	}

	return Snapshot{
		AsOf:         time.Now().UTC(),
		NAV:          nav,
		Cash:         0,
		PnLTotal:     pnlTotal,
		PnLPct:       pnlPct,
		Volatility:   portVol,
		TopPositions: top,
		RiskFlags:    riskFlags,
	}
}

// annualizedVol estimates yearly return volatility from a short daily
// close series. Too few observations report zero rather than noise.
func annualizedVol(closes []float64) float64 {
	if len(closes) < 3 {
		return 0
	}
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		rets = append(rets, closes[i]/closes[i-1]-1)
	}
	if len(rets) < 2 {
		return 0
	}
	return stat.StdDev(rets, nil) * math.Sqrt(252)
}
