package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"

	"github.com/wonny/scout/internal/backtest"
	"github.com/wonny/scout/pkg/logger"
)

// BacktestHandler replays the in-or-out filter over history.
type BacktestHandler struct {
	bt     *backtest.Backtester
	logger *logger.Logger
}

func NewBacktestHandler(bt *backtest.Backtester, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{bt: bt, logger: log}
}

// Run backtests a comma-separated ticker list
// GET /api/backtest?tickers=AAPL,MSFT&years=5
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	tickers := splitList(r.URL.Query().Get("tickers"))
	if len(tickers) == 0 {
		respondError(w, http.StatusBadRequest, "tickers is required")
		return
	}

	report := h.bt.RunMulti(r.Context(), upperAll(tickers), yearsParam(r))
	respondJSON(w, http.StatusOK, report)
}

// RunCSV is the same run rendered as CSV
// GET /api/backtest.csv?tickers=AAPL,MSFT&years=5
func (h *BacktestHandler) RunCSV(w http.ResponseWriter, r *http.Request) {
	tickers := splitList(r.URL.Query().Get("tickers"))
	if len(tickers) == 0 {
		respondError(w, http.StatusBadRequest, "tickers is required")
		return
	}

	report := h.bt.RunMulti(r.Context(), upperAll(tickers), yearsParam(r))

	w.Header().Set("Content-Type", "text/csv")
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"ticker", "cagr", "max_dd", "sharpe", "trades"})
	for _, res := range report.Results {
		_ = cw.Write([]string{
			res.Ticker,
			strconv.FormatFloat(res.CAGR, 'f', -1, 64),
			strconv.FormatFloat(res.MaxDD, 'f', -1, 64),
			strconv.FormatFloat(res.Sharpe, 'f', -1, 64),
			strconv.Itoa(res.Trades),
		})
	}
	cw.Flush()
}

// Equity returns the strategy curve for one ticker
// GET /api/backtest_equity?ticker=AAPL&years=5
func (h *BacktestHandler) Equity(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	respondJSON(w, http.StatusOK, h.bt.EquitySeries(r.Context(), ticker, yearsParam(r)))
}

func yearsParam(r *http.Request) int {
	return intParam(r, "years", 5)
}

func upperAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}
