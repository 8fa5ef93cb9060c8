package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/scout/internal/events"
	"github.com/wonny/scout/internal/news"
	"github.com/wonny/scout/pkg/logger"
)

// NewsHandler handles news, announcement and calendar endpoints.
type NewsHandler struct {
	news          news.Provider
	announcements *news.Announcements
	events        *events.Provider
	logger        *logger.Logger
}

func NewNewsHandler(newsProv news.Provider, ann *news.Announcements, ev *events.Provider, log *logger.Logger) *NewsHandler {
	return &NewsHandler{
		news:          newsProv,
		announcements: ann,
		events:        ev,
		logger:        log,
	}
}

// Recent returns scored headlines for a ticker
// GET /api/news?ticker=BHP.AX&days=7&limit=20
func (h *NewsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	days := intParam(r, "days", 7)
	limit := intParam(r, "limit", 20)

	items := h.news.Recent(r.Context(), ticker, days, limit)
	if items == nil {
		items = []news.Item{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Announcements returns recent exchange announcements
// GET /api/announcements?ticker=BHP.AX&days=14&limit=12
func (h *NewsHandler) Announcements(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	days := intParam(r, "days", 14)
	limit := intParam(r, "limit", 12)

	items := h.announcements.Recent(r.Context(), ticker, days, limit)
	if items == nil {
		items = []news.Item{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Events returns the earnings and ex-dividend calendar for a ticker
// GET /api/events/{ticker}
func (h *NewsHandler) Events(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]
	respondJSON(w, http.StatusOK, h.events.EarningsAndDividend(r.Context(), ticker))
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
