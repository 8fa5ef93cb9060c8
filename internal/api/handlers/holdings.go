package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/scout/internal/events"
	"github.com/wonny/scout/internal/holdings"
	"github.com/wonny/scout/internal/portfolio"
	"github.com/wonny/scout/pkg/logger"
)

// HoldingsHandler handles portfolio position endpoints. The repository
// is nil when no database is configured; every endpoint then reports
// service unavailable.
type HoldingsHandler struct {
	repo      *holdings.Repository
	analytics *portfolio.Analytics
	events    *events.Provider
	logger    *logger.Logger
}

func NewHoldingsHandler(repo *holdings.Repository, analytics *portfolio.Analytics, ev *events.Provider, log *logger.Logger) *HoldingsHandler {
	return &HoldingsHandler{
		repo:      repo,
		analytics: analytics,
		events:    ev,
		logger:    log,
	}
}

func (h *HoldingsHandler) available(w http.ResponseWriter) bool {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "Holdings storage is not configured")
		return false
	}
	return true
}

// List returns all positions
// GET /api/holdings
func (h *HoldingsHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	positions, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list holdings")
		respondError(w, http.StatusInternalServerError, "Failed to list holdings")
		return
	}
	if positions == nil {
		positions = []holdings.Holding{}
	}
	respondJSON(w, http.StatusOK, positions)
}

// CreateRequest is the create/replace payload.
type CreateRequest struct {
	Ticker   string  `json:"ticker"`
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
}

// Create inserts or replaces a position
// POST /api/holdings
func (h *HoldingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	created, err := h.repo.Create(r.Context(), req.Ticker, req.Quantity, req.AvgPrice)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create holding")
		respondError(w, http.StatusInternalServerError, "Failed to create holding")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// Delete removes a position
// DELETE /api/holdings/{ticker}
func (h *HoldingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	ticker := mux.Vars(r)["ticker"]
	if err := h.repo.Delete(r.Context(), ticker); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": ticker})
}

// Import bulk-loads positions from an uploaded delimited file
// POST /api/holdings/import
func (h *HoldingsHandler) Import(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file upload is required")
		return
	}
	defer file.Close()

	imported, err := h.repo.Import(r.Context(), file)
	if err != nil {
		h.logger.WithError(err).Error("Holdings import failed")
		respondError(w, http.StatusInternalServerError, "Import failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"imported": imported})
}

// Portfolio returns the valued snapshot over all positions
// GET /api/portfolio
func (h *HoldingsHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	positions, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list holdings")
		respondError(w, http.StatusInternalServerError, "Failed to list holdings")
		return
	}

	respondJSON(w, http.StatusOK, h.analytics.Snapshot(r.Context(), positions))
}

// Events returns the upcoming earnings and ex-dividend dates across all
// held positions
// GET /api/portfolio/events
func (h *HoldingsHandler) Events(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	positions, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list holdings")
		respondError(w, http.StatusInternalServerError, "Failed to list holdings")
		return
	}

	calendars := make(map[string]events.Calendar, len(positions))
	for _, p := range positions {
		cal := h.events.EarningsAndDividend(r.Context(), p.Ticker)
		if cal.EarningsDate == "" && cal.ExDivDate == "" {
			continue
		}
		calendars[p.Ticker] = cal
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"events": calendars})
}
