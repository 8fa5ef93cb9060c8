package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/wonny/scout/internal/scan"
	"github.com/wonny/scout/internal/universe"
	"github.com/wonny/scout/pkg/logger"
)

// ScanHandler handles scan and queue API endpoints.
type ScanHandler struct {
	engine   *scan.Engine
	queue    *scan.Queue
	resolver *universe.Resolver
	logger   *logger.Logger
}

func NewScanHandler(engine *scan.Engine, queue *scan.Queue, resolver *universe.Resolver, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		engine:   engine,
		queue:    queue,
		resolver: resolver,
		logger:   log,
	}
}

// Scan runs a synchronous screen over the requested universes or an
// explicit ticker list
// GET /api/scan?universes=auto:sp500&tickers=AAA,BBB&max=50&chunk=0:25
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var tickers []string
	if raw := q.Get("tickers"); raw != "" {
		tickers = splitList(raw)
	} else if raw := q.Get("universes"); raw != "" {
		tickers = h.resolver.Resolve(ctx, splitList(raw))
	} else {
		respondError(w, http.StatusBadRequest, "tickers or universes is required")
		return
	}

	maxTickers := 0
	if raw := q.Get("max"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			respondError(w, http.StatusBadRequest, "max must be a positive integer")
			return
		}
		maxTickers = v
	}

	signals, err := h.engine.Screen(ctx, tickers, maxTickers, q.Get("chunk"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, signals)
}

// PrepareRequest is the queue prepare payload.
type PrepareRequest struct {
	Universes []string `json:"universes"`
	Max       int      `json:"max"`
}

// QueuePrepare materializes a new queue
// POST /api/queue/prepare
func (h *ScanHandler) QueuePrepare(w http.ResponseWriter, r *http.Request) {
	var req PrepareRequest
	if r.Body != nil {
		// an empty body prepares with the configured default universes
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	queued, err := h.queue.Prepare(r.Context(), req.Universes, req.Max)
	if err != nil {
		h.logger.WithError(err).Error("Queue prepare failed")
		respondError(w, http.StatusInternalServerError, "Failed to prepare queue")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"queued": queued})
}

// QueueStep advances the queue by one symbol
// POST /api/queue/step
func (h *ScanHandler) QueueStep(w http.ResponseWriter, r *http.Request) {
	res, err := h.queue.Step(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Queue step failed")
		respondError(w, http.StatusInternalServerError, "Failed to advance queue")
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// QueueStatus reports the queue snapshot
// GET /api/queue/status
func (h *ScanHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queue.Status())
}

// QueueReset re-prepares with the previously used universe set
// POST /api/queue/reset
func (h *ScanHandler) QueueReset(w http.ResponseWriter, r *http.Request) {
	queued, err := h.queue.Reset(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Queue reset failed")
		respondError(w, http.StatusInternalServerError, "Failed to reset queue")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"queued": queued})
}

// QueueResults returns all recorded signals ranked by score
// GET /api/queue/results
func (h *ScanHandler) QueueResults(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queue.Results())
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
