package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/scout/internal/scheduler"
	"github.com/wonny/scout/internal/strategy"
	"github.com/wonny/scout/pkg/diskcache"
	"github.com/wonny/scout/pkg/logger"
)

// SystemHandler handles configuration, cache and job inspection
// endpoints.
type SystemHandler struct {
	strategy  *strategy.Config
	caches    map[string]*diskcache.Cache
	scheduler *scheduler.Scheduler
	logger    *logger.Logger
}

// NewSystemHandler creates the handler. The scheduler may be nil when
// running without background jobs.
func NewSystemHandler(strat *strategy.Config, caches map[string]*diskcache.Cache, sched *scheduler.Scheduler, log *logger.Logger) *SystemHandler {
	return &SystemHandler{
		strategy:  strat,
		caches:    caches,
		scheduler: sched,
		logger:    log,
	}
}

// Config returns the active strategy configuration
// GET /api/config
func (h *SystemHandler) Config(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.strategy)
}

// Cache lists the disk cache entries per store
// GET /api/cache
func (h *SystemHandler) Cache(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]interface{}, len(h.caches))
	for name, cache := range h.caches {
		entries := cache.Entries()
		out[name] = map[string]interface{}{
			"count":   len(entries),
			"entries": entries,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// CacheClear removes all disk cache entries
// POST /api/cache/clear
func (h *SystemHandler) CacheClear(w http.ResponseWriter, r *http.Request) {
	removed := 0
	for _, cache := range h.caches {
		removed += cache.Clear()
	}
	h.logger.WithField("removed", removed).Info("Disk caches cleared")
	respondJSON(w, http.StatusOK, map[string]interface{}{"cleared": true, "removed": removed})
}

// Jobs returns scheduler statistics
// GET /api/jobs
func (h *SystemHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	respondJSON(w, http.StatusOK, h.scheduler.GetJobStats())
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
