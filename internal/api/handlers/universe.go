package handlers

import (
	"net/http"

	"github.com/wonny/scout/internal/universe"
	"github.com/wonny/scout/pkg/logger"
)

// UniverseHandler handles universe API endpoints.
type UniverseHandler struct {
	resolver   *universe.Resolver
	configured []string
	logger     *logger.Logger
}

func NewUniverseHandler(resolver *universe.Resolver, configured []string, log *logger.Logger) *UniverseHandler {
	return &UniverseHandler{
		resolver:   resolver,
		configured: configured,
		logger:     log,
	}
}

// List returns the configured universe names and the bundled files
// GET /api/universes
func (h *UniverseHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"configured": h.configured,
		"available":  h.resolver.LocalNames(),
	})
}

// Peek resolves the named universes without scanning
// GET /api/universe/peek?names=auto:sp500,auto:asx200
func (h *UniverseHandler) Peek(w http.ResponseWriter, r *http.Request) {
	names := splitList(r.URL.Query().Get("names"))
	if len(names) == 0 {
		respondError(w, http.StatusBadRequest, "names is required")
		return
	}

	tickers := h.resolver.Resolve(r.Context(), names)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"names":   names,
		"count":   len(tickers),
		"tickers": tickers,
	})
}

// Refresh drops the cached copies and re-resolves
// POST /api/universe/refresh?names=auto:sp500
func (h *UniverseHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	names := splitList(r.URL.Query().Get("names"))
	if len(names) == 0 {
		names = h.configured
	}

	counts := make(map[string]int, len(names))
	for _, name := range names {
		counts[name] = len(h.resolver.Refresh(r.Context(), name))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"refreshed": counts})
}
