package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/scout/internal/api/handlers"
	"github.com/wonny/scout/internal/scan"
	"github.com/wonny/scout/pkg/logger"
)

// Handlers bundles the route handlers the router wires up.
type Handlers struct {
	Scan     *handlers.ScanHandler
	Universe *handlers.UniverseHandler
	Holdings *handlers.HoldingsHandler
	News     *handlers.NewsHandler
	System   *handlers.SystemHandler
	Backtest *handlers.BacktestHandler
	Queue    *scan.Queue
}

// NewRouter creates and configures the HTTP router.
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Scan
	api.HandleFunc("/scan", h.Scan.Scan).Methods("GET")

	// Backtest
	api.HandleFunc("/backtest", h.Backtest.Run).Methods("GET")
	api.HandleFunc("/backtest.csv", h.Backtest.RunCSV).Methods("GET")
	api.HandleFunc("/backtest_equity", h.Backtest.Equity).Methods("GET")

	// Queue
	api.HandleFunc("/queue/prepare", h.Scan.QueuePrepare).Methods("POST")
	api.HandleFunc("/queue/step", h.Scan.QueueStep).Methods("POST")
	api.HandleFunc("/queue/status", h.Scan.QueueStatus).Methods("GET")
	api.HandleFunc("/queue/reset", h.Scan.QueueReset).Methods("POST")
	api.HandleFunc("/queue/results", h.Scan.QueueResults).Methods("GET")
	api.HandleFunc("/queue/ws", queueStreamHandler(h.Queue, log)).Methods("GET")

	// Universes
	api.HandleFunc("/universes", h.Universe.List).Methods("GET")
	api.HandleFunc("/universe/peek", h.Universe.Peek).Methods("GET")
	api.HandleFunc("/universe/refresh", h.Universe.Refresh).Methods("POST")

	// Holdings and portfolio
	api.HandleFunc("/holdings", h.Holdings.List).Methods("GET")
	api.HandleFunc("/holdings", h.Holdings.Create).Methods("POST")
	api.HandleFunc("/holdings/import", h.Holdings.Import).Methods("POST")
	api.HandleFunc("/holdings/{ticker}", h.Holdings.Delete).Methods("DELETE")
	api.HandleFunc("/portfolio", h.Holdings.Portfolio).Methods("GET")
	api.HandleFunc("/portfolio/events", h.Holdings.Events).Methods("GET")

	// News, announcements, events
	api.HandleFunc("/news", h.News.Recent).Methods("GET")
	api.HandleFunc("/announcements", h.News.Announcements).Methods("GET")
	api.HandleFunc("/events/{ticker}", h.News.Events).Methods("GET")

	// System
	api.HandleFunc("/config", h.System.Config).Methods("GET")
	api.HandleFunc("/cache", h.System.Cache).Methods("GET")
	api.HandleFunc("/cache/clear", h.System.CacheClear).Methods("POST")
	api.HandleFunc("/jobs", h.System.Jobs).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "scout-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
