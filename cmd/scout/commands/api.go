package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/scout/internal/alerts"
	"github.com/wonny/scout/internal/api"
	"github.com/wonny/scout/internal/api/handlers"
	"github.com/wonny/scout/internal/backtest"
	"github.com/wonny/scout/internal/holdings"
	"github.com/wonny/scout/internal/portfolio"
	"github.com/wonny/scout/internal/scheduler"
	"github.com/wonny/scout/internal/scheduler/jobs"
	"github.com/wonny/scout/pkg/database"
	"github.com/wonny/scout/pkg/diskcache"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health              - Health check
  GET  /api/scan            - One-shot screen
  POST /api/queue/prepare   - Load a scan queue
  POST /api/queue/step      - Advance the queue by one ticker
  GET  /api/queue/status    - Queue progress
  GET  /api/queue/ws        - Queue progress stream
  GET  /api/universes       - Known universes

Example:
  go run ./cmd/scout api
  go run ./cmd/scout api --port 8099`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Scout API Server ===")

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	cfg, log := a.cfg, a.log

	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// Holdings need Postgres; the screener itself does not, so a
	// missing DATABASE_URL only disables the portfolio endpoints.
	var holdingsRepo *holdings.Repository
	var analytics *portfolio.Analytics
	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		holdingsRepo = holdings.NewRepository(db.Pool)
		if err := holdingsRepo.EnsureSchema(cmd.Context()); err != nil {
			return fmt.Errorf("ensure holdings schema: %w", err)
		}
		analytics = portfolio.NewAnalytics(a.strat, a.md, log)
		log.Info("Connected to database")
	} else {
		log.Warn("DATABASE_URL not set, holdings endpoints disabled")
	}

	notifier := alerts.New(cfg, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewUniverseRefreshJob(a.resolver, cfg.Scan.Universes, log)); err != nil {
		return fmt.Errorf("register universe job: %w", err)
	}
	if err := sched.AddJob(jobs.NewQueueReprepareJob(a.queue, log)); err != nil {
		return fmt.Errorf("register queue job: %w", err)
	}
	if err := sched.AddJob(jobs.NewAlertsJob(a.queue, notifier, analytics, holdingsRepo, log)); err != nil {
		return fmt.Errorf("register alerts job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	h := api.Handlers{
		Scan:     handlers.NewScanHandler(a.engine, a.queue, a.resolver, log),
		Universe: handlers.NewUniverseHandler(a.resolver, cfg.Scan.Universes, log),
		Holdings: handlers.NewHoldingsHandler(holdingsRepo, analytics, a.ev, log),
		News:     handlers.NewNewsHandler(a.newsProv, a.ann, a.ev, log),
		System: handlers.NewSystemHandler(a.strat, map[string]*diskcache.Cache{
			"facts":  a.factsDisk,
			"news":   a.newsDisk,
			"events": a.eventsDisk,
		}, sched, log),
		Backtest: handlers.NewBacktestHandler(backtest.New(a.strat, a.md, log), log),
		Queue:    a.queue,
	}
	router := api.NewRouter(h, log)

	server := api.New(cfg, log, router)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if cfg.Scan.Background {
		go a.queue.RunLoop(sweepCtx)
		log.Info("Background sweeper started")
	}

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\nServer running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	stopSweep()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
