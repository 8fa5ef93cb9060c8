package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/wonny/scout/internal/events"
	"github.com/wonny/scout/internal/fundamentals"
	"github.com/wonny/scout/internal/marketdata"
	"github.com/wonny/scout/internal/news"
	"github.com/wonny/scout/internal/scan"
	"github.com/wonny/scout/internal/strategy"
	"github.com/wonny/scout/internal/universe"
	"github.com/wonny/scout/pkg/config"
	"github.com/wonny/scout/pkg/diskcache"
	"github.com/wonny/scout/pkg/logger"
	"github.com/wonny/scout/pkg/redis"
)

// app holds the screening component graph shared by the CLI commands.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	strat *strategy.Config

	redis  *redis.Client
	shared *redis.Cache

	factsDisk  *diskcache.Cache
	newsDisk   *diskcache.Cache
	eventsDisk *diskcache.Cache

	md       *marketdata.Client
	resolver *universe.Resolver
	fund     fundamentals.Provider
	newsProv news.Provider
	ann      *news.Announcements
	ev       *events.Provider
	engine   *scan.Engine
	queue    *scan.Queue
}

// buildApp wires the full screening stack from configuration.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if strategyFile != "" {
		cfg.StrategyPath = strategyFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	strat, err := strategy.Load(cfg.StrategyPath)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	shared := redis.NewCache(rdb, "scout")

	factsDisk := diskcache.New(filepath.Join(cfg.CacheDir, "facts"), cfg.MarketData.FactsTTL)
	newsDisk := diskcache.New(filepath.Join(cfg.CacheDir, "news"), 6*time.Hour)
	eventsDisk := diskcache.New(filepath.Join(cfg.CacheDir, "events"), 12*time.Hour)

	md := marketdata.NewClient(cfg, log)
	resolver := universe.NewResolver(cfg, log, shared)
	fund := fundamentals.New(cfg, log, md, factsDisk, shared)

	var newsProv news.Provider
	if cfg.NewsAPIKey != "" {
		newsProv = news.NewAPIProvider(log, cfg.NewsAPIKey)
	} else {
		newsProv = news.NewRSSProvider(log, newsDisk)
	}
	ann := news.NewAnnouncements(log, newsDisk)
	ev := events.NewProvider(md, log, eventsDisk)

	engine := scan.NewEngine(cfg, strat, log, md, fund, newsProv, ev)
	queue := scan.NewQueue(cfg, log, engine, resolver)

	return &app{
		cfg:        cfg,
		log:        log,
		strat:      strat,
		redis:      rdb,
		shared:     shared,
		factsDisk:  factsDisk,
		newsDisk:   newsDisk,
		eventsDisk: eventsDisk,
		md:         md,
		resolver:   resolver,
		fund:       fund,
		newsProv:   newsProv,
		ann:        ann,
		ev:         ev,
		engine:     engine,
		queue:      queue,
	}, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
}
