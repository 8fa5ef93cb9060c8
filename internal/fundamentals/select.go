package fundamentals

import (
	"github.com/wonny/scout/internal/marketdata"
	"github.com/wonny/scout/pkg/config"
	"github.com/wonny/scout/pkg/diskcache"
	"github.com/wonny/scout/pkg/logger"
	"github.com/wonny/scout/pkg/redis"
)

// New picks the metric source: the commercial feed when an API key is
// configured, otherwise the bundle derived from instrument metadata.
func New(cfg *config.Config, log *logger.Logger, md marketdata.Provider, disk *diskcache.Cache, shared *redis.Cache) Provider {
	if cfg.FMPKey != "" {
		return NewFMPProvider(log, cfg.FMPKey)
	}
	return NewYahooProvider(md, log, disk, shared, cfg.MarketData.FactsTTL)
}
