package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/scout/internal/universe"
	"github.com/wonny/scout/pkg/logger"
)

// UniverseRefreshJob re-fetches the auto universes daily so the scan
// queue is always prepared against fresh constituent lists.
type UniverseRefreshJob struct {
	resolver  *universe.Resolver
	universes []string
	logger    *logger.Logger
}

func NewUniverseRefreshJob(resolver *universe.Resolver, universes []string, log *logger.Logger) *UniverseRefreshJob {
	return &UniverseRefreshJob{
		resolver:  resolver,
		universes: universes,
		logger:    log,
	}
}

// Name returns the job name
func (j *UniverseRefreshJob) Name() string {
	return "universe_refresh"
}

// Schedule returns the cron schedule (every day at 6 AM, before the
// market-hours sweep has made much progress)
func (j *UniverseRefreshJob) Schedule() string {
	return "0 0 6 * * *"
}

// Run executes the universe refresh
func (j *UniverseRefreshJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled universe refresh")

	for _, name := range j.universes {
		symbols := j.resolver.Refresh(ctx, name)
		if len(symbols) == 0 {
			return fmt.Errorf("universe %s refreshed to an empty list", name)
		}
		j.logger.WithFields(map[string]interface{}{
			"universe": name,
			"count":    len(symbols),
		}).Info("Universe refreshed")
	}

	return nil
}
