package jobs

import (
	"context"

	"github.com/wonny/scout/internal/alerts"
	"github.com/wonny/scout/internal/holdings"
	"github.com/wonny/scout/internal/portfolio"
	"github.com/wonny/scout/internal/scan"
	"github.com/wonny/scout/pkg/logger"
)

// AlertsJob pushes the latest high-conviction signals and portfolio
// risk flags out over the configured channels.
type AlertsJob struct {
	queue     *scan.Queue
	notifier  *alerts.Notifier
	analytics *portfolio.Analytics
	repo      *holdings.Repository
	logger    *logger.Logger
}

// NewAlertsJob creates the alerts job. The holdings repository may be
// nil when no database is configured; risk flags are skipped then.
func NewAlertsJob(queue *scan.Queue, notifier *alerts.Notifier, analytics *portfolio.Analytics, repo *holdings.Repository, log *logger.Logger) *AlertsJob {
	return &AlertsJob{
		queue:     queue,
		notifier:  notifier,
		analytics: analytics,
		repo:      repo,
		logger:    log,
	}
}

// Name returns the job name
func (j *AlertsJob) Name() string {
	return "alerts"
}

// Schedule returns the cron schedule (every day at 5 PM)
func (j *AlertsJob) Schedule() string {
	return "0 0 17 * * *"
}

// Run executes the alert delivery
func (j *AlertsJob) Run(ctx context.Context) error {
	results := j.queue.Results()
	j.notifier.NotifySignals(ctx, results)

	if j.repo != nil {
		positions, err := j.repo.List(ctx)
		if err != nil {
			j.logger.WithError(err).Warn("Could not load holdings for risk flags")
			return nil
		}
		snapshot := j.analytics.Snapshot(ctx, positions)
		j.notifier.NotifyRiskFlags(ctx, snapshot.RiskFlags)
	}

	return nil
}
