package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/scout/internal/scan"
	"github.com/wonny/scout/pkg/logger"
)

// QueueReprepareJob re-seeds the scan queue nightly so every pass works
// against the current universe membership rather than the one it was
// first prepared with.
type QueueReprepareJob struct {
	queue  *scan.Queue
	logger *logger.Logger
}

func NewQueueReprepareJob(queue *scan.Queue, log *logger.Logger) *QueueReprepareJob {
	return &QueueReprepareJob{queue: queue, logger: log}
}

// Name returns the job name
func (j *QueueReprepareJob) Name() string {
	return "queue_reprepare"
}

// Schedule returns the cron schedule (every day at 6:30 AM, after the
// universe refresh)
func (j *QueueReprepareJob) Schedule() string {
	return "0 30 6 * * *"
}

// Run executes the queue re-preparation
func (j *QueueReprepareJob) Run(ctx context.Context) error {
	queued, err := j.queue.Reset(ctx)
	if err != nil {
		return fmt.Errorf("re-prepare queue: %w", err)
	}

	j.logger.WithField("queued", queued).Info("Queue re-prepared")
	return nil
}
