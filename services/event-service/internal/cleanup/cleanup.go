package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/md-rashed-zaman/agreedtime/services/event-service/internal/storage"
)

// Job deletes events past their retention window on a cron schedule.
// Participants, slots and availabilities go with them via ON DELETE CASCADE.
type Job struct {
	repo      *storage.EventRepository
	logger    *slog.Logger
	schedule  string
	retention time.Duration
	cron      *cron.Cron
}

func NewJob(repo *storage.EventRepository, logger *slog.Logger, schedule string, retention time.Duration) *Job {
	if schedule == "" {
		schedule = "@hourly"
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &Job{
		repo:      repo,
		logger:    logger,
		schedule:  schedule,
		retention: retention,
	}
}

// Start registers the schedule and runs the cron loop until ctx is done.
// It also sweeps once at startup so a restart never delays expiry.
func (j *Job) Start(ctx context.Context) error {
	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, func() { j.sweep(ctx) }); err != nil {
		return err
	}
	j.sweep(ctx)
	j.cron.Start()
	<-ctx.Done()
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
	return nil
}

func (j *Job) sweep(ctx context.Context) {
	deleted, err := j.repo.DeleteExpiredEvents(ctx, j.retention)
	if err != nil {
		j.logger.Error("cleanup sweep failed", "err", err)
		return
	}
	if deleted > 0 {
		j.logger.Info("expired events deleted", "count", deleted, "retention", j.retention.String())
	}
}
