// File: internal/jobs/incomplete_listings.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"marketplace_backend/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper flags listings a submission left half written.
type Sweeper interface {
	SweepIncomplete(ctx context.Context, grace time.Duration) (int64, error)
}

// IncompleteListingJob holds dependencies for the incomplete listing sweep.
type IncompleteListingJob struct {
	sweeper       Sweeper
	logger        *zap.Logger
	schedule      string
	grace         time.Duration
	cronScheduler *cron.Cron
}

// NewIncompleteListingJob creates a new IncompleteListingJob.
func NewIncompleteListingJob(sweeper Sweeper, logger *zap.Logger, cfg *config.Config) *IncompleteListingJob {
	cronLog := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.SkipIfStillRunning(cronLog), cron.Recover(cronLog)),
	)

	return &IncompleteListingJob{
		sweeper:       sweeper,
		logger:        logger.Named("IncompleteListingJob"),
		schedule:      cfg.IncompleteListingSweepSchedule,
		grace:         cfg.IncompleteListingGrace,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *IncompleteListingJob) SetupAndStart() error {
	if j.schedule == "" {
		j.logger.Warn("Incomplete listing sweep schedule not defined (INCOMPLETE_LISTING_SWEEP_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(j.schedule, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule incomplete listing sweep", zap.String("schedule", j.schedule), zap.Error(err))
		return err
	}

	j.logger.Info("Incomplete listing sweep scheduled", zap.String("schedule", j.schedule), zap.Duration("grace", j.grace), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

// RunOnce performs a single sweep.
func (j *IncompleteListingJob) RunOnce(ctx context.Context) (int64, error) {
	return j.sweeper.SweepIncomplete(ctx, j.grace)
}

func (j *IncompleteListingJob) runJob() {
	j.logger.Debug("Starting incomplete listing sweep...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	flagged, err := j.RunOnce(ctx)
	if err != nil {
		j.logger.Error("Incomplete listing sweep failed", zap.Error(err))
		return
	}
	if flagged > 0 {
		j.logger.Info("Incomplete listing sweep completed", zap.Int64("listings_flagged", flagged))
	}
}

// Stop gracefully stops the cron scheduler.
func (j *IncompleteListingJob) Stop() {
	if j.cronScheduler != nil {
		j.logger.Info("Stopping incomplete listing sweep scheduler...")
		stopCtx := j.cronScheduler.Stop()
		select {
		case <-stopCtx.Done():
			j.logger.Info("Incomplete listing sweep scheduler stopped gracefully.")
		case <-time.After(10 * time.Second):
			j.logger.Warn("Incomplete listing sweep scheduler stop timed out.")
		}
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine messages from cron. They are noisy, so they go to debug.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, cl.parseKeysAndValues(keysAndValues...)...)
}

// Error logs error messages from cron.
func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return fields
}
