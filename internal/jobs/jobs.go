// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPurgeSchedule runs the session purge at the top of every hour.
const DefaultPurgeSchedule = "0 * * * *"

const purgeTimeout = 30 * time.Second

// SessionPurger deletes expired sessions.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// PurgeRecorder observes purge results.
type PurgeRecorder interface {
	RecordSessionsPurged(count int64)
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler returns a Scheduler evaluating schedules in loc.
func NewScheduler(loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger: logger.With("component", "jobs"),
	}
}

// AddSessionPurge registers the expired session purge under schedule, a standard
// five field cron expression.
func (s *Scheduler) AddSessionPurge(schedule string, purger SessionPurger, recorder PurgeRecorder) error {
	if purger == nil {
		return fmt.Errorf("jobs: session purger is required")
	}
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	if _, err := s.cron.AddFunc(schedule, SessionPurgeJob(purger, recorder, s.logger)); err != nil {
		return fmt.Errorf("jobs: invalid purge schedule %q: %w", schedule, err)
	}
	s.logger.Info("session purge scheduled", "schedule", schedule)
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SessionPurgeJob returns the job body that purges expired sessions once.
func SessionPurgeJob(purger SessionPurger, recorder PurgeRecorder, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()

		start := time.Now()
		removed, err := purger.PurgeExpiredSessions(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "session purge failed", "error", err)
			return
		}
		if recorder != nil {
			recorder.RecordSessionsPurged(removed)
		}
		logger.InfoContext(ctx, "session purge completed", "removed", removed, "duration", time.Since(start))
	}
}
