// Package cron runs the time-driven reconciliation jobs. Schedules are cron
// expressions evaluated in the business timezone; each tick re-derives
// "today" from the injected clock, never from host-local time.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	robfig "github.com/robfig/cron/v3"
)

// RunReport summarizes one job tick. Per-record failures are counted, not
// propagated: a failed record never aborts the rest of the batch.
type RunReport struct {
	Processed int
	Succeeded int
	Failed    int
}

// JobFunc is one reconciliation job tick. Implementations must be
// idempotent: ticks can overlap or repeat for the same business day.
type JobFunc func(ctx context.Context) (RunReport, error)

// Scheduler wraps robfig/cron with business-timezone schedules and
// structured logging around each run.
type Scheduler struct {
	cron *robfig.Cron
}

func NewScheduler(loc *time.Location) *Scheduler {
	return &Scheduler{cron: robfig.New(robfig.WithLocation(loc))}
}

// AddJob registers fn under a standard 5-field cron expression.
func (s *Scheduler) AddJob(name, spec string, fn JobFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		executeJob(name, fn)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %q (%s): %w", name, spec, err)
	}
	slog.Info("cron job registered", "name", name, "schedule", spec)
	return nil
}

// Start begins firing jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("cron scheduler started", "job_count", len(s.cron.Entries()))
}

// Stop halts scheduling and waits for in-flight ticks to finish.
func (s *Scheduler) Stop() {
	slog.Info("stopping cron scheduler")
	<-s.cron.Stop().Done()
	slog.Info("cron scheduler stopped")
}

// executeJob runs one tick. A failed tick is non-fatal: the next scheduled
// fire simply retries.
func executeJob(name string, fn JobFunc) {
	start := time.Now()
	slog.Debug("cron job starting", "name", name)

	report, err := fn(context.Background())
	if err != nil {
		slog.Error("cron job failed", "name", name, "error", err, "duration", time.Since(start))
		return
	}
	slog.Info("cron job completed",
		"name", name,
		"processed", report.Processed,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"duration", time.Since(start),
	)
}
