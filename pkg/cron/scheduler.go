// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ReloadFunc rebuilds the sales snapshot.
type ReloadFunc func(ctx context.Context) error

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	reload   ReloadFunc
	timeout  time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that runs reload on schedule, a standard
// 5-field cron expression.
func NewScheduler(schedule string, reload ReloadFunc, timeout time.Duration, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Scheduler{
		cron:     c,
		schedule: schedule,
		reload:   reload,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.reloadSnapshot); err != nil {
		return fmt.Errorf("failed to schedule snapshot reload %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("schedule", s.schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers a reload.
func (s *Scheduler) RunNow() {
	go s.reloadSnapshot()
}

func (s *Scheduler) reloadSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if err := s.reload(ctx); err != nil {
		s.logger.Error("scheduled snapshot reload failed", slog.Any("error", err))
		return
	}
	s.logger.Info("scheduled snapshot reload completed",
		slog.Duration("duration", time.Since(started)),
	)
}
