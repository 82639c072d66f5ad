// Package scheduler drives periodic sync runs and the daily digest.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	budgetsync "github.com/hmarston/monzo-budget/pkg/sync"
)

// Runner is the subset of the sync orchestrator the scheduler drives. Run
// must reject overlapping calls with ErrSyncInProgress; the scheduler never
// queues work.
type Runner interface {
	Run(ctx context.Context) (budgetsync.Result, error)
	DailyDigest(ctx context.Context, asOf time.Time) error
}

// Config controls tick cadence and the digest hour.
type Config struct {
	Interval   time.Duration // gap between automatic runs, default 30m
	DigestHour int           // local hour for the daily digest, default 8
}

func (c Config) withDefaults() Config {
	if c.Interval == 0 {
		c.Interval = 30 * time.Minute
	}
	if c.DigestHour == 0 {
		c.DigestHour = 8
	}
	return c
}

// Scheduler triggers sync runs on an interval. Ticks that land while a run
// is still executing are skipped, not queued.
type Scheduler struct {
	runner Runner
	logger *slog.Logger
	cfg    Config
	now    func() time.Time
}

// New creates a scheduler around runner.
func New(runner Runner, logger *slog.Logger, cfg Config) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner: runner,
		logger: logger,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
	}
}

// TriggerNow requests an immediate run. It returns ErrSyncInProgress when a
// run is already executing.
func (s *Scheduler) TriggerNow(ctx context.Context) (budgetsync.Result, error) {
	return s.runner.Run(ctx)
}

// Start runs the scheduling loop until ctx is cancelled. An initial run
// fires immediately so a fresh process converges without waiting a full
// interval.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	digest := time.NewTicker(time.Minute)
	defer digest.Stop()
	lastDigestDay := ""

	s.runScheduled(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			s.runScheduled(ctx)

		case <-digest.C:
			now := s.now()
			if !s.digestDue(now, lastDigestDay) {
				continue
			}
			lastDigestDay = now.Format("2006-01-02")
			if err := s.runner.DailyDigest(ctx, now); err != nil {
				s.logger.Error("daily digest failed", "error", err)
			}
		}
	}
}

// digestDue reports whether the daily digest should fire: once per day,
// during the configured hour.
func (s *Scheduler) digestDue(now time.Time, lastDay string) bool {
	return now.Hour() == s.cfg.DigestHour && now.Format("2006-01-02") != lastDay
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	res, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, budgetsync.ErrSyncInProgress):
		s.logger.Info("sync already running, skipping tick")
	case err != nil:
		s.logger.Error("scheduled sync failed", "run_id", res.RunID, "error", err)
	default:
		s.logger.Info("scheduled sync finished",
			"run_id", res.RunID, "status", res.Status,
			"ingested", res.Ingested, "skipped", res.Skipped)
	}
}
