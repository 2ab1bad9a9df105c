// Package worker runs the periodic maintenance jobs of the API process.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 30 * time.Second

type expiredPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler owns the cron runner. Jobs never overlap with themselves and a
// panicking job is recovered and logged.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))
	return &Scheduler{cron: c, logger: logger}
}

// Add registers job under spec, which accepts the standard five-field
// syntax and descriptors such as "@every 1h".
func (s *Scheduler) Add(name, spec string, job func()) error {
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("Scheduler.Add: %s: %w", name, err)
	}
	s.logger.Info("scheduled job", "job", name, "schedule", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs; the returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// IdempotencyCleanup deletes cached responses whose replay window has
// closed.
type IdempotencyCleanup struct {
	store  expiredPurger
	logger *slog.Logger
	now    func() time.Time
}

func NewIdempotencyCleanup(store expiredPurger, logger *slog.Logger) *IdempotencyCleanup {
	return &IdempotencyCleanup{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (c *IdempotencyCleanup) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := c.store.DeleteExpired(ctx, c.now())
	if err != nil {
		c.logger.Error("idempotency cleanup failed", "error", err)
		return
	}
	if n > 0 {
		c.logger.Info("idempotency cleanup completed", "deleted", n)
	}
}
