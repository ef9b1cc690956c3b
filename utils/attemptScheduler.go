package utils

import (
	"context"
	"fmt"
	"time"

	"lms/logger"

	"github.com/robfig/cron/v3"
)

// AttemptSweeper auto-submits attempts whose time ran out.
type AttemptSweeper interface {
	SubmitExpired(ctx context.Context) (int, error)
}

// InitializeAttemptScheduler runs the sweeper on spec and returns the started cron.
func InitializeAttemptScheduler(spec string, timeout time.Duration, sweeper AttemptSweeper, log *logger.Logger) (*cron.Cron, error) {
	log = log.With("component", "attempt-scheduler")
	log.Info("Initializing attempt scheduler...", "spec", spec)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(spec, func() {
		SweepExpiredAttempts(sweeper, timeout, log)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule attempt sweep %q: %w", spec, err)
	}

	c.Start()
	log.Info("Attempt scheduler started", "spec", spec)
	return c, nil
}

// SweepExpiredAttempts runs one sweep and logs the outcome.
func SweepExpiredAttempts(sweeper AttemptSweeper, timeout time.Duration, log *logger.Logger) {
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := sweeper.SubmitExpired(ctx)
	if err != nil {
		log.Error("expired attempt sweep failed", "submitted", n, "error", err)
		return
	}
	if n > 0 {
		log.Info("expired attempts auto-submitted", "count", n)
	}
}
