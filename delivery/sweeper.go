package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

/* Sweeper bounds attempt-history growth
 * On a fixed schedule it deletes attempt rows older than the retention
 * window, in bounded batches so large tables never hold long locks.
 * Runs are idempotent: overlapping or repeated sweeps simply find fewer
 * rows to delete
 */
type Sweeper struct {
	Attempts  Pruner
	Retention time.Duration
	Interval  time.Duration
	BatchSize int

	logger *slog.Logger
	now    func() time.Time
}

// NewSweeper creates a retention sweeper.
func NewSweeper(attempts Pruner, retention, interval time.Duration, batchSize int, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		Attempts:  attempts,
		Retention: retention,
		Interval:  interval,
		BatchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Run sweeps on the configured schedule until the context is cancelled.
// A failed run is logged and abandoned until the next tick, never fatal.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("retention sweep failed", "error", err)
			}
		}
	}
}

/* Sweep deletes every attempt row older than now - retention and returns
 * how many were removed. The cutoff is computed once per run, so a row
 * younger than the cutoff is never deleted regardless of how long the
 * batches take
 */
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.Retention)

	count, err := s.Attempts.CountOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("counting stale attempts: %w", err)
	}
	if count == 0 {
		s.logger.Info("no stale delivery attempts to delete")
		return 0, nil
	}

	var deleted int64
	for {
		n, err := s.Attempts.DeleteOlderThan(ctx, cutoff, s.BatchSize)
		if err != nil {
			return deleted, fmt.Errorf("deleting stale attempts: %w", err)
		}
		deleted += n
		if n == 0 {
			break
		}
	}

	s.logger.Info("retention sweep finished",
		"cutoff", cutoff.Format(time.RFC3339),
		"deleted", deleted)

	return deleted, nil
}
