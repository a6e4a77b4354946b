package delivery

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no attempt matches the lookup.
var ErrNotFound = errors.New("delivery attempt not found")

/* ErrAttemptExists is returned when an attempt row for the same
 * (webhook event, attempt number) pair already exists. With an
 * at-least-once queue this means another execution of the same job got
 * there first; the caller skips without retrying further
 */
var ErrAttemptExists = errors.New("delivery attempt already recorded")

// ErrAlreadyFinalized is returned when an attempt row has already had its
// outcome recorded. Attempt rows are finalized at most once.
var ErrAlreadyFinalized = errors.New("delivery attempt already finalized")

// Reader provides the status-query surface over the attempt log
type Reader interface {
	Get(ctx context.Context, id string) (Attempt, error)
	// ListBySubscription returns attempts newest-first.
	ListBySubscription(ctx context.Context, subscriptionID string, offset, limit int) ([]Attempt, error)
	ListByEvent(ctx context.Context, webhookEventID string) ([]Attempt, error)
}

// Writer provides the append-only write operations used by workers
type Writer interface {
	/* Create persists the attempt row before the outbound call goes out,
	 * so the attempt is auditable even if the process crashes mid-flight
	 */
	Create(ctx context.Context, attempt Attempt) error
	// Finalize records the outcome exactly once.
	Finalize(ctx context.Context, id string, outcome Outcome) error
}

// Pruner provides the age-based deletion used by the retention sweeper
type Pruner interface {
	// CountOlderThan reports how many rows are beyond the cutoff.
	CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	/* DeleteOlderThan removes at most limit rows strictly older than the
	 * cutoff and returns how many were deleted. Deleting zero rows is a
	 * valid, non-error outcome
	 */
	DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type AttemptLog interface {
	Reader
	Writer
	Pruner
	Close(ctx context.Context) error
}
