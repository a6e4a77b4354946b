package event

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no event matches the lookup.
var ErrNotFound = errors.New("event not found")

// Reader provides read operations for events
type Reader interface {
	Get(ctx context.Context, id string) (Event, error)
}

// Writer provides write operations for events
type Writer interface {
	Create(ctx context.Context, ev Event) error
	// UpdateStatus records the informational delivery outcome.
	UpdateStatus(ctx context.Context, id string, status Status) error
}

type Repository interface {
	Reader
	Writer
	Close(ctx context.Context) error
}
