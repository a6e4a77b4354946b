package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-dispatch/queue"
	"github.com/marcelsud/webhook-dispatch/subscription"

	"github.com/google/uuid"
)

// ErrEventTypeNotAllowed is returned when the event type is not in the
// subscription's allowed set.
var ErrEventTypeNotAllowed = errors.New("event type not allowed for this subscription")

// ErrInvalidEvent is returned when the ingested event itself is malformed.
// Callers use it to tell a bad request apart from an engine failure.
var ErrInvalidEvent = errors.New("invalid event")

// UseCase defines the business operations for event ingestion
type UseCase interface {
	Ingest(ctx context.Context, subscriptionID, eventType string, payload json.RawMessage) (Event, error)
	Get(ctx context.Context, id string) (Event, error)
}

type Service struct {
	Repo  Repository
	Subs  subscription.Reader
	Queue queue.Enqueuer
}

// NewService creates a new ingestion service with dependency injection
func NewService(repo Repository, subs subscription.Reader, q queue.Enqueuer) *Service {
	return &Service{
		Repo:  repo,
		Subs:  subs,
		Queue: q,
	}
}

/* Ingest is the delivery engine's precondition: it verifies the event type
 * against the subscription's current allowed set, persists the event, and
 * enqueues the first delivery job. Workers never re-validate membership
 */
func (s *Service) Ingest(ctx context.Context, subscriptionID, eventType string, payload json.RawMessage) (Event, error) {
	if err := subscription.ValidateEventType(eventType); err != nil {
		return Event{}, fmt.Errorf("%w: validating event type: %w", ErrInvalidEvent, err)
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return Event{}, fmt.Errorf("%w: payload must be valid JSON", ErrInvalidEvent)
	}

	sub, err := s.Subs.GetActive(ctx, subscriptionID)
	if err != nil {
		return Event{}, fmt.Errorf("resolving subscription: %w", err)
	}

	if !sub.AllowsEventType(eventType) {
		return Event{}, fmt.Errorf("event type %q: %w", eventType, ErrEventTypeNotAllowed)
	}

	ev := Event{
		ID:             uuid.New().String(),
		SubscriptionID: subscriptionID,
		EventType:      eventType,
		Payload:        payload,
		Status:         Pending,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, ev); err != nil {
		return Event{}, fmt.Errorf("storing event: %w", err)
	}

	job := queue.Job{
		SubscriptionID: subscriptionID,
		WebhookEventID: ev.ID,
		EventType:      eventType,
		Payload:        payload,
		AttemptNumber:  1,
	}
	if err := s.Queue.Enqueue(ctx, job, 0); err != nil {
		return Event{}, fmt.Errorf("enqueuing delivery job: %w", err)
	}

	return ev, nil
}

// Get returns an event by id.
func (s *Service) Get(ctx context.Context, id string) (Event, error) {
	ev, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Event{}, fmt.Errorf("getting event: %w", err)
	}
	return ev, nil
}
