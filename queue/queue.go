package queue

import (
	"context"
	"encoding/json"
	"time"
)

/* The delivery queue carries one job per delivery attempt
 * Jobs are at-least-once: a consumer crash before Ack means redelivery,
 * and the attempt log absorbs the resulting duplicates
 */

// Job is a unit of work representing one attempt to deliver one event.
type Job struct {
	SubscriptionID string          `json:"subscription_id"`
	WebhookEventID string          `json:"webhook_event_id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	AttemptNumber  int             `json:"attempt_number"`
}

// Delivery is a consumed job plus the handle needed to acknowledge it.
type Delivery struct {
	Job
	MessageID string
}

// Enqueuer adds jobs to the queue, immediately or after a delay
type Enqueuer interface {
	/* Enqueue schedules a job. A zero delay makes it available at once;
	 * a positive delay holds it back until the delay elapses
	 */
	Enqueue(ctx context.Context, job Job, delay time.Duration) error
}

// Consumer pulls jobs off the queue in competing-consumer fashion
type Consumer interface {
	/* Consume blocks until jobs are available or the context is cancelled
	 * An empty slice with a nil error means the block timed out
	 */
	Consume(ctx context.Context) ([]Delivery, error)
	// Ack marks a delivery as processed so it is not redelivered.
	Ack(ctx context.Context, d Delivery) error
}

type Queue interface {
	Enqueuer
	Consumer
	Close(ctx context.Context) error
}
