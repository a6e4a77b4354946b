package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/queue"
	"github.com/marcelsud/webhook-dispatch/subscription"

	"github.com/google/uuid"
)

// acceptedStatusCodes are the subscriber responses counted as delivered.
var acceptedStatusCodes = map[int]bool{
	http.StatusOK:       true,
	http.StatusCreated:  true,
	http.StatusAccepted: true,
}

// Resolver is the cache-aside subscription lookup the worker depends on.
// Implemented by subscription.Service.
type Resolver interface {
	Resolve(ctx context.Context, id string) (subscription.Subscription, error)
}

// Signer produces the X-Hook-Signature header value for a payload.
type Signer func(secret string, payload []byte) string

/* Heartbeater is implemented by queues that track worker liveness
 * Heartbeats are best-effort and never fail a delivery
 */
type Heartbeater interface {
	SetWorkerHeartbeat(ctx context.Context, workerID, status string) error
}

/* Worker runs the delivery state machine
 * Each consumed job executes to completion: resolve, record, sign, send,
 * classify, finalize, and either stop or schedule exactly one follow-up job.
 * Many workers compete on the shared queue; nothing serializes them
 */
type Worker struct {
	ID          string
	Subs        Resolver
	Attempts    AttemptLog
	Events      event.Writer
	Queue       queue.Queue
	Sign        Signer
	Backoff     Backoff
	MaxAttempts int

	client *http.Client
	logger *slog.Logger
}

// NewWorker creates a delivery worker with dependency injection
func NewWorker(subs Resolver, attempts AttemptLog, events event.Writer, q queue.Queue, sign Signer, backoff Backoff, maxAttempts int, timeout time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		ID:          uuid.New().String(),
		Subs:        subs,
		Attempts:    attempts,
		Events:      events,
		Queue:       q,
		Sign:        sign,
		Backoff:     backoff,
		MaxAttempts: maxAttempts,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Run consumes jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	hb, hasHeartbeat := w.Queue.(Heartbeater)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if hasHeartbeat {
			if err := hb.SetWorkerHeartbeat(ctx, w.ID, "idle"); err != nil {
				w.logger.Warn("setting worker heartbeat failed", "worker_id", w.ID, "error", err)
			}
		}

		deliveries, err := w.Queue.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("consuming delivery jobs failed", "worker_id", w.ID, "error", err)
			continue
		}

		for _, d := range deliveries {
			if hasHeartbeat {
				if err := hb.SetWorkerHeartbeat(ctx, w.ID, "delivering"); err != nil {
					w.logger.Warn("setting worker heartbeat failed", "worker_id", w.ID, "error", err)
				}
			}

			if err := w.Process(ctx, d); err != nil {
				/* Leaving the job unacknowledged makes the queue redeliver
				 * it; the attempt log's uniqueness constraint absorbs the
				 * duplicate execution
				 */
				w.logger.Error("processing delivery job failed",
					"worker_id", w.ID,
					"webhook_event_id", d.WebhookEventID,
					"attempt_number", d.AttemptNumber,
					"error", err)
				continue
			}

			if err := w.Queue.Ack(ctx, d); err != nil {
				w.logger.Error("acknowledging delivery job failed",
					"worker_id", w.ID,
					"webhook_event_id", d.WebhookEventID,
					"error", err)
			}
		}
	}
}

/* Process executes the state machine for one consumed job
 * A nil return means the job is finished and may be acknowledged; an error
 * means the queue should redeliver it
 */
func (w *Worker) Process(ctx context.Context, d queue.Delivery) error {
	sub, err := w.Subs.Resolve(ctx, d.SubscriptionID)
	if errors.Is(err, subscription.ErrNotFound) {
		// The subscription was deleted or deactivated after ingestion.
		// Abort with no attempt row; this is not a delivery failure.
		w.logger.Info("subscription gone, aborting delivery",
			"subscription_id", d.SubscriptionID,
			"webhook_event_id", d.WebhookEventID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolving subscription: %w", err)
	}

	state, err := w.deliver(ctx, d.Job, sub)
	if errors.Is(err, ErrAttemptExists) {
		// Another execution of this job already recorded this attempt.
		w.logger.Info("attempt already recorded, skipping",
			"webhook_event_id", d.WebhookEventID,
			"attempt_number", d.AttemptNumber)
		return nil
	}
	if err != nil {
		return err
	}

	w.logger.Info("delivery job finished",
		"webhook_event_id", d.WebhookEventID,
		"subscription_id", d.SubscriptionID,
		"attempt_number", d.AttemptNumber,
		"state", state.String())

	return nil
}

// deliver runs one attempt against the subscriber and returns the final
// state of the job.
func (w *Worker) deliver(ctx context.Context, job queue.Job, sub subscription.Subscription) (State, error) {
	attempt := Attempt{
		ID:             uuid.New().String(),
		SubscriptionID: job.SubscriptionID,
		WebhookEventID: job.WebhookEventID,
		AttemptNumber:  job.AttemptNumber,
		Success:        false,
		CreatedAt:      time.Now().UTC(),
	}

	// Persisted before sending so the attempt is auditable even if the
	// process dies mid-flight.
	if err := w.Attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, ErrAttemptExists) {
			return Created, err
		}
		return Created, fmt.Errorf("recording delivery attempt: %w", err)
	}

	outcome := w.send(ctx, job, sub)

	if err := w.Attempts.Finalize(ctx, attempt.ID, outcome); err != nil {
		return InFlight, fmt.Errorf("finalizing delivery attempt: %w", err)
	}

	if outcome.Success {
		w.updateEventStatus(ctx, job.WebhookEventID, event.Delivered)
		return Success, nil
	}

	if job.AttemptNumber < w.MaxAttempts {
		delay := w.Backoff.Delay(job.AttemptNumber)

		next := job
		next.AttemptNumber = job.AttemptNumber + 1
		if err := w.Queue.Enqueue(ctx, next, delay); err != nil {
			return InFlight, fmt.Errorf("scheduling retry: %w", err)
		}

		w.logger.Info("retry scheduled",
			"webhook_event_id", job.WebhookEventID,
			"attempt_number", next.AttemptNumber,
			"delay", delay.String())
		return RetryScheduled, nil
	}

	w.updateEventStatus(ctx, job.WebhookEventID, event.Failed)
	w.logger.Error("max delivery attempts exhausted",
		"webhook_event_id", job.WebhookEventID,
		"subscription_id", job.SubscriptionID,
		"attempts", job.AttemptNumber)
	return TerminalFailure, nil
}

// send issues the signed POST and classifies the outcome.
func (w *Worker) send(ctx context.Context, job queue.Job, sub subscription.Subscription) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.TargetURL, bytes.NewReader(job.Payload))
	if err != nil {
		msg := err.Error()
		return Outcome{ErrorMessage: &msg}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", job.EventType)
	req.Header.Set("X-Hook-Signature", w.Sign(sub.Secret, job.Payload))

	resp, err := w.client.Do(req)
	if err != nil {
		// Transport and timeout errors are retryable.
		msg := err.Error()
		return Outcome{ErrorMessage: &msg}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, ResponseBodyLimit+1))
	if err != nil {
		body = nil
	}

	statusCode := resp.StatusCode
	responseBody := TruncateBody(body)

	outcome := Outcome{
		StatusCode:   &statusCode,
		ResponseBody: &responseBody,
		Success:      acceptedStatusCodes[statusCode],
	}

	if !outcome.Success {
		msg := fmt.Sprintf("Received status code %d", statusCode)
		outcome.ErrorMessage = &msg
	}

	return outcome
}

// updateEventStatus records the informational event lifecycle status.
// Failures are logged but never override the delivery outcome.
func (w *Worker) updateEventStatus(ctx context.Context, eventID string, status event.Status) {
	if err := w.Events.UpdateStatus(ctx, eventID, status); err != nil {
		w.logger.Warn("updating event status failed",
			"webhook_event_id", eventID,
			"status", status.String(),
			"error", err)
	}
}
