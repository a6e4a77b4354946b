package event_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/queue"
	"github.com/marcelsud/webhook-dispatch/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventRepo struct {
	events   map[string]event.Event
	statuses map[string]event.Status
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		events:   map[string]event.Event{},
		statuses: map[string]event.Status{},
	}
}

func (f *fakeEventRepo) Create(ctx context.Context, ev event.Event) error {
	f.events[ev.ID] = ev
	return nil
}

func (f *fakeEventRepo) Get(ctx context.Context, id string) (event.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return ev, nil
}

func (f *fakeEventRepo) UpdateStatus(ctx context.Context, id string, status event.Status) error {
	if _, ok := f.events[id]; !ok {
		return event.ErrNotFound
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeEventRepo) Close(ctx context.Context) error { return nil }

type fakeSubReader struct {
	sub subscription.Subscription
	err error
}

func (f *fakeSubReader) Get(ctx context.Context, id string) (subscription.Subscription, error) {
	return f.GetActive(ctx, id)
}

func (f *fakeSubReader) GetActive(ctx context.Context, id string) (subscription.Subscription, error) {
	if f.err != nil {
		return subscription.Subscription{}, f.err
	}
	return f.sub, nil
}

func (f *fakeSubReader) List(ctx context.Context) ([]subscription.Subscription, error) {
	return []subscription.Subscription{f.sub}, nil
}

type enqueuedJob struct {
	job   queue.Job
	delay time.Duration
}

type fakeEnqueuer struct {
	jobs []enqueuedJob
	err  error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, job queue.Job, delay time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, enqueuedJob{job: job, delay: delay})
	return nil
}

func activeSubscription() subscription.Subscription {
	return subscription.Subscription{
		ID:         "sub-1",
		TargetURL:  "https://example.com/hooks",
		Secret:     "my_secure_secret_123",
		EventTypes: []string{"user.created", "user.deleted"},
		Active:     true,
	}
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	payload := json.RawMessage(`{"user_id":123}`)

	t.Run("persists the event and enqueues the first attempt", func(t *testing.T) {
		repo := newFakeEventRepo()
		q := &fakeEnqueuer{}
		service := event.NewService(repo, &fakeSubReader{sub: activeSubscription()}, q)

		ev, err := service.Ingest(ctx, "sub-1", "user.created", payload)
		require.NoError(t, err)

		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, "sub-1", ev.SubscriptionID)
		assert.Equal(t, "user.created", ev.EventType)
		assert.Equal(t, event.Pending, ev.Status)

		stored, err := repo.Get(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, ev, stored)

		require.Len(t, q.jobs, 1)
		job := q.jobs[0].job
		assert.Equal(t, ev.ID, job.WebhookEventID)
		assert.Equal(t, "sub-1", job.SubscriptionID)
		assert.Equal(t, "user.created", job.EventType)
		assert.Equal(t, payload, job.Payload)
		assert.Equal(t, 1, job.AttemptNumber, "the first attempt is number one")
		assert.Zero(t, q.jobs[0].delay, "the first attempt runs immediately")
	})

	t.Run("disallowed event type", func(t *testing.T) {
		repo := newFakeEventRepo()
		q := &fakeEnqueuer{}
		service := event.NewService(repo, &fakeSubReader{sub: activeSubscription()}, q)

		_, err := service.Ingest(ctx, "sub-1", "order.created", payload)
		require.ErrorIs(t, err, event.ErrEventTypeNotAllowed)

		assert.Empty(t, repo.events, "a rejected event must not be persisted")
		assert.Empty(t, q.jobs, "a rejected event must not be enqueued")
	})

	t.Run("malformed event type", func(t *testing.T) {
		service := event.NewService(newFakeEventRepo(), &fakeSubReader{sub: activeSubscription()}, &fakeEnqueuer{})

		_, err := service.Ingest(ctx, "sub-1", "user created!", payload)
		require.ErrorIs(t, err, event.ErrInvalidEvent)
		assert.Contains(t, err.Error(), "validating event type")
	})

	t.Run("invalid payload", func(t *testing.T) {
		repo := newFakeEventRepo()
		service := event.NewService(repo, &fakeSubReader{sub: activeSubscription()}, &fakeEnqueuer{})

		for _, payload := range []json.RawMessage{nil, json.RawMessage(""), json.RawMessage(`{"broken":`)} {
			_, err := service.Ingest(ctx, "sub-1", "user.created", payload)
			require.ErrorIs(t, err, event.ErrInvalidEvent)
			assert.Contains(t, err.Error(), "payload must be valid JSON")
		}
		assert.Empty(t, repo.events)
	})

	t.Run("subscription missing or inactive", func(t *testing.T) {
		repo := newFakeEventRepo()
		q := &fakeEnqueuer{}
		service := event.NewService(repo, &fakeSubReader{err: subscription.ErrNotFound}, q)

		_, err := service.Ingest(ctx, "sub-1", "user.created", payload)
		require.ErrorIs(t, err, subscription.ErrNotFound)
		assert.Empty(t, repo.events)
		assert.Empty(t, q.jobs)
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := newFakeEventRepo()
		service := event.NewService(repo, &fakeSubReader{sub: activeSubscription()}, &fakeEnqueuer{})

		created, err := service.Ingest(ctx, "sub-1", "user.created", json.RawMessage(`{"id":1}`))
		require.NoError(t, err)

		got, err := service.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
	})

	t.Run("not found", func(t *testing.T) {
		service := event.NewService(newFakeEventRepo(), &fakeSubReader{}, &fakeEnqueuer{})

		_, err := service.Get(ctx, "missing")
		assert.ErrorIs(t, err, event.ErrNotFound)
	})
}
