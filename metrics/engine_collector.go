package metrics

import (
	"context"
	"fmt"
	"time"

	qredis "github.com/marcelsud/webhook-dispatch/queue/redis"
)

// StatusCounter reports event counts grouped by lifecycle status.
// Implemented by the event postgres repository.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// EngineCollector implements the Collector interface over the Redis queue
// and the event store.
type EngineCollector struct {
	queue  *qredis.Queue
	events StatusCounter
}

// NewEngineCollector creates a new delivery engine metrics collector
func NewEngineCollector(queue *qredis.Queue, events StatusCounter) *EngineCollector {
	return &EngineCollector{
		queue:  queue,
		events: events,
	}
}

// Collect gathers all metrics from the engine
func (c *EngineCollector) Collect(ctx context.Context) (Metrics, error) {
	queued, err := c.GetQueuedJobs(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting queued jobs: %w", err)
	}

	scheduled, err := c.GetScheduledRetries(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting scheduled retries: %w", err)
	}

	statusCounts, err := c.GetEventStatusCounts(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting event status counts: %w", err)
	}

	workers, err := c.GetActiveWorkers(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting active workers: %w", err)
	}

	return Metrics{
		QueuedJobs:        queued,
		ScheduledRetries:  scheduled,
		EventStatusCounts: statusCounts,
		Workers:           workers,
		Timestamp:         time.Now(),
	}, nil
}

// GetQueuedJobs returns the number of jobs on the delivery stream
func (c *EngineCollector) GetQueuedJobs(ctx context.Context) (int64, error) {
	return c.queue.PendingCount(ctx)
}

// GetScheduledRetries returns the number of delayed jobs waiting
func (c *EngineCollector) GetScheduledRetries(ctx context.Context) (int64, error) {
	return c.queue.ScheduledCount(ctx)
}

// GetEventStatusCounts returns the count of events by lifecycle status
func (c *EngineCollector) GetEventStatusCounts(ctx context.Context) (map[string]int64, error) {
	return c.events.CountByStatus(ctx)
}

// GetActiveWorkers returns information about active delivery workers
func (c *EngineCollector) GetActiveWorkers(ctx context.Context) ([]WorkerInfo, error) {
	heartbeats, err := c.queue.GetActiveWorkers(ctx)
	if err != nil {
		return nil, err
	}

	workers := make([]WorkerInfo, 0, len(heartbeats))
	for _, hb := range heartbeats {
		workers = append(workers, WorkerInfo{
			WorkerID:      hb.WorkerID,
			Status:        hb.Status,
			LastHeartbeat: hb.LastHeartbeat,
		})
	}

	return workers, nil
}
