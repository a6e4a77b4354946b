package metrics

import (
	"context"
	"time"
)

// Metrics represents the current state of the delivery engine.
type Metrics struct {
	// QueuedJobs is the number of jobs on the delivery stream
	QueuedJobs int64 `json:"queued_jobs"`

	// ScheduledRetries is the number of delayed jobs awaiting promotion
	ScheduledRetries int64 `json:"scheduled_retries"`

	// EventStatusCounts maps event status name to count of events
	EventStatusCounts map[string]int64 `json:"event_status_counts"`

	// Workers lists the active delivery workers
	Workers []WorkerInfo `json:"workers"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// WorkerInfo represents information about an active delivery worker.
type WorkerInfo struct {
	// WorkerID is a unique identifier for the worker
	WorkerID string `json:"worker_id"`

	// Status is the current status of the worker (e.g., "idle", "delivering")
	Status string `json:"status"`

	// LastHeartbeat is the timestamp of the last heartbeat
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Collector defines the interface for collecting metrics from the engine.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)

	// GetQueuedJobs returns the number of jobs on the delivery stream
	GetQueuedJobs(ctx context.Context) (int64, error)

	// GetScheduledRetries returns the number of delayed jobs waiting
	GetScheduledRetries(ctx context.Context) (int64, error)

	// GetEventStatusCounts returns the count of events by lifecycle status
	GetEventStatusCounts(ctx context.Context) (map[string]int64, error)

	// GetActiveWorkers returns information about active workers
	GetActiveWorkers(ctx context.Context) ([]WorkerInfo, error)
}
