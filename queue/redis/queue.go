package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelsud/webhook-dispatch/queue"

	"github.com/redis/go-redis/v9"
)

/* Redis Streams implementation of queue.Queue
 * Immediate jobs land on a stream consumed through a consumer group.
 * Delayed jobs (scheduled retries) wait in a sorted set scored by their
 * due time until the scheduler promotes them onto the stream, so a retry
 * is a queue entry, never a sleeping worker
 */

const (
	streamKey    = "deliveries:jobs"      // Stream carrying ready-to-run jobs
	scheduledKey = "deliveries:scheduled" // Sorted set of delayed jobs, scored by due time
	groupName    = "delivery-workers"     // Consumer group shared by all workers

	// reclaimIdle is how long a pending message may sit unacknowledged
	// before another consumer may claim it.
	reclaimIdle = 60 * time.Second
)

type Queue struct {
	client   *redis.Client
	consumer string
	logger   *slog.Logger
}

// NewQueue creates a Redis-backed delivery queue. The consumer name
// identifies this process within the shared consumer group.
func NewQueue(addr, password string, db int, consumer string) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Queue{
		client:   client,
		consumer: consumer,
		logger:   slog.Default(),
	}, nil
}

// NewQueueWithClient wraps an existing Redis client, shared with the
// subscription cache.
func NewQueueWithClient(client *redis.Client, consumer string) *Queue {
	return &Queue{
		client:   client,
		consumer: consumer,
		logger:   slog.Default(),
	}
}

// Enqueue adds a job to the stream, or to the scheduled set when delayed.
func (q *Queue) Enqueue(ctx context.Context, job queue.Job, delay time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}

	if delay > 0 {
		err := q.client.ZAdd(ctx, scheduledKey, redis.Z{
			Score:  float64(time.Now().Add(delay).UnixMilli()),
			Member: data,
		}).Err()
		if err != nil {
			return fmt.Errorf("scheduling delayed job: %w", err)
		}
		return nil
	}

	return q.push(ctx, data)
}

func (q *Queue) push(ctx context.Context, data []byte) error {
	// Create consumer group if it doesn't exist
	q.client.XGroupCreateMkStream(ctx, streamKey, groupName, "0")
	// Ignore error if group already exists

	_, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{"job": data},
	}).Result()
	if err != nil {
		return fmt.Errorf("adding to stream: %w", err)
	}

	return nil
}

// Consume reads jobs from the stream using the consumer group. It first
// claims messages left pending by crashed consumers, then reads new ones.
func (q *Queue) Consume(ctx context.Context) ([]queue.Delivery, error) {
	// Create consumer group if it doesn't exist
	q.client.XGroupCreateMkStream(ctx, streamKey, groupName, "0")
	// Ignore error if group already exists

	claimed, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   streamKey,
		Group:    groupName,
		Consumer: q.consumer,
		MinIdle:  reclaimIdle,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil && err != redis.Nil {
		// A broken reclaim path degrades to reading new messages only;
		// abandoned messages would otherwise go invisible.
		q.logger.Warn("claiming pending delivery jobs failed",
			"consumer", q.consumer, "error", err)
	}
	if len(claimed) > 0 {
		return parseMessages(claimed), nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    groupName,
		Consumer: q.consumer,
		Streams:  []string{streamKey, ">"},
		Count:    1,
		Block:    1 * time.Second, // Shorter timeout for better responsiveness
	}).Result()
	if err == redis.Nil {
		// No messages available
		return []queue.Delivery{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return []queue.Delivery{}, nil
	}

	return parseMessages(streams[0].Messages), nil
}

// Ack acknowledges a delivery so the group does not redeliver it.
func (q *Queue) Ack(ctx context.Context, d queue.Delivery) error {
	if err := q.client.XAck(ctx, streamKey, groupName, d.MessageID).Err(); err != nil {
		return fmt.Errorf("acknowledging message: %w", err)
	}
	return nil
}

/* RunScheduler promotes due jobs from the scheduled set onto the stream
 * until the context is cancelled. Safe to run in several processes: the
 * ZRem result decides which promoter owns a member
 */
func (q *Queue) RunScheduler(ctx context.Context, pollInterval time.Duration) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := q.PromoteDue(ctx); err != nil {
				return err
			}
		}
	}
}

// PromoteDue moves every job whose due time has passed onto the stream.
func (q *Queue) PromoteDue(ctx context.Context) error {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())

	members, err := q.client.ZRangeByScore(ctx, scheduledKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("reading scheduled jobs: %w", err)
	}

	for _, member := range members {
		removed, err := q.client.ZRem(ctx, scheduledKey, member).Result()
		if err != nil {
			return fmt.Errorf("removing scheduled job: %w", err)
		}
		if removed == 0 {
			// Another promoter took this member
			continue
		}
		if err := q.push(ctx, []byte(member)); err != nil {
			return err
		}
	}

	return nil
}

// ScheduledCount returns the number of jobs waiting on the scheduled set.
func (q *Queue) ScheduledCount(ctx context.Context) (int64, error) {
	count, err := q.client.ZCard(ctx, scheduledKey).Result()
	if err != nil {
		return 0, fmt.Errorf("counting scheduled jobs: %w", err)
	}
	return count, nil
}

// PendingCount returns the number of entries on the job stream.
func (q *Queue) PendingCount(ctx context.Context) (int64, error) {
	count, err := q.client.XLen(ctx, streamKey).Result()
	if err != nil {
		return 0, fmt.Errorf("counting stream entries: %w", err)
	}
	return count, nil
}

// Close closes the Redis connection.
func (q *Queue) Close(ctx context.Context) error {
	return q.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (q *Queue) GetClient() *redis.Client {
	return q.client
}

func parseMessages(msgs []redis.XMessage) []queue.Delivery {
	var deliveries []queue.Delivery
	for _, msg := range msgs {
		raw, ok := msg.Values["job"].(string)
		if !ok {
			continue
		}

		var job queue.Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			continue
		}

		deliveries = append(deliveries, queue.Delivery{
			Job:       job,
			MessageID: msg.ID,
		})
	}
	return deliveries
}
