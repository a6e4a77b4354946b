package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-dispatch/subscription"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of subscription.Cache
 * Entries live under subscription:{id} with a fixed TTL, so even a missed
 * invalidation converges to the store within the TTL window
 */

const keyPrefix = "subscription" // Key naming: subscription:{subscription_id}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// entry is the cached wire form of a subscription.
type entry struct {
	ID         string    `json:"id"`
	TargetURL  string    `json:"target_url"`
	Secret     string    `json:"secret"`
	EventTypes []string  `json:"event_types"`
	Active     bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// New creates a Redis-backed subscription cache.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached subscription or subscription.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, id string) (subscription.Subscription, error) {
	data, err := c.client.Get(ctx, cacheKey(id)).Result()
	if err == redis.Nil {
		return subscription.Subscription{}, subscription.ErrCacheMiss
	}
	if err != nil {
		return subscription.Subscription{}, fmt.Errorf("reading cached subscription: %w", err)
	}

	var e entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		// A corrupt entry is indistinguishable from a miss for callers.
		return subscription.Subscription{}, subscription.ErrCacheMiss
	}

	return subscription.Subscription{
		ID:         e.ID,
		TargetURL:  e.TargetURL,
		Secret:     e.Secret,
		EventTypes: e.EventTypes,
		Active:     e.Active,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}, nil
}

// Put stores the subscription under the configured TTL.
func (c *Cache) Put(ctx context.Context, sub subscription.Subscription) error {
	data, err := json.Marshal(entry{
		ID:         sub.ID,
		TargetURL:  sub.TargetURL,
		Secret:     sub.Secret,
		EventTypes: sub.EventTypes,
		Active:     sub.Active,
		CreatedAt:  sub.CreatedAt,
		UpdatedAt:  sub.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshaling subscription: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(sub.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching subscription: %w", err)
	}

	return nil
}

// Invalidate removes the entry; deleting a missing key is not an error.
func (c *Cache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		return fmt.Errorf("invalidating cached subscription: %w", err)
	}
	return nil
}

func cacheKey(id string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, id)
}
