package rediscache_test

import (
	"context"
	"testing"
	"time"

	"github.com/marcelsud/webhook-dispatch/subscription"
	"github.com/marcelsud/webhook-dispatch/subscription/rediscache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T, ttl time.Duration) (*rediscache.Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return rediscache.New(client, ttl), mr
}

func testSubscription() subscription.Subscription {
	now := time.Now().UTC().Truncate(time.Second)
	return subscription.Subscription{
		ID:         "sub-1",
		TargetURL:  "https://example.com/hooks",
		Secret:     "my_secure_secret_123",
		EventTypes: []string{"user.created"},
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestCachePutGet(t *testing.T) {
	ctx := context.Background()
	cache, _ := setupCache(t, time.Hour)
	sub := testSubscription()

	require.NoError(t, cache.Put(ctx, sub))

	got, err := cache.Get(ctx, sub.ID)
	require.NoError(t, err)

	assert.Equal(t, sub.ID, got.ID)
	assert.Equal(t, sub.TargetURL, got.TargetURL)
	assert.Equal(t, sub.Secret, got.Secret)
	assert.Equal(t, sub.EventTypes, got.EventTypes)
	assert.True(t, got.Active)
	assert.True(t, sub.CreatedAt.Equal(got.CreatedAt))
}

func TestCacheMiss(t *testing.T) {
	ctx := context.Background()
	cache, _ := setupCache(t, time.Hour)

	_, err := cache.Get(ctx, "never-cached")
	assert.ErrorIs(t, err, subscription.ErrCacheMiss)
}

func TestCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	cache, mr := setupCache(t, time.Hour)
	sub := testSubscription()

	require.NoError(t, cache.Put(ctx, sub))

	_, err := cache.Get(ctx, sub.ID)
	require.NoError(t, err)

	mr.FastForward(time.Hour + time.Second)

	_, err = cache.Get(ctx, sub.ID)
	assert.ErrorIs(t, err, subscription.ErrCacheMiss, "entries expire after the TTL")
}

func TestCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, _ := setupCache(t, time.Hour)
	sub := testSubscription()

	require.NoError(t, cache.Put(ctx, sub))
	require.NoError(t, cache.Invalidate(ctx, sub.ID))

	_, err := cache.Get(ctx, sub.ID)
	assert.ErrorIs(t, err, subscription.ErrCacheMiss)
}

func TestCacheInvalidateMissingKey(t *testing.T) {
	ctx := context.Background()
	cache, _ := setupCache(t, time.Hour)

	assert.NoError(t, cache.Invalidate(ctx, "never-cached"))
}

func TestCacheCorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	cache, mr := setupCache(t, time.Hour)

	require.NoError(t, mr.Set("subscription:sub-1", "{not json"))

	_, err := cache.Get(ctx, "sub-1")
	assert.ErrorIs(t, err, subscription.ErrCacheMiss)
}

func TestCachePutOverwrites(t *testing.T) {
	ctx := context.Background()
	cache, _ := setupCache(t, time.Hour)
	sub := testSubscription()

	require.NoError(t, cache.Put(ctx, sub))

	sub.Secret = "rotated_secret_456"
	require.NoError(t, cache.Put(ctx, sub))

	got, err := cache.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated_secret_456", got.Secret)
}
