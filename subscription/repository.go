package subscription

import (
	"context"
	"errors"
)

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 * Written for users of the API, not just for testing
 */

// ErrNotFound is returned when no subscription matches the lookup.
var ErrNotFound = errors.New("subscription not found")

// ErrCacheMiss is returned by Cache.Get when the entry is absent or expired.
var ErrCacheMiss = errors.New("subscription not cached")

// Reader provides read operations for subscriptions
type Reader interface {
	Get(ctx context.Context, id string) (Subscription, error)
	/* GetActive returns the subscription only if its active flag is set
	 * The delivery engine never resolves inactive subscriptions
	 */
	GetActive(ctx context.Context, id string) (Subscription, error)
	List(ctx context.Context) ([]Subscription, error)
}

// Writer provides write operations for subscriptions
type Writer interface {
	Create(ctx context.Context, sub Subscription) error
	Update(ctx context.Context, sub Subscription) error
	Delete(ctx context.Context, id string) error
}

type Repository interface {
	Reader
	Writer
	Close(ctx context.Context) error
}

/* Cache is the cache-aside lookup in front of the Repository
 * Entries are disposable and reconstructible from the store at any time
 */
type Cache interface {
	// Get returns the cached subscription or ErrCacheMiss.
	Get(ctx context.Context, id string) (Subscription, error)
	// Put stores the subscription under the configured TTL.
	Put(ctx context.Context, sub Subscription) error
	/* Invalidate removes the entry. Mutating callers must invoke it after
	 * every committed update or delete, before reporting success, so the
	 * delivery engine never signs with a stale secret beyond the TTL window
	 */
	Invalidate(ctx context.Context, id string) error
}
