package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

/* Service represents the business logic layer
 * Uses pointer semantics as it's an API, not data
 */

// UseCase defines the business operations for subscription management
type UseCase interface {
	Create(ctx context.Context, targetURL, secret string, eventTypes []string) (Subscription, error)
	Get(ctx context.Context, id string) (Subscription, error)
	List(ctx context.Context) ([]Subscription, error)
	Update(ctx context.Context, id string, update Update) (Subscription, error)
	Delete(ctx context.Context, id string) error
	Resolve(ctx context.Context, id string) (Subscription, error)
}

// Update carries the mutable fields of a subscription; nil means unchanged.
type Update struct {
	TargetURL  *string
	Secret     *string
	EventTypes []string
	Active     *bool
}

type Service struct {
	Repo   Repository
	Cache  Cache
	logger *slog.Logger
}

// NewService creates a new subscription service with dependency injection
func NewService(repo Repository, cache Cache, logger *slog.Logger) *Service {
	return &Service{
		Repo:   repo,
		Cache:  cache,
		logger: logger,
	}
}

// Create registers a new subscription after validating its fields.
func (s *Service) Create(ctx context.Context, targetURL, secret string, eventTypes []string) (Subscription, error) {
	now := time.Now().UTC()
	sub := Subscription{
		ID:         uuid.New().String(),
		TargetURL:  targetURL,
		Secret:     secret,
		EventTypes: eventTypes,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := sub.Validate(); err != nil {
		return Subscription{}, fmt.Errorf("validating subscription: %w", err)
	}

	if err := s.Repo.Create(ctx, sub); err != nil {
		return Subscription{}, fmt.Errorf("storing subscription: %w", err)
	}

	return sub, nil
}

// Get returns a subscription by id, active or not.
func (s *Service) Get(ctx context.Context, id string) (Subscription, error) {
	sub, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Subscription{}, fmt.Errorf("getting subscription: %w", err)
	}
	return sub, nil
}

// List returns all registered subscriptions.
func (s *Service) List(ctx context.Context) ([]Subscription, error) {
	subs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	return subs, nil
}

/* Update applies the changed fields, persists them, and invalidates the
 * cache entry before returning. Invalidation is a post-condition of the
 * mutation contract, not an optimization: a rotated secret must never be
 * served from cache once the update has committed
 */
func (s *Service) Update(ctx context.Context, id string, update Update) (Subscription, error) {
	sub, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Subscription{}, fmt.Errorf("getting subscription: %w", err)
	}

	if update.TargetURL != nil {
		sub.TargetURL = *update.TargetURL
	}
	if update.Secret != nil {
		sub.Secret = *update.Secret
	}
	if update.EventTypes != nil {
		sub.EventTypes = update.EventTypes
	}
	if update.Active != nil {
		sub.Active = *update.Active
	}
	sub.UpdatedAt = time.Now().UTC()

	if err := sub.Validate(); err != nil {
		return Subscription{}, fmt.Errorf("validating subscription: %w", err)
	}

	if err := s.Repo.Update(ctx, sub); err != nil {
		return Subscription{}, fmt.Errorf("updating subscription: %w", err)
	}

	if err := s.Cache.Invalidate(ctx, id); err != nil {
		return Subscription{}, fmt.Errorf("invalidating subscription cache: %w", err)
	}

	return sub, nil
}

// Delete removes a subscription and invalidates its cache entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}

	if err := s.Cache.Invalidate(ctx, id); err != nil {
		return fmt.Errorf("invalidating subscription cache: %w", err)
	}

	return nil
}

/* Resolve is the cache-aside read used by the delivery engine
 * Cache first, store on miss (active subscriptions only), then a
 * best-effort cache population that never fails the read path
 */
func (s *Service) Resolve(ctx context.Context, id string) (Subscription, error) {
	sub, err := s.Cache.Get(ctx, id)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		// A broken cache degrades to store reads, it does not break delivery.
		s.logger.Warn("subscription cache read failed", "subscription_id", id, "error", err)
	}

	sub, err = s.Repo.GetActive(ctx, id)
	if err != nil {
		return Subscription{}, err
	}

	if err := s.Cache.Put(ctx, sub); err != nil {
		s.logger.Warn("subscription cache write failed", "subscription_id", id, "error", err)
	}

	return sub, nil
}
