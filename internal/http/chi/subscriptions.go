package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/marcelsud/webhook-dispatch/subscription"

	"github.com/go-chi/chi/v5"
)

/* HTTP layer DTOs for the subscription API
 * Separate from domain entities to avoid leaking internal structure;
 * the secret is accepted on input but never echoed back
 */

// subscriptionRequest represents the subscription registration payload
type subscriptionRequest struct {
	TargetURL  string   `json:"target_url"`
	Secret     string   `json:"secret"`
	EventTypes []string `json:"event_types"`
}

// subscriptionUpdateRequest carries optional fields; nil means unchanged
type subscriptionUpdateRequest struct {
	TargetURL  *string  `json:"target_url"`
	Secret     *string  `json:"secret"`
	EventTypes []string `json:"event_types"`
	Active     *bool    `json:"is_active"`
}

// subscriptionResponse represents a subscription in the API
type subscriptionResponse struct {
	ID         string    `json:"id"`
	TargetURL  string    `json:"target_url"`
	EventTypes []string  `json:"event_types"`
	Active     bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toSubscriptionResponse(sub subscription.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:         sub.ID,
		TargetURL:  sub.TargetURL,
		EventTypes: sub.EventTypes,
		Active:     sub.Active,
		CreatedAt:  sub.CreatedAt,
		UpdatedAt:  sub.UpdatedAt,
	}
}

// postSubscription handles POST /subscriptions
func postSubscription(subs subscription.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req subscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		sub, err := subs.Create(r.Context(), req.TargetURL, req.Secret, req.EventTypes)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(toSubscriptionResponse(sub)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// getSubscriptions handles GET /subscriptions
func getSubscriptions(subs subscription.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		list, err := subs.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		responses := make([]subscriptionResponse, 0, len(list))
		for _, sub := range list {
			responses = append(responses, toSubscriptionResponse(sub))
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(responses); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// getSubscription handles GET /subscriptions/{id}
func getSubscription(subs subscription.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		sub, err := subs.Get(r.Context(), id)
		if errors.Is(err, subscription.ErrNotFound) {
			http.Error(w, "subscription not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toSubscriptionResponse(sub)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// putSubscription handles PUT /subscriptions/{id}
func putSubscription(subs subscription.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req subscriptionUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		sub, err := subs.Update(r.Context(), id, subscription.Update{
			TargetURL:  req.TargetURL,
			Secret:     req.Secret,
			EventTypes: req.EventTypes,
			Active:     req.Active,
		})
		if errors.Is(err, subscription.ErrNotFound) {
			http.Error(w, "subscription not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toSubscriptionResponse(sub)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// deleteSubscription handles DELETE /subscriptions/{id}
func deleteSubscription(subs subscription.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := subs.Delete(r.Context(), id)
		if errors.Is(err, subscription.ErrNotFound) {
			http.Error(w, "subscription not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}
