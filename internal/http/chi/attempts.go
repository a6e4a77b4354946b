package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/marcelsud/webhook-dispatch/delivery"

	"github.com/go-chi/chi/v5"
)

const (
	defaultAttemptsLimit = 10
	maxAttemptsLimit     = 100
)

// attemptResponse represents a delivery attempt in the API
type attemptResponse struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	WebhookEventID string    `json:"webhook_event_id"`
	AttemptNumber  int       `json:"attempt_number"`
	StatusCode     *int      `json:"status_code"`
	ResponseBody   *string   `json:"response_body"`
	ErrorMessage   *string   `json:"error_message"`
	Success        bool      `json:"is_success"`
	CreatedAt      time.Time `json:"created_at"`
}

func toAttemptResponse(a delivery.Attempt) attemptResponse {
	return attemptResponse{
		ID:             a.ID,
		SubscriptionID: a.SubscriptionID,
		WebhookEventID: a.WebhookEventID,
		AttemptNumber:  a.AttemptNumber,
		StatusCode:     a.StatusCode,
		ResponseBody:   a.ResponseBody,
		ErrorMessage:   a.ErrorMessage,
		Success:        a.Success,
		CreatedAt:      a.CreatedAt,
	}
}

// getSubscriptionAttempts handles GET /subscriptions/{id}/attempts
func getSubscriptionAttempts(attempts delivery.Reader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subscriptionID := chi.URLParam(r, "id")

		skip := queryInt(r, "skip", 0)
		if skip < 0 {
			skip = 0
		}
		limit := queryInt(r, "limit", defaultAttemptsLimit)
		if limit < 1 || limit > maxAttemptsLimit {
			limit = defaultAttemptsLimit
		}

		list, err := attempts.ListBySubscription(r.Context(), subscriptionID, skip, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		responses := make([]attemptResponse, 0, len(list))
		for _, a := range list {
			responses = append(responses, toAttemptResponse(a))
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(responses); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// getAttempt handles GET /attempts/{id}
func getAttempt(attempts delivery.Reader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		attempt, err := attempts.Get(r.Context(), id)
		if errors.Is(err, delivery.ErrNotFound) {
			http.Error(w, "delivery attempt not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toAttemptResponse(attempt)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
