package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/subscription"

	"github.com/go-chi/chi/v5"
)

// eventRequest represents the ingestion payload
type eventRequest struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// eventResponse confirms that an event was queued for delivery
type eventResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	EventID string `json:"event_id"`
}

// postEvent handles POST /ingest/{subscription_id}
func postEvent(events event.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subscriptionID := chi.URLParam(r, "subscription_id")

		var req eventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		ev, err := events.Ingest(r.Context(), subscriptionID, req.EventType, req.Payload)
		if errors.Is(err, subscription.ErrNotFound) {
			http.Error(w, "subscription not found or inactive", http.StatusNotFound)
			return
		}
		if errors.Is(err, event.ErrEventTypeNotAllowed) || errors.Is(err, event.ErrInvalidEvent) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			// Store or queue outages are not the caller's fault.
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		response := eventResponse{
			Status:  "accepted",
			Message: "Webhook queued for delivery",
			EventID: ev.ID,
		}

		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
