package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/marcelsud/webhook-dispatch/delivery"
	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/subscription"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/go-chi/httprate"
)

/* Rate limits carried over from the public API contract:
 * subscription management 10/min, ingestion 100/min, attempt queries 30/min
 */
const (
	subscriptionRateLimit = 10
	ingestRateLimit       = 100
	attemptsRateLimit     = 30
)

// Handlers sets up the API routes for the external collaborator surface.
func Handlers(ctx context.Context, subs subscription.UseCase, events event.UseCase, attempts delivery.Reader, metricsHandler http.Handler) *chi.Mux {
	logger := httplog.NewLogger("webhook-dispatch", httplog.Options{
		JSON: true,
	})

	subLimiter := httprate.LimitByIP(subscriptionRateLimit, time.Minute)
	ingestLimiter := httprate.LimitByIP(ingestRateLimit, time.Minute)
	attemptLimiter := httprate.LimitByIP(attemptsRateLimit, time.Minute)

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/subscriptions", func(r chi.Router) {
		r.With(subLimiter).Method(http.MethodPost, "/", postSubscription(subs))
		r.With(subLimiter).Method(http.MethodGet, "/", getSubscriptions(subs))
		r.With(subLimiter).Method(http.MethodGet, "/{id}", getSubscription(subs))
		r.With(subLimiter).Method(http.MethodPut, "/{id}", putSubscription(subs))
		r.With(subLimiter).Method(http.MethodDelete, "/{id}", deleteSubscription(subs))

		// Status-query surface over the attempt log
		r.With(attemptLimiter).Method(http.MethodGet, "/{id}/attempts", getSubscriptionAttempts(attempts))
	})

	r.Route("/ingest", func(r chi.Router) {
		r.Use(ingestLimiter)
		r.Method(http.MethodPost, "/{subscription_id}", postEvent(events))
	})

	r.Route("/attempts", func(r chi.Router) {
		r.Use(attemptLimiter)
		r.Method(http.MethodGet, "/{id}", getAttempt(attempts))
	})

	return r
}
