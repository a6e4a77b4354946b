package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelsud/webhook-dispatch/config"
	deliverypg "github.com/marcelsud/webhook-dispatch/delivery/postgres"
	"github.com/marcelsud/webhook-dispatch/event"
	eventpg "github.com/marcelsud/webhook-dispatch/event/postgres"
	"github.com/marcelsud/webhook-dispatch/internal/http/chi"
	"github.com/marcelsud/webhook-dispatch/metrics"
	"github.com/marcelsud/webhook-dispatch/migrations"
	qredis "github.com/marcelsud/webhook-dispatch/queue/redis"
	"github.com/marcelsud/webhook-dispatch/subscription"
	subscriptionpg "github.com/marcelsud/webhook-dispatch/subscription/postgres"
	"github.com/marcelsud/webhook-dispatch/subscription/rediscache"

	"github.com/redis/go-redis/v9"
)

const TIMEOUT = 30 * time.Second

/* The API binary wires the external collaborator surface: subscription
 * CRUD, ingestion, and the status-query endpoints over the attempt log.
 * Delivery itself runs in cmd/worker
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	subRepo, err := subscriptionpg.NewRepository(cfg.PostgresDSN)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer subRepo.Close(ctx)

	if err := migrations.Run(ctx, subRepo.DB); err != nil {
		fmt.Println(err)
		return
	}

	eventRepo := eventpg.NewRepository(subRepo.DB)
	attemptRepo := deliverypg.NewRepository(subRepo.DB)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		fmt.Println(fmt.Errorf("connecting to Redis: %w", err))
		return
	}
	defer redisClient.Close()

	cache := rediscache.New(redisClient, cfg.SubscriptionCacheTTL())
	q := qredis.NewQueueWithClient(redisClient, "api")

	subService := subscription.NewService(subRepo, cache, logger)
	eventService := event.NewService(eventRepo, subRepo, q)

	collector := metrics.NewEngineCollector(q, eventRepo)
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer exporter.Shutdown(context.Background())

	r := chi.Handlers(ctx, subService, eventService, attemptRepo, exporter.ServeHTTP())
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	fmt.Printf("Listening on port %s\n", cfg.Port)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		fmt.Println(err)
		return
	}
	err = <-errShutdown
	if err != nil {
		fmt.Println(err)
		return
	}
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("forcing closing the server")
	}
}
