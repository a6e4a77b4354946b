package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/marcelsud/webhook-dispatch/config"
	"github.com/marcelsud/webhook-dispatch/delivery"
	deliverypg "github.com/marcelsud/webhook-dispatch/delivery/postgres"
	"github.com/marcelsud/webhook-dispatch/delivery/signature"
	eventpg "github.com/marcelsud/webhook-dispatch/event/postgres"
	"github.com/marcelsud/webhook-dispatch/migrations"
	qredis "github.com/marcelsud/webhook-dispatch/queue/redis"
	"github.com/marcelsud/webhook-dispatch/subscription"
	subscriptionpg "github.com/marcelsud/webhook-dispatch/subscription/postgres"
	"github.com/marcelsud/webhook-dispatch/subscription/rediscache"

	"github.com/redis/go-redis/v9"
)

// schedulerPollInterval is how often delayed retries are promoted onto
// the delivery stream.
const schedulerPollInterval = 1 * time.Second

/* The worker binary runs the delivery engine: a pool of competing
 * consumers, the retry scheduler, and the retention sweeper
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
	subService := subscription.NewService(subRepo, cache, logger)

	backoff := delivery.Backoff{
		InitialDelay: cfg.InitialRetryDelay(),
		MaxDelay:     cfg.MaxRetryDelay(),
	}

	var wg sync.WaitGroup

	// Worker pool: competing consumers on the shared queue
	for i := 0; i < cfg.WorkerCount; i++ {
		q := qredis.NewQueueWithClient(redisClient, fmt.Sprintf("worker-%d", i))
		worker := delivery.NewWorker(
			subService, attemptRepo, eventRepo, q,
			signature.Sign, backoff,
			cfg.MaxDeliveryAttempts, cfg.DeliveryTimeout(), logger,
		)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("delivery worker stopped", "error", err)
			}
		}()
	}

	// Retry scheduler: promotes due delayed jobs onto the stream
	schedulerQueue := qredis.NewQueueWithClient(redisClient, "scheduler")
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := schedulerQueue.RunScheduler(ctx, schedulerPollInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("retry scheduler stopped", "error", err)
		}
	}()

	// Retention sweeper: bounds attempt-history growth
	sweeper := delivery.NewSweeper(
		attemptRepo,
		cfg.RetentionWindow(), cfg.SweepInterval(), cfg.SweepBatchSize,
		logger,
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("retention sweeper stopped", "error", err)
		}
	}()

	logger.Info("delivery engine started",
		"workers", cfg.WorkerCount,
		"max_attempts", cfg.MaxDeliveryAttempts,
		"retention", cfg.RetentionWindow().String())

	<-ctx.Done()
	logger.Info("shutting down delivery engine")
	wg.Wait()
}
