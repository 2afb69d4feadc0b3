package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_routing_backend/internal/events"
	"lead_routing_backend/internal/notification"
	"lead_routing_backend/internal/notification/delivery"
	"lead_routing_backend/internal/notification/outbox"
	"lead_routing_backend/internal/providers"
	"lead_routing_backend/internal/routing"
	"lead_routing_backend/internal/scheduler"
	sharedvalidator "lead_routing_backend/internal/shared/validator"
	"lead_routing_backend/platform/config"
	"lead_routing_backend/platform/db"
	"lead_routing_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	val, err := sharedvalidator.NewWithDomainRules()
	if err != nil {
		panic("failed to register validation rules: " + err.Error())
	}

	// Routing steps run here publish the same events as the API, so the
	// outbox writers are subscribed in this process too.
	notificationModule := notification.New(pool, log)
	notificationModule.Subscribe(eventBus)

	providersModule := providers.NewModule(pool, eventBus, val, cfg, log)
	routingModule := routing.NewModule(pool, eventBus, providersModule.Repository(), providersModule.Service(), val, cfg, log)

	phaseClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = phaseClient.Close() }()
	routingModule.Service().SetScheduler(phaseClient)

	redisClient, err := scheduler.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	publisher := delivery.NewRouter(delivery.NewStreamPublisher(redisClient, cfg.GetNotificationStream()))
	if mailer := delivery.NewOpsMailer(cfg); mailer != nil {
		publisher.Route(outbox.RecipientOperations, mailer)
		log.Info("operations alerts go to the ops mailbox", "to", cfg.GetOpsAlertEmail())
	}
	deliverer := notification.NewDeliverer(notificationModule.Outbox(), publisher, log)

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, notificationModule.Outbox(), log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	sweep := scheduler.NewProviderRescoreSweep(providersModule.Service(), log, cfg.GetRoutingPolicy().RescoreInterval)
	go sweep.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, routingModule.Service(), deliverer, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
