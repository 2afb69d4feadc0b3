package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_routing_backend/internal/availability"
	"lead_routing_backend/internal/events"
	apphttp "lead_routing_backend/internal/http"
	"lead_routing_backend/internal/http/router"
	"lead_routing_backend/internal/leads"
	"lead_routing_backend/internal/market"
	marketservice "lead_routing_backend/internal/market/service"
	"lead_routing_backend/internal/notification"
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
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	applied, err := db.RunMigrations(ctx, pool)
	if err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete", "applied", len(applied))

	eventBus := events.NewInMemoryBus(log)

	val, err := sharedvalidator.NewWithDomainRules()
	if err != nil {
		panic("failed to register validation rules: " + err.Error())
	}

	pricingCache, err := marketservice.NewPricingCache(ctx, cfg)
	if err != nil {
		log.Warn("market cache unavailable; reading stats from database", "error", err)
	}
	defer func() { _ = pricingCache.Close() }()

	phaseScheduler, closeScheduler := initPhaseScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to routing events (not HTTP-facing)
	notificationModule := notification.New(pool, log)
	notificationModule.Subscribe(eventBus)

	marketModule := market.NewModule(pool, pricingCache, val, log)
	leadsModule := leads.NewModule(pool, eventBus, marketModule.Service(), val, cfg, log)
	providersModule := providers.NewModule(pool, eventBus, val, cfg, log)
	availabilityModule := availability.NewModule(pool, val, log)
	routingModule := routing.NewModule(pool, eventBus, providersModule.Repository(), providersModule.Service(), val, cfg, log)
	if phaseScheduler != nil {
		routingModule.Service().SetScheduler(phaseScheduler)
	}

	// Scored leads enter routing without a round trip through the HTTP layer
	routingModule.SubscribeLeadScored(eventBus, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			marketModule,
			providersModule,
			availabilityModule,
			routingModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initPhaseScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; routing phases advance only on explicit escalate/expire calls")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize routing scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
