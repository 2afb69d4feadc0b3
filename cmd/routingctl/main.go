package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"lead_routing_backend/internal/events"
	"lead_routing_backend/internal/leads"
	"lead_routing_backend/internal/market"
	"lead_routing_backend/internal/notification"
	"lead_routing_backend/internal/providers"
	"lead_routing_backend/internal/routing"
	"lead_routing_backend/internal/scheduler"
	sharedvalidator "lead_routing_backend/internal/shared/validator"
	"lead_routing_backend/platform/config"
	"lead_routing_backend/platform/db"
	"lead_routing_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "routingctl",
	Short: "Operator tooling for the lead routing backend",
	Long: "Runs routing steps, provider rescoring, lead score explanations and market " +
		"stats imports directly against the database, bypassing the HTTP API.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		log = logger.New(cfg.Env)
		return nil
	},
}

// backend holds the modules a command operates on. The event bus runs the
// same outbox writers as the API so CLI routing still notifies.
type backend struct {
	pool      *pgxpool.Pool
	bus       *events.InMemoryBus
	leads     *leads.Module
	market    *market.Module
	providers *providers.Module
	routing   *routing.Module
	phases    *scheduler.Client
}

func openBackend(ctx context.Context) (*backend, error) {
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	val, err := sharedvalidator.NewWithDomainRules()
	if err != nil {
		pool.Close()
		return nil, err
	}

	bus := events.NewInMemoryBus(log)
	notification.New(pool, log).Subscribe(bus)

	marketModule := market.NewModule(pool, nil, val, log)
	providersModule := providers.NewModule(pool, bus, val, cfg, log)

	b := &backend{
		pool:      pool,
		bus:       bus,
		leads:     leads.NewModule(pool, bus, marketModule.Service(), val, cfg, log),
		market:    marketModule,
		providers: providersModule,
		routing:   routing.NewModule(pool, bus, providersModule.Repository(), providersModule.Service(), val, cfg, log),
	}

	// Without Redis, phase timers are not armed and the operator drives
	// escalate/expire by hand.
	if cfg.GetRedisURL() != "" {
		phases, err := scheduler.NewClient(cfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.phases = phases
		b.routing.Service().SetScheduler(phases)
	}
	return b, nil
}

func (b *backend) Close() {
	b.bus.Wait()
	_ = b.phases.Close()
	b.pool.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
