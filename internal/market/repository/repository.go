// Package repository reads the per-city market statistics produced by the
// external aggregator.
package repository

import (
	"context"
	"errors"
	"fmt"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/platform/db"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("city event stats not found")

// StatsReader is what the pricing service needs from storage.
type StatsReader interface {
	GetStats(ctx context.Context, city, state string, eventType domain.EventType) (domain.CityEventStats, error)
}

// StatsWriter is used by the operator import command.
type StatsWriter interface {
	UpsertStats(ctx context.Context, stats domain.CityEventStats) error
}

type Repository struct {
	db db.Querier
}

func New(q db.Querier) *Repository {
	return &Repository{db: q}
}

// GetStats matches city case-insensitively. An empty state matches any state
// and the largest sample wins.
func (r *Repository) GetStats(ctx context.Context, city, state string, eventType domain.EventType) (domain.CityEventStats, error) {
	var (
		stats      domain.CityEventStats
		eventRaw   string
		qualityRaw string
		tensionRaw *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT city, state, event_type, price_low, price_median, price_high, sample_size,
			data_quality, demand_supply_ratio, market_tension, computed_at
		FROM city_event_stats
		WHERE lower(city) = lower($1) AND event_type = $2 AND ($3 = '' OR lower(state) = lower($3))
		ORDER BY sample_size DESC
		LIMIT 1
	`, city, string(eventType), state).Scan(
		&stats.City, &stats.State, &eventRaw, &stats.PriceLow, &stats.PriceMedian, &stats.PriceHigh, &stats.SampleSize,
		&qualityRaw, &stats.DemandSupplyRatio, &tensionRaw, &stats.ComputedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CityEventStats{}, ErrNotFound
	}
	if err != nil {
		return domain.CityEventStats{}, fmt.Errorf("failed to load city event stats: %w", err)
	}

	if stats.EventType, err = domain.ParseEventType(eventRaw); err != nil {
		return domain.CityEventStats{}, err
	}
	if stats.DataQuality, err = domain.ParseDataQuality(qualityRaw); err != nil {
		return domain.CityEventStats{}, err
	}
	if tensionRaw != nil {
		tension, err := domain.ParseMarketTension(*tensionRaw)
		if err != nil {
			return domain.CityEventStats{}, err
		}
		stats.MarketTension = &tension
	}
	return stats, nil
}

func (r *Repository) UpsertStats(ctx context.Context, s domain.CityEventStats) error {
	var tension *string
	if s.MarketTension != nil {
		v := string(*s.MarketTension)
		tension = &v
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO city_event_stats (city, state, event_type, price_low, price_median, price_high,
			sample_size, data_quality, demand_supply_ratio, market_tension, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (city, state, event_type) DO UPDATE SET
			price_low = EXCLUDED.price_low,
			price_median = EXCLUDED.price_median,
			price_high = EXCLUDED.price_high,
			sample_size = EXCLUDED.sample_size,
			data_quality = EXCLUDED.data_quality,
			demand_supply_ratio = EXCLUDED.demand_supply_ratio,
			market_tension = EXCLUDED.market_tension,
			computed_at = now()
	`, s.City, s.State, string(s.EventType), s.PriceLow, s.PriceMedian, s.PriceHigh,
		s.SampleSize, string(s.DataQuality), s.DemandSupplyRatio, tension)
	if err != nil {
		return fmt.Errorf("failed to upsert city event stats: %w", err)
	}
	return nil
}

var (
	_ StatsReader = (*Repository)(nil)
	_ StatsWriter = (*Repository)(nil)
)
