// Package repository persists provider profiles and their routing metrics.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("provider not found")

const profileColumns = `p.id, p.name, p.email, p.city, p.state, p.service_areas, p.price_min, p.price_max, p.created_at`

const metricsColumns = `m.provider_id, m.pricing_tier, m.avg_response_seconds, m.conversion_rate, m.reliability_score,
	m.recent_penalty, m.penalty_applied_at, m.leads_received, m.leads_accepted, m.leads_declined, m.leads_ignored,
	m.leads_converted, m.acceptance_rate, m.decline_rate, m.ignore_rate, m.routing_score, m.routing_score_components,
	m.score_updated_at, m.is_active, m.is_suspended, m.cooldown_until`

// CandidateReader is what eligibility needs.
type CandidateReader interface {
	ListCandidates(ctx context.Context, minReliability float64, now time.Time) ([]domain.Candidate, error)
}

// MetricsUpdater serializes read-modify-write cycles on one provider's metrics.
type MetricsUpdater interface {
	UpdateMetrics(ctx context.Context, providerID uuid.UUID, fn func(domain.ProviderMetrics) (domain.ProviderMetrics, error)) (domain.ProviderMetrics, error)
}

// StandingStore is what the standing calculator service needs.
type StandingStore interface {
	GetCandidate(ctx context.Context, providerID uuid.UUID) (domain.Candidate, error)
	ReferenceMedian(ctx context.Context, city, state string) (*float64, error)
	SaveScore(ctx context.Context, providerID uuid.UUID, score float64, components []byte, at time.Time) error
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
	SetSuspended(ctx context.Context, providerID uuid.UUID, suspended bool) error
}

type Repository struct {
	db db.Querier
}

func New(q db.Querier) *Repository {
	return &Repository{db: q}
}

// ListCandidates returns active, unsuspended providers at or above
// minReliability that are not cooling down at now, best routing score first.
func (r *Repository) ListCandidates(ctx context.Context, minReliability float64, now time.Time) ([]domain.Candidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+profileColumns+`, `+metricsColumns+`
		FROM providers p
		JOIN provider_routing_metrics m ON m.provider_id = p.id
		WHERE m.is_active AND NOT m.is_suspended
			AND m.reliability_score >= $1
			AND (m.cooldown_until IS NULL OR m.cooldown_until <= $2)
		ORDER BY m.routing_score DESC, p.created_at ASC
	`, minReliability, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list routing candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) GetCandidate(ctx context.Context, providerID uuid.UUID) (domain.Candidate, error) {
	c, err := scanCandidate(r.db.QueryRow(ctx, `
		SELECT `+profileColumns+`, `+metricsColumns+`
		FROM providers p
		JOIN provider_routing_metrics m ON m.provider_id = p.id
		WHERE p.id = $1
	`, providerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Candidate{}, ErrNotFound
	}
	return c, err
}

// UpdateMetrics locks the provider's metrics row, applies fn and writes the
// result back in the same transaction.
func (r *Repository) UpdateMetrics(ctx context.Context, providerID uuid.UUID, fn func(domain.ProviderMetrics) (domain.ProviderMetrics, error)) (domain.ProviderMetrics, error) {
	var updated domain.ProviderMetrics
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		current, err := scanMetrics(tx.QueryRow(ctx, `
			SELECT `+metricsColumns+`
			FROM provider_routing_metrics m
			WHERE m.provider_id = $1
			FOR UPDATE
		`, providerID))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if err := saveMetrics(ctx, tx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	return updated, err
}

func saveMetrics(ctx context.Context, q db.Querier, m domain.ProviderMetrics) error {
	_, err := q.Exec(ctx, `
		UPDATE provider_routing_metrics SET
			avg_response_seconds = $2,
			conversion_rate = $3,
			reliability_score = $4,
			recent_penalty = $5,
			penalty_applied_at = $6,
			leads_received = $7,
			leads_accepted = $8,
			leads_declined = $9,
			leads_ignored = $10,
			leads_converted = $11,
			acceptance_rate = $12,
			decline_rate = $13,
			ignore_rate = $14,
			cooldown_until = $15,
			updated_at = now()
		WHERE provider_id = $1
	`, m.ProviderID, m.AvgResponseSeconds, m.ConversionRate, m.ReliabilityScore, m.RecentPenalty, m.PenaltyAppliedAt,
		m.LeadsReceived, m.LeadsAccepted, m.LeadsDeclined, m.LeadsIgnored, m.LeadsConverted,
		m.AcceptanceRate, m.DeclineRate, m.IgnoreRate, m.CooldownUntil)
	if err != nil {
		return fmt.Errorf("failed to save provider metrics: %w", err)
	}
	return nil
}

func (r *Repository) SaveScore(ctx context.Context, providerID uuid.UUID, score float64, components []byte, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE provider_routing_metrics
		SET routing_score = $2, routing_score_components = $3, score_updated_at = $4, updated_at = now()
		WHERE provider_id = $1
	`, providerID, score, components, at)
	if err != nil {
		return fmt.Errorf("failed to save routing score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveIDs returns every provider the periodic rescore should visit.
func (r *Repository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT provider_id FROM provider_routing_metrics
		WHERE is_active AND NOT is_suspended
		ORDER BY provider_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active providers: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReferenceMedian is the sample-weighted median across event types for the
// provider's home market, counting only rows with at least 10 samples.
func (r *Repository) ReferenceMedian(ctx context.Context, city, state string) (*float64, error) {
	var median *float64
	err := r.db.QueryRow(ctx, `
		SELECT SUM(price_median * sample_size) / NULLIF(SUM(sample_size), 0)
		FROM city_event_stats
		WHERE lower(city) = lower($1) AND lower(state) = lower($2) AND sample_size >= 10
	`, city, state).Scan(&median)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference median: %w", err)
	}
	return median, nil
}

func (r *Repository) SetSuspended(ctx context.Context, providerID uuid.UUID, suspended bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE provider_routing_metrics SET is_suspended = $2, updated_at = now()
		WHERE provider_id = $1
	`, providerID, suspended)
	if err != nil {
		return fmt.Errorf("failed to update suspension: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCandidate(row pgx.Row) (domain.Candidate, error) {
	var (
		c    domain.Candidate
		tier string
	)
	dest := append(profileDest(&c.Profile), metricsDest(&c.Metrics, &tier)...)
	if err := row.Scan(dest...); err != nil {
		return domain.Candidate{}, err
	}
	var err error
	if c.Metrics.PricingTier, err = domain.ParsePricingTier(tier); err != nil {
		return domain.Candidate{}, err
	}
	return c, nil
}

func scanMetrics(row pgx.Row) (domain.ProviderMetrics, error) {
	var (
		m    domain.ProviderMetrics
		tier string
	)
	if err := row.Scan(metricsDest(&m, &tier)...); err != nil {
		return domain.ProviderMetrics{}, err
	}
	var err error
	if m.PricingTier, err = domain.ParsePricingTier(tier); err != nil {
		return domain.ProviderMetrics{}, err
	}
	return m, nil
}

func profileDest(p *domain.ProviderProfile) []any {
	return []any{&p.ID, &p.Name, &p.Email, &p.City, &p.State, &p.ServiceAreas, &p.PriceMin, &p.PriceMax, &p.CreatedAt}
}

func metricsDest(m *domain.ProviderMetrics, tier *string) []any {
	return []any{
		&m.ProviderID, tier, &m.AvgResponseSeconds, &m.ConversionRate, &m.ReliabilityScore,
		&m.RecentPenalty, &m.PenaltyAppliedAt, &m.LeadsReceived, &m.LeadsAccepted, &m.LeadsDeclined, &m.LeadsIgnored,
		&m.LeadsConverted, &m.AcceptanceRate, &m.DeclineRate, &m.IgnoreRate, &m.RoutingScore, &m.ScoreComponents,
		&m.ScoreUpdatedAt, &m.IsActive, &m.IsSuspended, &m.CooldownUntil,
	}
}

var (
	_ CandidateReader = (*Repository)(nil)
	_ MetricsUpdater  = (*Repository)(nil)
	_ StandingStore   = (*Repository)(nil)
)
