// Package repository persists intake leads and their scores.
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

var ErrNotFound = errors.New("lead not found")

type CreateLeadParams struct {
	Email            string
	Phone            *string
	PhoneLookupHash  *string
	ContactName      *string
	EventType        domain.EventType
	EventDate        *time.Time
	EventTime        *string
	IsLastMinute     bool
	City             string
	State            string
	BudgetMin        *float64
	BudgetMax        *float64
	BudgetMidpoint   *float64
	GuestCount       *int
	VenueName        *string
	VenueAddress     *string
	Notes            *string
	FormCompleteness float64
}

type SaveScoreParams struct {
	LeadID      uuid.UUID
	Score       int
	Components  []byte
	Quality     domain.LeadQuality
	Temperature domain.LeadTemperature
}

// LeadReader provides read-only access to leads.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

// LeadWriter creates leads and records their score.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (uuid.UUID, error)
	SaveScore(ctx context.Context, params SaveScoreParams) error
}

type LeadStore interface {
	LeadReader
	LeadWriter
}

type Repository struct {
	db db.Querier
}

func New(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Create inserts a lead in the scoring state.
func (r *Repository) Create(ctx context.Context, p CreateLeadParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		INSERT INTO leads (email, phone, phone_lookup_hash, contact_name, event_type, event_date, event_time,
			is_last_minute, city, state, budget_min, budget_max, budget_midpoint, guest_count,
			venue_name, venue_address, notes, form_completeness, routing_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, 'scoring')
		RETURNING id
	`, p.Email, p.Phone, p.PhoneLookupHash, p.ContactName, string(p.EventType), p.EventDate, p.EventTime,
		p.IsLastMinute, p.City, p.State, p.BudgetMin, p.BudgetMax, p.BudgetMidpoint, p.GuestCount,
		p.VenueName, p.VenueAddress, p.Notes, p.FormCompleteness,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return id, nil
}

// SaveScore stores the score and moves the lead from scoring to routing.
// A lead that already left scoring is reported as ErrNotFound.
func (r *Repository) SaveScore(ctx context.Context, p SaveScoreParams) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE leads
		SET lead_score = $2, scoring_components = $3, lead_quality = $4, lead_temperature = $5,
			routing_state = 'routing', updated_at = now()
		WHERE id = $1 AND routing_state = 'scoring'
	`, p.LeadID, p.Score, p.Components, string(p.Quality), string(p.Temperature))
	if err != nil {
		return fmt.Errorf("failed to save lead score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LeadColumns is the column list ScanLead expects, shared with the routing
// repository which reads the same table.
const LeadColumns = `id, email, phone, phone_lookup_hash, contact_name, event_type, event_date, event_time,
	is_last_minute, city, state, budget_min, budget_max, budget_midpoint, guest_count, venue_name,
	venue_address, notes, form_completeness, lead_score, scoring_components, lead_quality, lead_temperature,
	routing_state, routing_phase, first_response_at, converted_provider_id, converted_at, unmatched_at,
	created_at, updated_at`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := ScanLead(r.db.QueryRow(ctx, `SELECT `+LeadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// ScanLead reads one row selected with LeadColumns.
func ScanLead(row pgx.Row) (domain.Lead, error) {
	var (
		l           domain.Lead
		eventType   string
		quality     *string
		temperature *string
		state       string
		phase       *string
	)
	err := row.Scan(
		&l.ID, &l.Email, &l.Phone, &l.PhoneLookupHash, &l.ContactName, &eventType, &l.EventDate, &l.EventTime,
		&l.IsLastMinute, &l.City, &l.State, &l.BudgetMin, &l.BudgetMax, &l.BudgetMidpoint, &l.GuestCount, &l.VenueName,
		&l.VenueAddress, &l.Notes, &l.FormCompleteness, &l.LeadScore, &l.ScoringComponents, &quality, &temperature,
		&state, &phase, &l.FirstResponseAt, &l.ConvertedProviderID, &l.ConvertedAt, &l.UnmatchedAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}

	if l.EventType, err = domain.ParseEventType(eventType); err != nil {
		return domain.Lead{}, err
	}
	if l.RoutingState, err = domain.ParseRoutingState(state); err != nil {
		return domain.Lead{}, err
	}
	if phase != nil {
		p, err := domain.ParsePhase(*phase)
		if err != nil {
			return domain.Lead{}, err
		}
		l.RoutingPhase = &p
	}
	if quality != nil {
		q := domain.LeadQuality(*quality)
		l.Quality = &q
	}
	if temperature != nil {
		t := domain.LeadTemperature(*temperature)
		l.Temperature = &t
	}
	return l, nil
}

var _ LeadStore = (*Repository)(nil)
