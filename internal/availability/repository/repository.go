// Package repository implements the availability lock manager on the
// provider_availability table. Every mutation is a single conditional
// statement; no read-then-write happens in Go.
package repository

import (
	"context"
	"fmt"
	"time"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/platform/db"

	"github.com/google/uuid"
)

// bookable mirrors domain.AvailabilityStatus.Bookable.
const bookable = `status IN ('available', 'tentative')`

// LockManager is the calendar hold contract used by routing.
type LockManager interface {
	Check(ctx context.Context, providerID uuid.UUID, date time.Time, now time.Time) (bool, error)
	CheckBatch(ctx context.Context, providerIDs []uuid.UUID, date time.Time, now time.Time) (map[uuid.UUID]bool, error)
	Lock(ctx context.Context, providerID uuid.UUID, date time.Time, leadID uuid.UUID, ttl time.Duration, now time.Time) (bool, error)
	Renew(ctx context.Context, providerID uuid.UUID, date time.Time, leadID uuid.UUID, ttl time.Duration, now time.Time) (bool, error)
	Release(ctx context.Context, providerID uuid.UUID, date time.Time) error
	ReleaseHeld(ctx context.Context, providerID uuid.UUID, date time.Time, leadID uuid.UUID) (bool, error)
	ReleaseForLead(ctx context.Context, leadID uuid.UUID) (int64, error)
}

// CalendarStore is the provider-facing calendar editing contract.
type CalendarStore interface {
	SetStatus(ctx context.Context, providerID uuid.UUID, date time.Time, status domain.AvailabilityStatus) error
	List(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]domain.Availability, error)
}

type Repository struct {
	db db.Querier
}

func New(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Check is true iff the record exists, is bookable and carries no unexpired lock.
func (r *Repository) Check(ctx context.Context, providerID uuid.UUID, date time.Time, now time.Time) (bool, error) {
	var open bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM provider_availability
			WHERE provider_id = $1 AND date = $2 AND `+bookable+`
				AND (locked_until IS NULL OR locked_until <= $3)
		)
	`, providerID, domain.DateOnly(date), now).Scan(&open)
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return open, nil
}

// CheckBatch checks many providers against one date in one query. Providers
// without a record are reported unavailable.
func (r *Repository) CheckBatch(ctx context.Context, providerIDs []uuid.UUID, date time.Time, now time.Time) (map[uuid.UUID]bool, error) {
	result := make(map[uuid.UUID]bool, len(providerIDs))
	for _, id := range providerIDs {
		result[id] = false
	}
	if len(providerIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT provider_id FROM provider_availability
		WHERE provider_id = ANY($1) AND date = $2 AND `+bookable+`
			AND (locked_until IS NULL OR locked_until <= $3)
	`, providerIDs, domain.DateOnly(date), now)
	if err != nil {
		return nil, fmt.Errorf("failed to batch check availability: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = true
	}
	return result, rows.Err()
}

// Lock takes the slot for leadID until now+ttl. A false result is contention:
// the slot is missing, not bookable, or held by an unexpired lock.
func (r *Repository) Lock(ctx context.Context, providerID uuid.UUID, date time.Time, leadID uuid.UUID, ttl time.Duration, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE provider_availability
		SET locked_until = $4, locked_by_lead_id = $3, updated_at = now()
		WHERE provider_id = $1 AND date = $2 AND `+bookable+`
			AND (locked_until IS NULL OR locked_until <= $5)
	`, providerID, domain.DateOnly(date), leadID, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("failed to lock availability: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Renew extends leadID's hold on the slot to now+ttl. It also succeeds when
// the slot is free or the lock expired, but never takes over an unexpired
// lock of another lead. False means the hold is lost.
func (r *Repository) Renew(ctx context.Context, providerID uuid.UUID, date time.Time, leadID uuid.UUID, ttl time.Duration, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE provider_availability
		SET locked_until = $4, locked_by_lead_id = $3, updated_at = now()
		WHERE provider_id = $1 AND date = $2 AND `+bookable+`
			AND (locked_until IS NULL OR locked_until <= $5 OR locked_by_lead_id = $3)
	`, providerID, domain.DateOnly(date), leadID, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("failed to renew availability lock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release clears any lock on the slot. Releasing a free slot is a no-op.
func (r *Repository) Release(ctx context.Context, providerID uuid.UUID, date time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE provider_availability
		SET locked_until = NULL, locked_by_lead_id = NULL, updated_at = now()
		WHERE provider_id = $1 AND date = $2
	`, providerID, domain.DateOnly(date))
	if err != nil {
		return fmt.Errorf("failed to release availability: %w", err)
	}
	return nil
}

// ReleaseHeld clears the lock only while leadID still holds it, so a hold
// that expired and was retaken by another lead survives.
func (r *Repository) ReleaseHeld(ctx context.Context, providerID uuid.UUID, date time.Time, leadID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE provider_availability
		SET locked_until = NULL, locked_by_lead_id = NULL, updated_at = now()
		WHERE provider_id = $1 AND date = $2 AND locked_by_lead_id = $3
	`, providerID, domain.DateOnly(date), leadID)
	if err != nil {
		return false, fmt.Errorf("failed to release availability: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseForLead clears every lock still held on behalf of leadID.
func (r *Repository) ReleaseForLead(ctx context.Context, leadID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE provider_availability
		SET locked_until = NULL, locked_by_lead_id = NULL, updated_at = now()
		WHERE locked_by_lead_id = $1
	`, leadID)
	if err != nil {
		return 0, fmt.Errorf("failed to release lead locks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetStatus creates or updates the provider's calendar day. Existing locks
// are left alone; an unbookable status already hides the slot from checks.
func (r *Repository) SetStatus(ctx context.Context, providerID uuid.UUID, date time.Time, status domain.AvailabilityStatus) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO provider_availability (provider_id, date, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider_id, date) DO UPDATE SET status = EXCLUDED.status, updated_at = now()
	`, providerID, domain.DateOnly(date), string(status))
	if err != nil {
		return fmt.Errorf("failed to set availability: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]domain.Availability, error) {
	rows, err := r.db.Query(ctx, `
		SELECT provider_id, date, status, locked_until, locked_by_lead_id
		FROM provider_availability
		WHERE provider_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`, providerID, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}
	defer rows.Close()

	var out []domain.Availability
	for rows.Next() {
		var (
			a      domain.Availability
			status string
		)
		if err := rows.Scan(&a.ProviderID, &a.Date, &status, &a.LockedUntil, &a.LockedByLeadID); err != nil {
			return nil, err
		}
		if a.Status, err = domain.ParseAvailabilityStatus(status); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var (
	_ LockManager   = (*Repository)(nil)
	_ CalendarStore = (*Repository)(nil)
)
