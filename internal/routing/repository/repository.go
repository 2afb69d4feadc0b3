// Package repository persists lead assignments and the routing-owned columns
// of leads. Every state transition is a compare-and-swap on the current state.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	availrepo "lead_routing_backend/internal/availability/repository"
	"lead_routing_backend/internal/domain"
	leadrepo "lead_routing_backend/internal/leads/repository"
	"lead_routing_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrLeadNotFound       = errors.New("lead not found")
	ErrAssignmentNotFound = errors.New("assignment not found")

	// errSlotTaken aborts the assignment transaction when the lock is contended.
	errSlotTaken = errors.New("availability slot taken")
)

const assignmentColumns = `id, lead_id, provider_id, event_date, phase, phase_started_at, response_status,
	responded_at, response_time_seconds, routing_score_at_assignment, notified_at, created_at`

// AssignParams describes one provider entering a routing phase.
type AssignParams struct {
	LeadID       uuid.UUID
	ProviderID   uuid.UUID
	EventDate    time.Time
	Phase        domain.Phase
	RoutingScore float64
	LockTTL      time.Duration
	Now          time.Time
}

// Store is everything the routing service needs from storage.
type Store interface {
	ClaimLead(ctx context.Context, leadID uuid.UUID, now time.Time, ttl time.Duration) (bool, error)
	ReleaseClaim(ctx context.Context, leadID uuid.UUID) error
	GetLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error)
	SetPhase(ctx context.Context, leadID uuid.UUID, phase domain.Phase) error
	MarkUnmatched(ctx context.Context, leadID uuid.UUID, now time.Time) (bool, error)
	MarkResponded(ctx context.Context, leadID uuid.UUID, now time.Time, accepted bool) error
	MarkConverted(ctx context.Context, leadID, providerID uuid.UUID, now time.Time) (bool, error)

	AssignAndLock(ctx context.Context, p AssignParams) (domain.Assignment, bool, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (domain.Assignment, error)
	ListAssignments(ctx context.Context, leadID uuid.UUID) ([]domain.Assignment, error)
	ListProviderAssignments(ctx context.Context, providerID uuid.UUID, status *domain.ResponseStatus) ([]domain.Assignment, error)
	RecordResponse(ctx context.Context, id uuid.UUID, status domain.ResponseStatus, at time.Time, responseSeconds int) (bool, error)
	EscalatePending(ctx context.Context, leadID uuid.UUID) (int64, error)
	WithdrawAssignment(ctx context.Context, id uuid.UUID) (bool, error)
}

type Repository struct {
	db db.Querier
}

func New(q db.Querier) *Repository {
	return &Repository{db: q}
}

// ClaimLead takes the per-lead routing claim until now+ttl. Only one routing
// step may hold an unexpired claim.
func (r *Repository) ClaimLead(ctx context.Context, leadID uuid.UUID, now time.Time, ttl time.Duration) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE leads SET routing_claimed_until = $3
		WHERE id = $1 AND (routing_claimed_until IS NULL OR routing_claimed_until <= $2)
	`, leadID, now, now.Add(ttl))
	if err != nil {
		return false, fmt.Errorf("failed to claim lead: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) ReleaseClaim(ctx context.Context, leadID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE leads SET routing_claimed_until = NULL WHERE id = $1`, leadID)
	if err != nil {
		return fmt.Errorf("failed to release lead claim: %w", err)
	}
	return nil
}

func (r *Repository) GetLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := leadrepo.ScanLead(r.db.QueryRow(ctx, `SELECT `+leadrepo.LeadColumns+` FROM leads WHERE id = $1`, leadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrLeadNotFound
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("failed to load lead: %w", err)
	}
	return lead, nil
}

func (r *Repository) SetPhase(ctx context.Context, leadID uuid.UUID, phase domain.Phase) error {
	_, err := r.db.Exec(ctx, `
		UPDATE leads SET routing_phase = $2, updated_at = now()
		WHERE id = $1 AND routing_state = 'routing'
	`, leadID, string(phase))
	if err != nil {
		return fmt.Errorf("failed to set routing phase: %w", err)
	}
	return nil
}

// MarkUnmatched moves a lead still in routing to the unmatched terminal
// state. It refuses while any assignment of the lead is accepted, which
// covers an acceptance landing between the caller's read and this write.
func (r *Repository) MarkUnmatched(ctx context.Context, leadID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE leads SET routing_state = 'unmatched', unmatched_at = $2, updated_at = now()
		WHERE id = $1 AND routing_state = 'routing'
			AND NOT EXISTS (
				SELECT 1 FROM lead_assignments WHERE lead_id = $1 AND response_status = 'accepted'
			)
	`, leadID, now)
	if err != nil {
		return false, fmt.Errorf("failed to mark lead unmatched: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkResponded stamps the first response time and, on an acceptance, moves
// the lead from routing to responded.
func (r *Repository) MarkResponded(ctx context.Context, leadID uuid.UUID, now time.Time, accepted bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE leads SET
			first_response_at = COALESCE(first_response_at, $2),
			routing_state = CASE WHEN $3 AND routing_state = 'routing' THEN 'responded' ELSE routing_state END,
			updated_at = now()
		WHERE id = $1
	`, leadID, now, accepted)
	if err != nil {
		return fmt.Errorf("failed to mark lead responded: %w", err)
	}
	return nil
}

// MarkConverted succeeds only for a responded lead the provider accepted.
func (r *Repository) MarkConverted(ctx context.Context, leadID, providerID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE leads SET routing_state = 'converted', converted_provider_id = $2, converted_at = $3, updated_at = now()
		WHERE id = $1 AND routing_state = 'responded'
			AND EXISTS (
				SELECT 1 FROM lead_assignments
				WHERE lead_id = $1 AND provider_id = $2 AND response_status = 'accepted'
			)
	`, leadID, providerID, now)
	if err != nil {
		return false, fmt.Errorf("failed to mark lead converted: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AssignAndLock records the assignment and takes the provider's calendar lock
// in one transaction, assignment first. If the provider is already assigned
// to the lead or the slot is contended nothing is written and ok is false.
func (r *Repository) AssignAndLock(ctx context.Context, p AssignParams) (domain.Assignment, bool, error) {
	var assignment domain.Assignment
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var id uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO lead_assignments (lead_id, provider_id, event_date, phase, phase_started_at,
				routing_score_at_assignment)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (lead_id, provider_id) DO NOTHING
			RETURNING id
		`, p.LeadID, p.ProviderID, domain.DateOnly(p.EventDate), string(p.Phase), p.Now, p.RoutingScore).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return errSlotTaken
		}
		if err != nil {
			return fmt.Errorf("failed to create assignment: %w", err)
		}

		locked, err := availrepo.New(tx).Lock(ctx, p.ProviderID, p.EventDate, p.LeadID, p.LockTTL, p.Now)
		if err != nil {
			return err
		}
		if !locked {
			return errSlotTaken
		}

		assignment = domain.Assignment{
			ID:                       id,
			LeadID:                   p.LeadID,
			ProviderID:               p.ProviderID,
			EventDate:                domain.DateOnly(p.EventDate),
			Phase:                    p.Phase,
			PhaseStartedAt:           p.Now,
			ResponseStatus:           domain.ResponsePending,
			RoutingScoreAtAssignment: p.RoutingScore,
			CreatedAt:                p.Now,
		}
		return nil
	})
	if errors.Is(err, errSlotTaken) {
		return domain.Assignment{}, false, nil
	}
	if err != nil {
		return domain.Assignment{}, false, err
	}
	return assignment, true, nil
}

func (r *Repository) GetAssignment(ctx context.Context, id uuid.UUID) (domain.Assignment, error) {
	a, err := scanAssignment(r.db.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM lead_assignments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Assignment{}, ErrAssignmentNotFound
	}
	return a, err
}

func (r *Repository) ListAssignments(ctx context.Context, leadID uuid.UUID) ([]domain.Assignment, error) {
	return r.queryAssignments(ctx, `
		SELECT `+assignmentColumns+` FROM lead_assignments
		WHERE lead_id = $1
		ORDER BY created_at, routing_score_at_assignment DESC
	`, leadID)
}

// ListProviderAssignments returns the provider's assignments, newest first,
// optionally filtered by status.
func (r *Repository) ListProviderAssignments(ctx context.Context, providerID uuid.UUID, status *domain.ResponseStatus) ([]domain.Assignment, error) {
	var statusArg *string
	if status != nil {
		v := string(*status)
		statusArg = &v
	}
	return r.queryAssignments(ctx, `
		SELECT `+assignmentColumns+` FROM lead_assignments
		WHERE provider_id = $1 AND ($2::text IS NULL OR response_status = $2)
		ORDER BY created_at DESC
		LIMIT 200
	`, providerID, statusArg)
}

// RecordResponse moves a pending assignment to a terminal status. ok is false
// when the assignment was no longer pending.
func (r *Repository) RecordResponse(ctx context.Context, id uuid.UUID, status domain.ResponseStatus, at time.Time, responseSeconds int) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE lead_assignments
		SET response_status = $2, responded_at = $3, response_time_seconds = $4
		WHERE id = $1 AND response_status = 'pending'
	`, id, string(status), at, responseSeconds)
	if err != nil {
		return false, fmt.Errorf("failed to record response: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// EscalatePending widens every still-pending exclusive assignment of the
// lead to the shared phase. phase_started_at is kept so response times stay
// measured from first exposure.
func (r *Repository) EscalatePending(ctx context.Context, leadID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE lead_assignments SET phase = 'shared'
		WHERE lead_id = $1 AND response_status = 'pending' AND phase = 'exclusive'
	`, leadID)
	if err != nil {
		return 0, fmt.Errorf("failed to escalate assignments: %w", err)
	}
	return tag.RowsAffected(), nil
}

// WithdrawAssignment removes a pending assignment whose calendar hold was
// lost to another lead. Settled assignments are never removed.
func (r *Repository) WithdrawAssignment(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM lead_assignments WHERE id = $1 AND response_status = 'pending'
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to withdraw assignment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) queryAssignments(ctx context.Context, sql string, args ...any) ([]domain.Assignment, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAssignment(row pgx.Row) (domain.Assignment, error) {
	var (
		a      domain.Assignment
		phase  string
		status string
	)
	err := row.Scan(&a.ID, &a.LeadID, &a.ProviderID, &a.EventDate, &phase, &a.PhaseStartedAt, &status,
		&a.RespondedAt, &a.ResponseTimeSeconds, &a.RoutingScoreAtAssignment, &a.NotifiedAt, &a.CreatedAt)
	if err != nil {
		return domain.Assignment{}, err
	}
	if a.Phase, err = domain.ParsePhase(phase); err != nil {
		return domain.Assignment{}, err
	}
	if a.ResponseStatus, err = domain.ParseResponseStatus(status); err != nil {
		return domain.Assignment{}, err
	}
	return a, nil
}

var _ Store = (*Repository)(nil)
