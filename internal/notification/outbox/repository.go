// Package outbox stores routing notifications until the scheduler hands them
// to the external email/SMS dispatcher.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lead_routing_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusEnqueued  Status = "enqueued"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

type RecipientType string

const (
	RecipientProvider   RecipientType = "provider"
	RecipientLead       RecipientType = "lead"
	RecipientOperations RecipientType = "operations"
)

const (
	KindAssignmentOffered = "assignment.offered"
	KindProviderAccepted  = "lead.provider_accepted"
	KindLeadUnmatched     = "lead.unmatched"
	KindBookingConfirmed  = "lead.booking_confirmed"
)

var ErrNotFound = errors.New("outbox record not found")

const recordColumns = `id, kind, recipient_type, recipient_id, lead_id, assignment_id, payload, run_at, status, attempts`

type Record struct {
	ID            uuid.UUID
	Kind          string
	RecipientType RecipientType
	RecipientID   *uuid.UUID
	LeadID        uuid.UUID
	AssignmentID  *uuid.UUID
	Payload       json.RawMessage
	RunAt         time.Time
	Status        Status
	Attempts      int
}

type InsertParams struct {
	Kind          string
	RecipientType RecipientType
	RecipientID   *uuid.UUID
	LeadID        uuid.UUID
	AssignmentID  *uuid.UUID
	Payload       any
	RunAt         time.Time
}

type Repository struct {
	db db.Querier
}

func New(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Insert writes a pending record. An assignment offer also stamps the
// assignment's notified_at in the same transaction.
func (r *Repository) Insert(ctx context.Context, p InsertParams) (uuid.UUID, error) {
	if p.Kind == "" {
		return uuid.Nil, fmt.Errorf("kind is required")
	}
	if p.LeadID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("leadId is required")
	}
	if p.RunAt.IsZero() {
		p.RunAt = time.Now().UTC()
	}

	payloadBytes, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}

	var id uuid.UUID
	err = db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO routing_notifications (kind, recipient_type, recipient_id, lead_id, assignment_id, payload, run_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, p.Kind, string(p.RecipientType), p.RecipientID, p.LeadID, p.AssignmentID, payloadBytes, p.RunAt).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}

		if p.Kind == KindAssignmentOffered && p.AssignmentID != nil {
			_, err = tx.Exec(ctx, `
				UPDATE lead_assignments SET notified_at = $2
				WHERE id = $1 AND notified_at IS NULL
			`, *p.AssignmentID, p.RunAt)
			if err != nil {
				return fmt.Errorf("failed to stamp assignment notification: %w", err)
			}
		}
		return nil
	})
	return id, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM routing_notifications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// ClaimPending moves up to limit due records to enqueued and returns them.
// Concurrent dispatchers never claim the same row.
func (r *Repository) ClaimPending(ctx context.Context, limit int, now time.Time) ([]Record, error) {
	if limit < 1 {
		limit = 50
	}

	var results []Record
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			WITH cte AS (
				SELECT id
				FROM routing_notifications
				WHERE status = 'pending' AND run_at <= $2
				ORDER BY run_at ASC
				LIMIT $1
				FOR UPDATE SKIP LOCKED
			)
			UPDATE routing_notifications o
			SET status = 'enqueued', updated_at = now()
			FROM cte
			WHERE o.id = cte.id
			RETURNING o.id, o.kind, o.recipient_type, o.recipient_id, o.lead_id, o.assignment_id,
				o.payload, o.run_at, o.status, o.attempts
		`, limit, now)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			results = append(results, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim notifications: %w", err)
	}
	return results, nil
}

// MarkPending hands a record back to the dispatcher.
func (r *Repository) MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE routing_notifications
		SET status = 'pending', last_error = $2, updated_at = now()
		WHERE id = $1
	`, id, lastError)
	return err
}

// RecordAttempt counts one delivery try and returns the new total.
func (r *Repository) RecordAttempt(ctx context.Context, id uuid.UUID, lastError *string) (int, error) {
	var attempts int
	err := r.db.QueryRow(ctx, `
		UPDATE routing_notifications
		SET attempts = attempts + 1, last_error = $2, updated_at = now()
		WHERE id = $1
		RETURNING attempts
	`, id, lastError).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return attempts, err
}

func (r *Repository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE routing_notifications
		SET status = 'delivered', last_error = NULL, updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE routing_notifications
		SET status = 'failed', last_error = $2, updated_at = now()
		WHERE id = $1
	`, id, lastError)
	return err
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec       Record
		recipient string
		status    string
	)
	err := row.Scan(&rec.ID, &rec.Kind, &recipient, &rec.RecipientID, &rec.LeadID, &rec.AssignmentID,
		&rec.Payload, &rec.RunAt, &status, &rec.Attempts)
	if err != nil {
		return Record{}, err
	}
	rec.RecipientType = RecipientType(recipient)
	rec.Status = Status(status)
	return rec, nil
}
