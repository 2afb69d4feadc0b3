package repository

import (
	"context"
	"testing"
	"time"

	"lead_routing_backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	repoNow   = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	eventDate = time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func assignParams() AssignParams {
	return AssignParams{
		LeadID:       uuid.New(),
		ProviderID:   uuid.New(),
		EventDate:    eventDate,
		Phase:        domain.PhaseExclusive,
		RoutingScore: 82.5,
		LockTTL:      15 * time.Minute,
		Now:          repoNow,
	}
}

func TestClaimLeadIsCompareAndSwap(t *testing.T) {
	mock := newMock(t)
	lead := uuid.New()

	mock.ExpectExec(`routing_claimed_until IS NULL OR routing_claimed_until <= \$2`).
		WithArgs(lead, repoNow, repoNow.Add(2*time.Minute)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`routing_claimed_until IS NULL OR routing_claimed_until <= \$2`).
		WithArgs(lead, repoNow, repoNow.Add(2*time.Minute)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := New(mock)
	first, err := repo.ClaimLead(context.Background(), lead, repoNow, 2*time.Minute)
	require.NoError(t, err)
	second, err := repo.ClaimLead(context.Background(), lead, repoNow, 2*time.Minute)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignAndLockCommitsAssignmentThenLock(t *testing.T) {
	mock := newMock(t)
	p := assignParams()
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO lead_assignments").
		WithArgs(p.LeadID, p.ProviderID, eventDate, "exclusive", repoNow, 82.5).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
	mock.ExpectExec("UPDATE provider_availability").
		WithArgs(p.ProviderID, eventDate, p.LeadID, repoNow.Add(15*time.Minute), repoNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	a, ok, err := New(mock).AssignAndLock(context.Background(), p)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, a.ID)
	assert.Equal(t, domain.ResponsePending, a.ResponseStatus)
	assert.Equal(t, repoNow, a.PhaseStartedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignAndLockRollsBackOnContention(t *testing.T) {
	mock := newMock(t)
	p := assignParams()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO lead_assignments").
		WithArgs(p.LeadID, p.ProviderID, eventDate, "exclusive", repoNow, 82.5).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectExec("UPDATE provider_availability").
		WithArgs(p.ProviderID, eventDate, p.LeadID, repoNow.Add(15*time.Minute), repoNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, ok, err := New(mock).AssignAndLock(context.Background(), p)
	require.NoError(t, err, "contention is not an error")
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignAndLockSkipsExistingAssignment(t *testing.T) {
	mock := newMock(t)
	p := assignParams()

	mock.ExpectBegin()
	mock.ExpectQuery("ON CONFLICT \\(lead_id, provider_id\\) DO NOTHING").
		WithArgs(p.LeadID, p.ProviderID, eventDate, "exclusive", repoNow, 82.5).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, ok, err := New(mock).AssignAndLock(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordResponseOnlyFromPending(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec("WHERE id = \\$1 AND response_status = 'pending'").
		WithArgs(id, "accepted", repoNow, 90).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := New(mock).RecordResponse(context.Background(), id, domain.ResponseAccepted, repoNow, 90)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkUnmatchedRefusesAcceptedLead(t *testing.T) {
	mock := newMock(t)
	lead := uuid.New()

	mock.ExpectExec("NOT EXISTS").
		WithArgs(lead, repoNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := New(mock).MarkUnmatched(context.Background(), lead, repoNow)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscalatePendingCountsRows(t *testing.T) {
	mock := newMock(t)
	lead := uuid.New()

	mock.ExpectExec("SET phase = 'shared'").
		WithArgs(lead).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := New(mock).EscalatePending(context.Background(), lead)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawAssignmentOnlyWhilePending(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM lead_assignments WHERE id = \\$1 AND response_status = 'pending'").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM lead_assignments").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := New(mock)
	removed, err := repo.WithdrawAssignment(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.WithdrawAssignment(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAssignmentNotFound(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery("FROM lead_assignments WHERE id = \\$1").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := New(mock).GetAssignment(context.Background(), id)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
