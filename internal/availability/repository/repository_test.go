package repository

import (
	"context"
	"testing"
	"time"

	"lead_routing_backend/internal/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	lockNow   = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	eventDate = time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestLockIsOneConditionalUpdate(t *testing.T) {
	mock := newMock(t)
	provider, lead := uuid.New(), uuid.New()

	mock.ExpectExec(`UPDATE provider_availability\s+SET locked_until = \$4, locked_by_lead_id = \$3`).
		WithArgs(provider, eventDate, lead, lockNow.Add(15*time.Minute), lockNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE provider_availability\s+SET locked_until = \$4`).
		WithArgs(provider, eventDate, lead, lockNow.Add(15*time.Minute), lockNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := New(mock)
	first, err := repo.Lock(context.Background(), provider, eventDate.Add(18*time.Hour), lead, 15*time.Minute, lockNow)
	require.NoError(t, err)
	second, err := repo.Lock(context.Background(), provider, eventDate, lead, 15*time.Minute, lockNow)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second, "no matching row is contention, not an error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRenewKeepsOwnHoldOrTakesFreeSlot(t *testing.T) {
	mock := newMock(t)
	provider, lead := uuid.New(), uuid.New()

	mock.ExpectExec(`(?s)UPDATE provider_availability\s+SET locked_until = \$4, locked_by_lead_id = \$3.*OR locked_by_lead_id = \$3\)`).
		WithArgs(provider, eventDate, lead, lockNow.Add(30*time.Minute), lockNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`OR locked_by_lead_id = \$3\)`).
		WithArgs(provider, eventDate, lead, lockNow.Add(30*time.Minute), lockNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := New(mock)
	renewed, err := repo.Renew(context.Background(), provider, eventDate, lead, 30*time.Minute, lockNow)
	require.NoError(t, err)
	assert.True(t, renewed)

	renewed, err = repo.Renew(context.Background(), provider, eventDate, lead, 30*time.Minute, lockNow)
	require.NoError(t, err)
	assert.False(t, renewed, "a slot held by another lead is a lost hold")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheck(t *testing.T) {
	mock := newMock(t)
	provider := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(provider, eventDate, lockNow).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	open, err := New(mock).Check(context.Background(), provider, eventDate, lockNow)
	require.NoError(t, err)
	assert.True(t, open)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckBatchDefaultsMissingToUnavailable(t *testing.T) {
	mock := newMock(t)
	open, missing := uuid.New(), uuid.New()
	ids := []uuid.UUID{open, missing}

	mock.ExpectQuery("provider_id = ANY").
		WithArgs(ids, eventDate, lockNow).
		WillReturnRows(pgxmock.NewRows([]string{"provider_id"}).AddRow(open))

	got, err := New(mock).CheckBatch(context.Background(), ids, eventDate, lockNow)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]bool{open: true, missing: false}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckBatchEmptySkipsQuery(t *testing.T) {
	mock := newMock(t)
	got, err := New(mock).CheckBatch(context.Background(), nil, eventDate, lockNow)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseIsUnconditional(t *testing.T) {
	mock := newMock(t)
	provider := uuid.New()

	for i := 0; i < 2; i++ {
		mock.ExpectExec(`SET locked_until = NULL, locked_by_lead_id = NULL, updated_at = now\(\)\s+WHERE provider_id = \$1 AND date = \$2\s*$`).
			WithArgs(provider, eventDate).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	}

	repo := New(mock)
	require.NoError(t, repo.Release(context.Background(), provider, eventDate))
	require.NoError(t, repo.Release(context.Background(), provider, eventDate))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseHeldIsGuardedByLead(t *testing.T) {
	mock := newMock(t)
	provider, lead := uuid.New(), uuid.New()

	mock.ExpectExec(`WHERE provider_id = \$1 AND date = \$2 AND locked_by_lead_id = \$3`).
		WithArgs(provider, eventDate, lead).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	released, err := New(mock).ReleaseHeld(context.Background(), provider, eventDate, lead)
	require.NoError(t, err)
	assert.False(t, released)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatusUpserts(t *testing.T) {
	mock := newMock(t)
	provider := uuid.New()

	mock.ExpectExec("ON CONFLICT \\(provider_id, date\\)").
		WithArgs(provider, eventDate, "tentative").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, New(mock).SetStatus(context.Background(), provider, eventDate, domain.AvailabilityTentative))
	require.NoError(t, mock.ExpectationsWereMet())
}
