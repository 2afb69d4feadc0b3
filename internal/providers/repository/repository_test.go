package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"lead_routing_backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestSaveScoreUnknownProvider(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE provider_routing_metrics").
		WithArgs(id, 72.5, []byte(`{}`), at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := New(mock).SaveScore(context.Background(), id, 72.5, []byte(`{}`), at)
	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveIDs(t *testing.T) {
	mock := newMock(t)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT provider_id FROM provider_routing_metrics").
		WillReturnRows(pgxmock.NewRows([]string{"provider_id"}).AddRow(a).AddRow(b))

	ids, err := New(mock).ListActiveIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMetricsMissingRowRollsBack(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(id).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	called := false
	_, err := New(mock).UpdateMetrics(context.Background(), id, func(m domain.ProviderMetrics) (domain.ProviderMetrics, error) {
		called = true
		return m, nil
	})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetSuspended(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec("SET is_suspended").
		WithArgs(id, true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, New(mock).SetSuspended(context.Background(), id, true))
	require.NoError(t, mock.ExpectationsWereMet())
}
