package repository

import (
	"context"
	"errors"
	"testing"

	"lead_routing_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStatsMissingRowIsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM city_event_stats").
		WithArgs("Austin", "wedding", "").
		WillReturnError(pgx.ErrNoRows)

	_, err = New(mock).GetStats(context.Background(), "Austin", "", domain.EventWedding)
	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertStatsWritesTension(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tension := domain.TensionMedium
	mock.ExpectExec("INSERT INTO city_event_stats").
		WithArgs("Austin", "TX", "wedding", 1200.0, 1700.0, 2600.0, 42, "high", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = New(mock).UpsertStats(context.Background(), domain.CityEventStats{
		City: "Austin", State: "TX", EventType: domain.EventWedding,
		PriceLow: 1200, PriceMedian: 1700, PriceHigh: 2600,
		SampleSize: 42, DataQuality: domain.QualityHigh, MarketTension: &tension,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
