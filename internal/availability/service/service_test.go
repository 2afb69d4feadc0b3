package service

import (
	"context"
	"testing"
	"time"

	"lead_routing_backend/internal/availability/availabilitytest"
	"lead_routing_backend/internal/domain"
	"lead_routing_backend/platform/apperr"
	"lead_routing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var calNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func newCalendar() (*Service, *availabilitytest.Store) {
	store := availabilitytest.NewStore()
	svc := New(store, logger.Discard())
	svc.now = func() time.Time { return calNow }
	return svc, store
}

func TestSetDayAndListShowsLocks(t *testing.T) {
	svc, store := newCalendar()
	provider := uuid.New()

	require.NoError(t, svc.SetDay(context.Background(), provider, "2026-06-20", "available"))
	require.NoError(t, svc.SetDay(context.Background(), provider, "2026-06-21", "tentative"))
	ok, _ := store.Lock(context.Background(), provider, time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC), uuid.New(), 15*time.Minute, calNow)
	require.True(t, ok)

	days, err := svc.ListDays(context.Background(), provider, "2026-06-01", "2026-06-30")
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-06-20", days[0].Date)
	assert.True(t, days[0].Locked)
	assert.Equal(t, "tentative", days[1].Status)
	assert.False(t, days[1].Locked)
}

func TestSetDayRejectsBadInput(t *testing.T) {
	svc, _ := newCalendar()
	provider := uuid.New()

	err := svc.SetDay(context.Background(), provider, "2026-05-31", "available")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = svc.SetDay(context.Background(), provider, "2026-06-20", "maybe")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListDaysDefaultsAndLimits(t *testing.T) {
	svc, store := newCalendar()
	provider := uuid.New()
	store.Seed(provider, calNow.AddDate(0, 0, 10), domain.AvailabilityAvailable)
	store.Seed(provider, calNow.AddDate(0, 0, 120), domain.AvailabilityAvailable)

	days, err := svc.ListDays(context.Background(), provider, "", "")
	require.NoError(t, err)
	assert.Len(t, days, 1, "default window is 90 days")

	_, err = svc.ListDays(context.Background(), provider, "2026-01-01", "2027-06-01")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
