package notification

import (
	"context"
	"errors"
	"testing"

	"lead_routing_backend/internal/notification/outbox"
	"lead_routing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryOutbox struct {
	rec       outbox.Record
	missing   bool
	lastError *string
}

func (m *memoryOutbox) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	if m.missing || id != m.rec.ID {
		return outbox.Record{}, outbox.ErrNotFound
	}
	return m.rec, nil
}

func (m *memoryOutbox) RecordAttempt(_ context.Context, _ uuid.UUID, lastError *string) (int, error) {
	m.rec.Attempts++
	m.lastError = lastError
	return m.rec.Attempts, nil
}

func (m *memoryOutbox) MarkDelivered(context.Context, uuid.UUID) error {
	m.rec.Status = outbox.StatusDelivered
	return nil
}

func (m *memoryOutbox) MarkFailed(_ context.Context, _ uuid.UUID, lastError string) error {
	m.rec.Status = outbox.StatusFailed
	m.lastError = &lastError
	return nil
}

type stubPublisher struct {
	err   error
	calls int
}

func (p *stubPublisher) Publish(context.Context, outbox.Record) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return "1-0", nil
}

func enqueued() *memoryOutbox {
	return &memoryOutbox{rec: outbox.Record{ID: uuid.New(), Kind: outbox.KindLeadUnmatched, Status: outbox.StatusEnqueued}}
}

func TestDeliverMarksDelivered(t *testing.T) {
	store, pub := enqueued(), &stubPublisher{}
	d := NewDeliverer(store, pub, logger.Discard())

	require.NoError(t, d.Deliver(context.Background(), store.rec.ID))
	assert.Equal(t, outbox.StatusDelivered, store.rec.Status)
	assert.Equal(t, 1, store.rec.Attempts)

	require.NoError(t, d.Deliver(context.Background(), store.rec.ID))
	assert.Equal(t, 1, pub.calls, "delivered records are not published again")
}

func TestDeliverRetriesThenGivesUp(t *testing.T) {
	store, pub := enqueued(), &stubPublisher{err: errors.New("connection refused")}
	d := NewDeliverer(store, pub, logger.Discard())

	for i := 1; i < defaultMaxAttempts; i++ {
		err := d.Deliver(context.Background(), store.rec.ID)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrExhausted))
		assert.Equal(t, outbox.StatusEnqueued, store.rec.Status)
	}

	err := d.Deliver(context.Background(), store.rec.ID)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, outbox.StatusFailed, store.rec.Status)
	require.NotNil(t, store.lastError)
	assert.Equal(t, "connection refused", *store.lastError)
}

func TestDeliverMissingRecordIsNoop(t *testing.T) {
	store := enqueued()
	store.missing = true
	pub := &stubPublisher{}

	require.NoError(t, NewDeliverer(store, pub, logger.Discard()).Deliver(context.Background(), store.rec.ID))
	assert.Zero(t, pub.calls)
}
