package notification

import (
	"context"
	"errors"
	"fmt"

	"lead_routing_backend/internal/notification/outbox"
	"lead_routing_backend/platform/logger"

	"github.com/google/uuid"
)

const defaultMaxAttempts = 5

// ErrExhausted marks a record that will not be retried again.
var ErrExhausted = errors.New("notification delivery attempts exhausted")

// DeliveryStore is the outbox state the deliverer moves.
type DeliveryStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	RecordAttempt(ctx context.Context, id uuid.UUID, lastError *string) (int, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// Publisher hands a record to the external dispatcher.
type Publisher interface {
	Publish(ctx context.Context, rec outbox.Record) (string, error)
}

type Deliverer struct {
	store       DeliveryStore
	publisher   Publisher
	maxAttempts int
	log         *logger.Logger
}

func NewDeliverer(store DeliveryStore, publisher Publisher, log *logger.Logger) *Deliverer {
	return &Deliverer{store: store, publisher: publisher, maxAttempts: defaultMaxAttempts, log: log}
}

// Deliver publishes one outbox record. A failed publish returns the error for
// the caller to retry until the attempt budget is spent, after which the
// record is marked failed and ErrExhausted is returned.
func (d *Deliverer) Deliver(ctx context.Context, id uuid.UUID) error {
	rec, err := d.store.GetByID(ctx, id)
	if errors.Is(err, outbox.ErrNotFound) {
		d.log.Warn("notification vanished before delivery", "id", id)
		return nil
	}
	if err != nil {
		return err
	}
	if rec.Status == outbox.StatusDelivered || rec.Status == outbox.StatusFailed {
		return nil
	}

	entryID, pubErr := d.publisher.Publish(ctx, rec)
	if pubErr != nil {
		msg := pubErr.Error()
		attempts, err := d.store.RecordAttempt(ctx, id, &msg)
		if err != nil {
			return errors.Join(pubErr, err)
		}
		if attempts < d.maxAttempts {
			return pubErr
		}
		if err := d.store.MarkFailed(ctx, id, msg); err != nil {
			return errors.Join(pubErr, err)
		}
		d.log.Error("notification delivery failed permanently", "id", id, "kind", rec.Kind, "attempts", attempts)
		return fmt.Errorf("%w: %v", ErrExhausted, pubErr)
	}

	if _, err := d.store.RecordAttempt(ctx, id, nil); err != nil {
		return err
	}
	if err := d.store.MarkDelivered(ctx, id); err != nil {
		return err
	}
	d.log.Debug("notification delivered", "id", id, "kind", rec.Kind, "entry", entryID)
	return nil
}
