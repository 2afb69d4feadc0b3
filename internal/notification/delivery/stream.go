// Package delivery hands outbox records to the email/SMS dispatcher through
// a Redis stream.
package delivery

import (
	"context"
	"fmt"

	"lead_routing_backend/internal/notification/outbox"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultStream = "routing:notifications"
	// Approximate cap on the stream; the dispatcher trims what it has acked.
	defaultMaxLen = 100_000
)

// StreamPublisher appends one stream entry per delivered record.
type StreamPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamPublisher{client: client, stream: stream}
}

// Publish adds the record to the stream and returns the entry id. The outbox
// id travels with the entry so the dispatcher can drop duplicates.
func (p *StreamPublisher) Publish(ctx context.Context, rec outbox.Record) (string, error) {
	values := map[string]any{
		"outboxId":      rec.ID.String(),
		"kind":          rec.Kind,
		"recipientType": string(rec.RecipientType),
		"leadId":        rec.LeadID.String(),
		"payload":       string(rec.Payload),
	}
	if rec.RecipientID != nil {
		values["recipientId"] = rec.RecipientID.String()
	}
	if rec.AssignmentID != nil {
		values["assignmentId"] = rec.AssignmentID.String()
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: defaultMaxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return id, nil
}
