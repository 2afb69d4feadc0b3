// Package events is the in-process bus between the routing pipeline and its
// side effects: the notification outbox and audit logging subscribe here.
package events

import (
	"context"
	"time"
)

// Event names are dotted and scoped by module, e.g. "routing.lead.unmatched".
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by every concrete event.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps the event in UTC.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus delivers by EventName. Publish is fire-and-forget; PublishSync runs
// subscribers in registration order and joins their errors.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
