package delivery

import (
	"context"

	"lead_routing_backend/internal/notification/outbox"
)

type publisher interface {
	Publish(ctx context.Context, rec outbox.Record) (string, error)
}

// Router picks a publisher by recipient type, falling back to the default
// for types without an override.
type Router struct {
	fallback    publisher
	byRecipient map[outbox.RecipientType]publisher
}

func NewRouter(fallback publisher) *Router {
	return &Router{fallback: fallback, byRecipient: map[outbox.RecipientType]publisher{}}
}

// Route sends records for recipient through p. A nil p keeps the fallback.
func (r *Router) Route(recipient outbox.RecipientType, p publisher) *Router {
	if p != nil {
		r.byRecipient[recipient] = p
	}
	return r
}

func (r *Router) Publish(ctx context.Context, rec outbox.Record) (string, error) {
	if p, ok := r.byRecipient[rec.RecipientType]; ok {
		return p.Publish(ctx, rec)
	}
	return r.fallback.Publish(ctx, rec)
}
