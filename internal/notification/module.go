// Package notification turns routing events into outbox records and delivers
// them to the external dispatcher. It owns no HTTP routes.
package notification

import (
	"context"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/internal/events"
	"lead_routing_backend/internal/notification/outbox"
	"lead_routing_backend/platform/db"
	"lead_routing_backend/platform/logger"

	"github.com/google/uuid"
)

// OutboxWriter persists notifications.
type OutboxWriter interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
}

type Module struct {
	repo   *outbox.Repository
	writer OutboxWriter
	log    *logger.Logger
}

func New(pool db.Querier, log *logger.Logger) *Module {
	repo := outbox.New(pool)
	return &Module{repo: repo, writer: repo, log: log}
}

// Outbox exposes the repository to the scheduler's dispatcher and worker.
func (m *Module) Outbox() *outbox.Repository {
	return m.repo
}

// Subscribe registers the outbox writers on the bus.
func (m *Module) Subscribe(bus events.Bus) {
	bus.Subscribe(events.NameAssignmentCreated, events.HandlerFunc(m.onAssignmentCreated))
	bus.Subscribe(events.NameAssignmentResponded, events.HandlerFunc(m.onAssignmentResponded))
	bus.Subscribe(events.NameLeadUnmatched, events.HandlerFunc(m.onLeadUnmatched))
	bus.Subscribe(events.NameLeadConverted, events.HandlerFunc(m.onLeadConverted))
}

func (m *Module) onAssignmentCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AssignmentCreated)
	if !ok {
		return nil
	}
	provider, assignment := e.ProviderID, e.AssignmentID
	return m.write(ctx, outbox.InsertParams{
		Kind:          outbox.KindAssignmentOffered,
		RecipientType: outbox.RecipientProvider,
		RecipientID:   &provider,
		LeadID:        e.LeadID,
		AssignmentID:  &assignment,
		Payload: map[string]any{
			"phase":     e.Phase,
			"eventDate": e.EventDate.Format(domain.DateLayout),
		},
	})
}

// Only acceptances reach the customer; declines and ignores stay internal.
func (m *Module) onAssignmentResponded(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AssignmentResponded)
	if !ok || e.Status != domain.ResponseAccepted {
		return nil
	}
	lead, assignment := e.LeadID, e.AssignmentID
	return m.write(ctx, outbox.InsertParams{
		Kind:          outbox.KindProviderAccepted,
		RecipientType: outbox.RecipientLead,
		RecipientID:   &lead,
		LeadID:        e.LeadID,
		AssignmentID:  &assignment,
		Payload: map[string]any{
			"providerId":          e.ProviderID,
			"responseTimeSeconds": e.ResponseTimeSeconds,
		},
	})
}

func (m *Module) onLeadUnmatched(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadUnmatched)
	if !ok {
		return nil
	}
	return m.write(ctx, outbox.InsertParams{
		Kind:          outbox.KindLeadUnmatched,
		RecipientType: outbox.RecipientOperations,
		LeadID:        e.LeadID,
		Payload:       map[string]any{"reason": e.Reason},
	})
}

func (m *Module) onLeadConverted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadConverted)
	if !ok {
		return nil
	}
	provider := e.ProviderID
	return m.write(ctx, outbox.InsertParams{
		Kind:          outbox.KindBookingConfirmed,
		RecipientType: outbox.RecipientProvider,
		RecipientID:   &provider,
		LeadID:        e.LeadID,
		Payload:       map[string]any{"convertedAt": e.OccurredAt()},
	})
}

func (m *Module) write(ctx context.Context, p outbox.InsertParams) error {
	id, err := m.writer.Insert(ctx, p)
	if err != nil {
		m.log.Error("failed to write notification", "kind", p.Kind, "leadId", p.LeadID, "error", err)
		return err
	}
	m.log.Debug("notification queued", "id", id, "kind", p.Kind, "leadId", p.LeadID)
	return nil
}
