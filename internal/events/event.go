// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

const (
	NameLeadScored          = "leads.lead.scored"
	NameAssignmentCreated   = "routing.assignment.created"
	NameAssignmentResponded = "routing.assignment.responded"
	NameLeadEscalated       = "routing.lead.escalated"
	NameLeadUnmatched       = "routing.lead.unmatched"
	NameLeadConverted       = "routing.lead.converted"
	NameProviderCooldown    = "providers.provider.cooldown_started"
)

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadScored is published once intake has persisted the score and moved the
// lead into routing.
type LeadScored struct {
	BaseEvent
	LeadID      uuid.UUID              `json:"leadId"`
	LeadScore   int                    `json:"leadScore"`
	Quality     domain.LeadQuality     `json:"quality"`
	Temperature domain.LeadTemperature `json:"temperature"`
}

func (e LeadScored) EventName() string { return NameLeadScored }

// =============================================================================
// Routing Domain Events
// =============================================================================

// AssignmentCreated is published for every provider that enters a phase.
type AssignmentCreated struct {
	BaseEvent
	AssignmentID uuid.UUID    `json:"assignmentId"`
	LeadID       uuid.UUID    `json:"leadId"`
	ProviderID   uuid.UUID    `json:"providerId"`
	Phase        domain.Phase `json:"phase"`
	EventDate    time.Time    `json:"eventDate"`
}

func (e AssignmentCreated) EventName() string { return NameAssignmentCreated }

// AssignmentResponded is published after an assignment reaches a terminal status.
type AssignmentResponded struct {
	BaseEvent
	AssignmentID        uuid.UUID             `json:"assignmentId"`
	LeadID              uuid.UUID             `json:"leadId"`
	ProviderID          uuid.UUID             `json:"providerId"`
	Status              domain.ResponseStatus `json:"status"`
	ResponseTimeSeconds int                   `json:"responseTimeSeconds"`
}

func (e AssignmentResponded) EventName() string { return NameAssignmentResponded }

// LeadEscalated is published when a lead moves from the exclusive to the shared phase.
type LeadEscalated struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	Escalated     int       `json:"escalated"`
	NewlyAssigned int       `json:"newlyAssigned"`
}

func (e LeadEscalated) EventName() string { return NameLeadEscalated }

// LeadUnmatched is published when a lead reaches the unmatched terminal state.
type LeadUnmatched struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Reason string    `json:"reason"`
}

func (e LeadUnmatched) EventName() string { return NameLeadUnmatched }

// LeadConverted is published when a booking is confirmed.
type LeadConverted struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	ProviderID uuid.UUID `json:"providerId"`
}

func (e LeadConverted) EventName() string { return NameLeadConverted }

// =============================================================================
// Provider Domain Events
// =============================================================================

// ProviderCooldownStarted is published when a provider's penalty hits the
// ceiling and they are parked out of routing.
type ProviderCooldownStarted struct {
	BaseEvent
	ProviderID    uuid.UUID `json:"providerId"`
	CooldownUntil time.Time `json:"cooldownUntil"`
}

func (e ProviderCooldownStarted) EventName() string { return NameProviderCooldown }
