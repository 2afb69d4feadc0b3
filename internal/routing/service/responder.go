package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/internal/events"
	"lead_routing_backend/internal/providers/reputation"
	"lead_routing_backend/internal/routing/repository"
	"lead_routing_backend/internal/routing/transport"
	"lead_routing_backend/platform/apperr"

	"github.com/google/uuid"
)

// RespondToLead settles a pending assignment with the provider's action.
// When actor is set the assignment must belong to that provider. Responding
// to an assignment that is no longer pending is a precondition failure. An
// acceptance first renews the provider's hold for AcceptedHold; if the date
// went to another lead the assignment is withdrawn and the accept fails.
func (s *Service) RespondToLead(ctx context.Context, assignmentID uuid.UUID, action string, actor *uuid.UUID) (transport.RespondResponse, error) {
	act, err := domain.ParseResponseAction(action)
	if err != nil {
		return transport.RespondResponse{}, apperr.Validation(err.Error())
	}

	a, err := s.store.GetAssignment(ctx, assignmentID)
	if errors.Is(err, repository.ErrAssignmentNotFound) {
		return transport.RespondResponse{}, apperr.NotFound("assignment not found")
	}
	if err != nil {
		return transport.RespondResponse{}, err
	}
	if actor != nil && a.ProviderID != *actor {
		return transport.RespondResponse{}, apperr.Forbidden("assignment belongs to another provider")
	}
	if a.ResponseStatus.IsTerminal() {
		return transport.RespondResponse{}, apperr.Precondition(fmt.Sprintf("assignment is already %s", a.ResponseStatus))
	}

	now := s.now()
	if act == domain.ActionAccepted {
		held, err := s.keepHold(ctx, a, s.policy.AcceptedHold, now)
		if err != nil {
			return transport.RespondResponse{}, err
		}
		if !held {
			s.afterRejection(ctx, a.LeadID, now)
			return transport.RespondResponse{}, apperr.Precondition("event date is no longer held for this lead")
		}
	}

	settled, ok, err := s.settle(ctx, a, act, now)
	if err != nil {
		return transport.RespondResponse{}, err
	}
	if !ok {
		if act == domain.ActionAccepted {
			s.releaseUnlessAccepted(ctx, a)
		}
		return transport.RespondResponse{}, apperr.Precondition("assignment is no longer pending")
	}
	a = settled

	resp := transport.RespondResponse{Assignment: toResponse(a)}
	if act != domain.ActionIgnored {
		if err := s.store.MarkResponded(ctx, a.LeadID, now, act == domain.ActionAccepted); err != nil {
			return resp, err
		}
	}

	if act == domain.ActionAccepted {
		if resp.ReleasedLocks, err = s.releaseSiblings(ctx, a); err != nil {
			s.log.Error("failed to release sibling holds", "leadId", a.LeadID, "error", err)
		}
	} else {
		s.afterRejection(ctx, a.LeadID, now)
	}

	lead, err := s.loadLead(ctx, a.LeadID)
	if err != nil {
		return resp, err
	}
	resp.LeadState = string(lead.RoutingState)
	return resp, nil
}

// MarkLeadConverted records a confirmed booking. The lead must be responded
// and the provider must hold an accepted assignment for it.
func (s *Service) MarkLeadConverted(ctx context.Context, leadID, providerID uuid.UUID) error {
	lead, err := s.loadLead(ctx, leadID)
	if err != nil {
		return err
	}
	switch lead.RoutingState {
	case domain.StateResponded:
	case domain.StateConverted:
		return apperr.Precondition("lead is already converted")
	default:
		return apperr.Precondition(fmt.Sprintf("lead is %s, no provider has accepted it", lead.RoutingState))
	}

	now := s.now()
	ok, err := s.store.MarkConverted(ctx, leadID, providerID, now)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Precondition("provider has not accepted this lead")
	}

	if _, err := s.reputation.RecordConversion(ctx, providerID); err != nil {
		s.log.Error("failed to record conversion", "leadId", leadID, "providerId", providerID, "error", err)
	}
	if lead.EventDate != nil {
		if err := s.locks.SetStatus(ctx, providerID, *lead.EventDate, domain.AvailabilityUnavailable); err != nil {
			s.log.Error("failed to block booked date", "providerId", providerID, "error", err)
		}
		if _, err := s.locks.ReleaseHeld(ctx, providerID, *lead.EventDate, leadID); err != nil {
			s.log.Error("failed to release booked hold", "providerId", providerID, "error", err)
		}
	}

	s.log.Info("lead converted", "leadId", leadID, "providerId", providerID)
	s.bus.Publish(ctx, events.LeadConverted{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     leadID,
		ProviderID: providerID,
	})
	return nil
}

// settle moves one pending assignment to the action's terminal status. ok is
// false when another writer settled it first. Reputation failures after the
// status write are logged; the status write is what counts.
func (s *Service) settle(ctx context.Context, a domain.Assignment, action domain.ResponseAction, now time.Time) (domain.Assignment, bool, error) {
	elapsed := max(now.Sub(a.PhaseStartedAt), 0)
	seconds := int(elapsed / time.Second)

	ok, err := s.store.RecordResponse(ctx, a.ID, action.Status(), now, seconds)
	if err != nil || !ok {
		return a, ok, err
	}
	a.ResponseStatus = action.Status()
	a.RespondedAt = &now
	a.ResponseTimeSeconds = &seconds

	if _, err := s.reputation.RecordOutcome(ctx, a.ProviderID, reputation.Outcome{Action: action, ResponseTime: elapsed}); err != nil {
		s.log.Error("failed to update provider reputation", "providerId", a.ProviderID, "assignmentId", a.ID, "error", err)
	}
	if action != domain.ActionAccepted {
		if _, err := s.locks.ReleaseHeld(ctx, a.ProviderID, a.EventDate, a.LeadID); err != nil {
			s.log.Error("failed to release hold", "providerId", a.ProviderID, "leadId", a.LeadID, "error", err)
		}
	}

	s.bus.Publish(ctx, events.AssignmentResponded{
		BaseEvent:           events.NewBaseEvent(),
		AssignmentID:        a.ID,
		LeadID:              a.LeadID,
		ProviderID:          a.ProviderID,
		Status:              a.ResponseStatus,
		ResponseTimeSeconds: seconds,
	})
	return a, true, nil
}

// releaseUnlessAccepted drops a hold renewed for an acceptance that lost the
// race to another response on the same assignment.
func (s *Service) releaseUnlessAccepted(ctx context.Context, a domain.Assignment) {
	current, err := s.store.GetAssignment(ctx, a.ID)
	if err != nil || current.ResponseStatus == domain.ResponseAccepted {
		return
	}
	if _, err := s.locks.ReleaseHeld(ctx, a.ProviderID, a.EventDate, a.LeadID); err != nil {
		s.log.Error("failed to release hold", "providerId", a.ProviderID, "leadId", a.LeadID, "error", err)
	}
}

// releaseSiblings frees the holds of every other still-pending assignment of
// the lead. Their status stays pending.
func (s *Service) releaseSiblings(ctx context.Context, accepted domain.Assignment) (int, error) {
	list, err := s.store.ListAssignments(ctx, accepted.LeadID)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, a := range list {
		if a.ID == accepted.ID || a.ResponseStatus != domain.ResponsePending {
			continue
		}
		ok, err := s.locks.ReleaseHeld(ctx, a.ProviderID, a.EventDate, a.LeadID)
		if err != nil {
			return released, err
		}
		if ok {
			released++
		}
	}
	return released, nil
}

// afterRejection advances a lead whose assignments have all ended without an
// acceptance: an exclusive phase escalates at once, a shared phase ends
// unmatched. A concurrent routing step holding the claim takes care of it.
func (s *Service) afterRejection(ctx context.Context, leadID uuid.UUID, now time.Time) {
	open, err := s.hasOpenAssignments(ctx, leadID)
	if err != nil {
		s.log.Error("failed to inspect lead assignments", "leadId", leadID, "error", err)
		return
	}
	if open {
		return
	}

	lead, err := s.loadLead(ctx, leadID)
	if err != nil || lead.RoutingState != domain.StateRouting || lead.RoutingPhase == nil {
		return
	}

	if *lead.RoutingPhase == domain.PhaseExclusive {
		if _, err := s.Escalate(ctx, leadID); err != nil && !apperr.Is(err, apperr.KindConflict) {
			s.log.Error("early escalation failed", "leadId", leadID, "error", err)
		}
		return
	}

	release, err := s.claim(ctx, leadID)
	if err != nil {
		return
	}
	defer release()
	if open, err := s.hasOpenAssignments(ctx, leadID); err != nil || open {
		return
	}
	if _, err := s.markUnmatched(ctx, leadID, reasonAllRejected, now); err != nil {
		s.log.Error("failed to mark lead unmatched", "leadId", leadID, "error", err)
	}
}

// hasOpenAssignments is true while any assignment is pending or accepted.
func (s *Service) hasOpenAssignments(ctx context.Context, leadID uuid.UUID) (bool, error) {
	list, err := s.store.ListAssignments(ctx, leadID)
	if err != nil {
		return false, err
	}
	for _, a := range list {
		if a.ResponseStatus == domain.ResponsePending || a.ResponseStatus == domain.ResponseAccepted {
			return true, nil
		}
	}
	return false, nil
}
