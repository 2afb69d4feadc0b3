package service

import (
	"context"
	"fmt"
	"time"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/internal/events"
	"lead_routing_backend/internal/routing/eligibility"
	"lead_routing_backend/internal/routing/repository"
	"lead_routing_backend/internal/routing/transport"
	"lead_routing_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	reasonNoEligible     = "no_eligible_provider"
	reasonNoneAfterWiden = "no_provider_after_escalation"
	reasonAllRejected    = "all_assignments_rejected"
	reasonNoAcceptance   = "no_acceptance_before_expiry"
)

// Route opens the exclusive phase for a lead that intake moved into routing.
// A lead with no eligible provider goes straight to unmatched.
func (s *Service) Route(ctx context.Context, leadID uuid.UUID) (transport.RoutingStepResponse, error) {
	release, err := s.claim(ctx, leadID)
	if err != nil {
		return transport.RoutingStepResponse{}, err
	}
	defer release()

	lead, err := s.loadLead(ctx, leadID)
	if err != nil {
		return transport.RoutingStepResponse{}, err
	}
	if lead.RoutingState != domain.StateRouting {
		return transport.RoutingStepResponse{}, apperr.Precondition(fmt.Sprintf("lead is %s, not routing", lead.RoutingState))
	}
	if lead.RoutingPhase != nil {
		return transport.RoutingStepResponse{}, apperr.Conflict("lead has already been routed")
	}

	now := s.now()
	candidates, err := s.filter.Eligible(ctx, lead, eligibility.Options{MinReliability: s.policy.MinReliability}, now)
	if err != nil {
		return transport.RoutingStepResponse{}, err
	}
	assigned, err := s.assign(ctx, lead, candidates, domain.PhaseExclusive, s.policy.ExclusiveProviders, now)
	if err != nil {
		return transport.RoutingStepResponse{}, err
	}

	resp := newStep(lead, assigned)
	s.log.RoutingDecision(leadID.String(), string(domain.PhaseExclusive), len(assigned))
	if len(assigned) == 0 {
		return s.finishUnmatched(ctx, leadID, resp, reasonNoEligible, now)
	}

	if err := s.store.SetPhase(ctx, leadID, domain.PhaseExclusive); err != nil {
		return resp, err
	}
	phase := string(domain.PhaseExclusive)
	resp.Phase = &phase
	s.schedule(ctx, leadID, domain.PhaseExclusive, now.Add(s.policy.ExclusiveWindow))
	return resp, nil
}

// Escalate widens a lead still in the exclusive phase: pending assignments
// become shared and the pool is topped up to the shared size with a relaxed
// price tolerance. Pending holds are renewed for the shared window; an
// assignment whose slot was lost is withdrawn. Calling it on any other lead
// is a no-op.
func (s *Service) Escalate(ctx context.Context, leadID uuid.UUID) (transport.RoutingStepResponse, error) {
	release, err := s.claim(ctx, leadID)
	if err != nil {
		return transport.RoutingStepResponse{}, err
	}
	defer release()

	lead, err := s.loadLead(ctx, leadID)
	if err != nil {
		return transport.RoutingStepResponse{}, err
	}
	if lead.RoutingState != domain.StateRouting || lead.RoutingPhase == nil || *lead.RoutingPhase != domain.PhaseExclusive {
		resp := newStep(lead, nil)
		resp.Skipped = "lead is not in the exclusive phase"
		return resp, nil
	}

	now := s.now()
	escalated, err := s.store.EscalatePending(ctx, leadID)
	if err != nil {
		return transport.RoutingStepResponse{}, err
	}
	existing, err := s.store.ListAssignments(ctx, leadID)
	if err != nil {
		return transport.RoutingStepResponse{}, err
	}

	exclude := make(map[uuid.UUID]bool, len(existing))
	pending, withdrawn := 0, 0
	for _, a := range existing {
		exclude[a.ProviderID] = true
		if a.ResponseStatus != domain.ResponsePending {
			continue
		}
		held, err := s.keepHold(ctx, a, s.holdFor(domain.PhaseShared), now)
		if err != nil {
			return transport.RoutingStepResponse{}, err
		}
		if held {
			pending++
		} else {
			withdrawn++
		}
	}
	escalatedCount := max(int(escalated)-withdrawn, 0)

	var added []domain.Assignment
	if want := s.policy.SharedProviders - pending; want > 0 {
		candidates, err := s.filter.Eligible(ctx, lead, eligibility.Options{
			PriceTolerancePct: s.policy.SharedPriceTolerancePct,
			MinReliability:    s.policy.MinReliability,
			Exclude:           exclude,
		}, now)
		if err != nil {
			return transport.RoutingStepResponse{}, err
		}
		if added, err = s.assign(ctx, lead, candidates, domain.PhaseShared, want, now); err != nil {
			return transport.RoutingStepResponse{}, err
		}
	}

	if err := s.store.SetPhase(ctx, leadID, domain.PhaseShared); err != nil {
		return transport.RoutingStepResponse{}, err
	}
	s.log.RoutingDecision(leadID.String(), string(domain.PhaseShared), len(added))
	s.bus.Publish(ctx, events.LeadEscalated{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        leadID,
		Escalated:     escalatedCount,
		NewlyAssigned: len(added),
	})

	resp := newStep(lead, added)
	phase := string(domain.PhaseShared)
	resp.Phase = &phase
	resp.Escalated = escalatedCount
	resp.Withdrawn = withdrawn
	if pending+len(added) == 0 {
		return s.finishUnmatched(ctx, leadID, resp, reasonNoneAfterWiden, now)
	}
	s.schedule(ctx, leadID, domain.PhaseShared, now.Add(s.policy.SharedWindow))
	return resp, nil
}

// Expire closes the shared window: every assignment still pending is
// settled as ignored and the lead becomes unmatched unless someone accepted.
func (s *Service) Expire(ctx context.Context, leadID uuid.UUID) (transport.RoutingStepResponse, error) {
	release, err := s.claim(ctx, leadID)
	if err != nil {
		return transport.RoutingStepResponse{}, err
	}
	defer release()

	lead, err := s.loadLead(ctx, leadID)
	if err != nil {
		return transport.RoutingStepResponse{}, err
	}
	resp := newStep(lead, nil)
	if lead.RoutingState != domain.StateRouting {
		resp.Skipped = "lead is no longer routing"
		return resp, nil
	}

	now := s.now()
	list, err := s.store.ListAssignments(ctx, leadID)
	if err != nil {
		return resp, err
	}
	accepted := false
	for _, a := range list {
		switch a.ResponseStatus {
		case domain.ResponseAccepted:
			accepted = true
		case domain.ResponsePending:
			if _, ok, err := s.settle(ctx, a, domain.ActionIgnored, now); err != nil {
				return resp, err
			} else if ok {
				resp.Expired++
			}
		}
	}

	if accepted {
		// An acceptance whose lead update failed; finish it here.
		if err := s.store.MarkResponded(ctx, leadID, now, true); err != nil {
			return resp, err
		}
		resp.RoutingState = string(domain.StateResponded)
		return resp, nil
	}
	return s.finishUnmatched(ctx, leadID, resp, reasonNoAcceptance, now)
}

// assign walks the ranked candidates until want assignments hold a lock.
// Contention moves on to the next candidate and is never retried. A storage
// failure after some assignments succeeded keeps what was created.
func (s *Service) assign(ctx context.Context, lead domain.Lead, candidates []domain.Candidate, phase domain.Phase, want int, now time.Time) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, c := range candidates {
		if len(out) >= want {
			break
		}
		a, ok, err := s.store.AssignAndLock(ctx, repository.AssignParams{
			LeadID:       lead.ID,
			ProviderID:   c.Profile.ID,
			EventDate:    *lead.EventDate,
			Phase:        phase,
			RoutingScore: c.Metrics.RoutingScore,
			LockTTL:      s.holdFor(phase),
			Now:          now,
		})
		if err != nil {
			if len(out) == 0 {
				return nil, err
			}
			s.log.Error("assignment failed, keeping partial phase", "leadId", lead.ID, "providerId", c.Profile.ID, "error", err)
			break
		}
		if !ok {
			s.log.LockContention(c.Profile.ID.String(), lead.EventDate.Format(domain.DateLayout), lead.ID.String())
			continue
		}
		out = append(out, a)
		s.bus.Publish(ctx, events.AssignmentCreated{
			BaseEvent:    events.NewBaseEvent(),
			AssignmentID: a.ID,
			LeadID:       a.LeadID,
			ProviderID:   a.ProviderID,
			Phase:        a.Phase,
			EventDate:    a.EventDate,
		})
	}
	return out, nil
}

func (s *Service) finishUnmatched(ctx context.Context, leadID uuid.UUID, resp transport.RoutingStepResponse, reason string, now time.Time) (transport.RoutingStepResponse, error) {
	ok, err := s.markUnmatched(ctx, leadID, reason, now)
	if err != nil {
		return resp, err
	}
	if ok {
		resp.RoutingState = string(domain.StateUnmatched)
	}
	return resp, nil
}

// markUnmatched moves the lead to unmatched and frees every hold it still has.
func (s *Service) markUnmatched(ctx context.Context, leadID uuid.UUID, reason string, now time.Time) (bool, error) {
	ok, err := s.store.MarkUnmatched(ctx, leadID, now)
	if err != nil || !ok {
		return ok, err
	}
	if _, err := s.locks.ReleaseForLead(ctx, leadID); err != nil {
		s.log.Error("failed to release holds of unmatched lead", "leadId", leadID, "error", err)
	}
	s.log.Info("lead unmatched", "leadId", leadID, "reason", reason)
	s.bus.Publish(ctx, events.LeadUnmatched{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		Reason:    reason,
	})
	return true, nil
}

func (s *Service) schedule(ctx context.Context, leadID uuid.UUID, phase domain.Phase, at time.Time) {
	if s.scheduler == nil {
		return
	}
	var err error
	if phase == domain.PhaseExclusive {
		err = s.scheduler.ScheduleEscalation(ctx, leadID, at)
	} else {
		err = s.scheduler.ScheduleExpiry(ctx, leadID, at)
	}
	if err != nil {
		s.log.Error("failed to schedule phase timer", "leadId", leadID, "phase", phase, "at", at, "error", err)
	}
}

func newStep(lead domain.Lead, assigned []domain.Assignment) transport.RoutingStepResponse {
	resp := transport.RoutingStepResponse{
		LeadID:       lead.ID.String(),
		RoutingState: string(lead.RoutingState),
		Assigned:     toResponses(assigned),
	}
	if lead.RoutingPhase != nil {
		phase := string(*lead.RoutingPhase)
		resp.Phase = &phase
	}
	return resp
}
