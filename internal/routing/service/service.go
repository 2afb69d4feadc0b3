// Package service runs the per-lead routing state machine. controller.go
// drives the phases (route, escalate, expire); responder.go settles provider
// responses and conversions.
package service

import (
	"context"
	"errors"
	"time"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/internal/events"
	"lead_routing_backend/internal/providers/reputation"
	"lead_routing_backend/internal/routing/eligibility"
	"lead_routing_backend/internal/routing/repository"
	"lead_routing_backend/internal/routing/transport"
	"lead_routing_backend/platform/apperr"
	"lead_routing_backend/platform/config"
	"lead_routing_backend/platform/logger"

	"github.com/google/uuid"
)

// SlotLocks is the part of the availability calendar routing mutates after
// an assignment exists. Acquisition happens inside repository.AssignAndLock.
type SlotLocks interface {
	Renew(ctx context.Context, providerID uuid.UUID, date time.Time, leadID uuid.UUID, ttl time.Duration, now time.Time) (bool, error)
	ReleaseHeld(ctx context.Context, providerID uuid.UUID, date time.Time, leadID uuid.UUID) (bool, error)
	ReleaseForLead(ctx context.Context, leadID uuid.UUID) (int64, error)
	SetStatus(ctx context.Context, providerID uuid.UUID, date time.Time, status domain.AvailabilityStatus) error
}

// ReputationRecorder folds outcomes into provider metrics.
type ReputationRecorder interface {
	RecordOutcome(ctx context.Context, providerID uuid.UUID, outcome reputation.Outcome) (domain.ProviderMetrics, error)
	RecordConversion(ctx context.Context, providerID uuid.UUID) (domain.ProviderMetrics, error)
}

// PhaseScheduler arranges the timed escalation and expiry of a lead.
type PhaseScheduler interface {
	ScheduleEscalation(ctx context.Context, leadID uuid.UUID, at time.Time) error
	ScheduleExpiry(ctx context.Context, leadID uuid.UUID, at time.Time) error
}

type Service struct {
	store      repository.Store
	locks      SlotLocks
	filter     *eligibility.Filter
	reputation ReputationRecorder
	scheduler  PhaseScheduler
	bus        events.Bus
	policy     config.RoutingPolicy
	log        *logger.Logger
	now        func() time.Time
}

func New(store repository.Store, locks SlotLocks, filter *eligibility.Filter, rep ReputationRecorder, bus events.Bus, policy config.RoutingPolicy, log *logger.Logger) *Service {
	return &Service{
		store:      store,
		locks:      locks,
		filter:     filter,
		reputation: rep,
		bus:        bus,
		policy:     policy,
		log:        log,
		now:        time.Now,
	}
}

// SetScheduler installs the phase timer. Without one, escalation and expiry
// only happen when triggered explicitly.
func (s *Service) SetScheduler(scheduler PhaseScheduler) {
	s.scheduler = scheduler
}

// ListAssignments returns every assignment of a lead.
func (s *Service) ListAssignments(ctx context.Context, leadID uuid.UUID) ([]transport.AssignmentResponse, error) {
	if _, err := s.loadLead(ctx, leadID); err != nil {
		return nil, err
	}
	list, err := s.store.ListAssignments(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return toResponses(list), nil
}

// ListProviderAssignments returns the provider's inbox, optionally filtered by status.
func (s *Service) ListProviderAssignments(ctx context.Context, providerID uuid.UUID, status string) ([]transport.AssignmentResponse, error) {
	var filter *domain.ResponseStatus
	if status != "" {
		st, err := domain.ParseResponseStatus(status)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		filter = &st
	}
	list, err := s.store.ListProviderAssignments(ctx, providerID, filter)
	if err != nil {
		return nil, err
	}
	return toResponses(list), nil
}

func (s *Service) loadLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.store.GetLead(ctx, leadID)
	if errors.Is(err, repository.ErrLeadNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

// claim takes the per-lead routing claim. The returned release must be
// called once the step is done.
func (s *Service) claim(ctx context.Context, leadID uuid.UUID) (func(), error) {
	ok, err := s.store.ClaimLead(ctx, leadID, s.now(), s.policy.ClaimTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("lead is being routed by another step")
	}
	return func() {
		if err := s.store.ReleaseClaim(context.WithoutCancel(ctx), leadID); err != nil {
			s.log.Error("failed to release routing claim", "leadId", leadID, "error", err)
		}
	}, nil
}

// holdFor is the lifetime of a hold taken or renewed in phase: the phase
// window plus LockTTL of slack for the phase timer.
func (s *Service) holdFor(phase domain.Phase) time.Duration {
	window := s.policy.ExclusiveWindow
	if phase == domain.PhaseShared {
		window = s.policy.SharedWindow
	}
	return window + s.policy.LockTTL
}

// keepHold renews the calendar hold of a pending assignment for ttl. When the
// slot went to another lead or stopped being bookable, the assignment is
// withdrawn and false is returned.
func (s *Service) keepHold(ctx context.Context, a domain.Assignment, ttl time.Duration, now time.Time) (bool, error) {
	held, err := s.locks.Renew(ctx, a.ProviderID, a.EventDate, a.LeadID, ttl, now)
	if err != nil || held {
		return held, err
	}
	s.log.LockContention(a.ProviderID.String(), a.EventDate.Format(domain.DateLayout), a.LeadID.String())
	if _, err := s.store.WithdrawAssignment(ctx, a.ID); err != nil {
		return false, err
	}
	s.log.Info("assignment withdrawn, hold lost", "assignmentId", a.ID, "leadId", a.LeadID, "providerId", a.ProviderID)
	return false, nil
}

func toResponses(list []domain.Assignment) []transport.AssignmentResponse {
	out := make([]transport.AssignmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toResponse(a))
	}
	return out
}

func toResponse(a domain.Assignment) transport.AssignmentResponse {
	return transport.AssignmentResponse{
		ID:                       a.ID.String(),
		LeadID:                   a.LeadID.String(),
		ProviderID:               a.ProviderID.String(),
		EventDate:                a.EventDate.Format(domain.DateLayout),
		Phase:                    string(a.Phase),
		PhaseStartedAt:           a.PhaseStartedAt,
		ResponseStatus:           string(a.ResponseStatus),
		RespondedAt:              a.RespondedAt,
		ResponseTimeSeconds:      a.ResponseTimeSeconds,
		RoutingScoreAtAssignment: a.RoutingScoreAtAssignment,
		NotifiedAt:               a.NotifiedAt,
		CreatedAt:                a.CreatedAt,
	}
}
