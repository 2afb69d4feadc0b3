package service

import (
	"context"
	"sync"
	"time"

	"lead_routing_backend/internal/availability/availabilitytest"
	"lead_routing_backend/internal/domain"
	"lead_routing_backend/internal/events"
	"lead_routing_backend/internal/providers/reputation"
	"lead_routing_backend/internal/routing/repository"

	"github.com/google/uuid"
)

// memoryStore mirrors the conditional writes of repository.Repository.
type memoryStore struct {
	mu          sync.Mutex
	leads       map[uuid.UUID]domain.Lead
	claims      map[uuid.UUID]time.Time
	assignments []domain.Assignment
	locks       *availabilitytest.Store
}

func newMemoryStore(locks *availabilitytest.Store) *memoryStore {
	return &memoryStore{
		leads:  map[uuid.UUID]domain.Lead{},
		claims: map[uuid.UUID]time.Time{},
		locks:  locks,
	}
}

func (s *memoryStore) putLead(l domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[l.ID] = l
}

func (s *memoryStore) lead(id uuid.UUID) domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leads[id]
}

func (s *memoryStore) ClaimLead(_ context.Context, leadID uuid.UUID, now time.Time, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if until, ok := s.claims[leadID]; ok && until.After(now) {
		return false, nil
	}
	s.claims[leadID] = now.Add(ttl)
	return true, nil
}

func (s *memoryStore) ReleaseClaim(_ context.Context, leadID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, leadID)
	return nil
}

func (s *memoryStore) GetLead(_ context.Context, leadID uuid.UUID) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[leadID]
	if !ok {
		return domain.Lead{}, repository.ErrLeadNotFound
	}
	return l, nil
}

func (s *memoryStore) SetPhase(_ context.Context, leadID uuid.UUID, phase domain.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.leads[leadID]
	if l.RoutingState == domain.StateRouting {
		l.RoutingPhase = &phase
		s.leads[leadID] = l
	}
	return nil
}

func (s *memoryStore) MarkUnmatched(_ context.Context, leadID uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.leads[leadID]
	if l.RoutingState != domain.StateRouting {
		return false, nil
	}
	for _, a := range s.assignments {
		if a.LeadID == leadID && a.ResponseStatus == domain.ResponseAccepted {
			return false, nil
		}
	}
	l.RoutingState = domain.StateUnmatched
	l.UnmatchedAt = &now
	s.leads[leadID] = l
	return true, nil
}

func (s *memoryStore) MarkResponded(_ context.Context, leadID uuid.UUID, now time.Time, accepted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.leads[leadID]
	if l.FirstResponseAt == nil {
		l.FirstResponseAt = &now
	}
	if accepted && l.RoutingState == domain.StateRouting {
		l.RoutingState = domain.StateResponded
	}
	s.leads[leadID] = l
	return nil
}

func (s *memoryStore) MarkConverted(_ context.Context, leadID, providerID uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.leads[leadID]
	if l.RoutingState != domain.StateResponded {
		return false, nil
	}
	for _, a := range s.assignments {
		if a.LeadID == leadID && a.ProviderID == providerID && a.ResponseStatus == domain.ResponseAccepted {
			l.RoutingState = domain.StateConverted
			l.ConvertedProviderID = &providerID
			l.ConvertedAt = &now
			s.leads[leadID] = l
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) AssignAndLock(ctx context.Context, p repository.AssignParams) (domain.Assignment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.LeadID == p.LeadID && a.ProviderID == p.ProviderID {
			return domain.Assignment{}, false, nil
		}
	}
	locked, err := s.locks.Lock(ctx, p.ProviderID, p.EventDate, p.LeadID, p.LockTTL, p.Now)
	if err != nil || !locked {
		return domain.Assignment{}, false, err
	}
	a := domain.Assignment{
		ID:                       uuid.New(),
		LeadID:                   p.LeadID,
		ProviderID:               p.ProviderID,
		EventDate:                domain.DateOnly(p.EventDate),
		Phase:                    p.Phase,
		PhaseStartedAt:           p.Now,
		ResponseStatus:           domain.ResponsePending,
		RoutingScoreAtAssignment: p.RoutingScore,
		CreatedAt:                p.Now,
	}
	s.assignments = append(s.assignments, a)
	return a, true, nil
}

func (s *memoryStore) GetAssignment(_ context.Context, id uuid.UUID) (domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Assignment{}, repository.ErrAssignmentNotFound
}

func (s *memoryStore) ListAssignments(_ context.Context, leadID uuid.UUID) ([]domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Assignment
	for _, a := range s.assignments {
		if a.LeadID == leadID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memoryStore) ListProviderAssignments(_ context.Context, providerID uuid.UUID, status *domain.ResponseStatus) ([]domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Assignment
	for _, a := range s.assignments {
		if a.ProviderID == providerID && (status == nil || a.ResponseStatus == *status) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memoryStore) RecordResponse(_ context.Context, id uuid.UUID, status domain.ResponseStatus, at time.Time, responseSeconds int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.assignments {
		if a.ID != id {
			continue
		}
		if a.ResponseStatus != domain.ResponsePending {
			return false, nil
		}
		a.ResponseStatus = status
		a.RespondedAt = &at
		a.ResponseTimeSeconds = &responseSeconds
		s.assignments[i] = a
		return true, nil
	}
	return false, nil
}

func (s *memoryStore) EscalatePending(_ context.Context, leadID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i, a := range s.assignments {
		if a.LeadID == leadID && a.ResponseStatus == domain.ResponsePending && a.Phase == domain.PhaseExclusive {
			a.Phase = domain.PhaseShared
			s.assignments[i] = a
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) WithdrawAssignment(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.assignments {
		if a.ID != id {
			continue
		}
		if a.ResponseStatus != domain.ResponsePending {
			return false, nil
		}
		s.assignments = append(s.assignments[:i], s.assignments[i+1:]...)
		return true, nil
	}
	return false, nil
}

type staticCandidates []domain.Candidate

func (c staticCandidates) ListCandidates(context.Context, float64, time.Time) ([]domain.Candidate, error) {
	return c, nil
}

// allOpen reports every slot open so lock contention surfaces in assignment.
type allOpen struct{}

func (allOpen) CheckBatch(_ context.Context, ids []uuid.UUID, _ time.Time, _ time.Time) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

type recordedOutcome struct {
	providerID uuid.UUID
	outcome    reputation.Outcome
}

type fakeReputation struct {
	mu          sync.Mutex
	outcomes    []recordedOutcome
	conversions []uuid.UUID
}

func (r *fakeReputation) RecordOutcome(_ context.Context, providerID uuid.UUID, o reputation.Outcome) (domain.ProviderMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, recordedOutcome{providerID: providerID, outcome: o})
	return domain.ProviderMetrics{ProviderID: providerID}, nil
}

func (r *fakeReputation) RecordConversion(_ context.Context, providerID uuid.UUID) (domain.ProviderMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversions = append(r.conversions, providerID)
	return domain.ProviderMetrics{ProviderID: providerID}, nil
}

type fakeScheduler struct {
	mu          sync.Mutex
	escalations map[uuid.UUID]time.Time
	expiries    map[uuid.UUID]time.Time
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{escalations: map[uuid.UUID]time.Time{}, expiries: map[uuid.UUID]time.Time{}}
}

func (f *fakeScheduler) ScheduleEscalation(_ context.Context, leadID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.escalations[leadID] = at
	return nil
}

func (f *fakeScheduler) ScheduleExpiry(_ context.Context, leadID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiries[leadID] = at
	return nil
}

type capturingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *capturingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *capturingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *capturingBus) Subscribe(string, events.Handler) {}

func (b *capturingBus) named(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}
