// Package availabilitytest provides an in-memory lock manager with the same
// conditional semantics as the SQL repository, for service tests.
package availabilitytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"lead_routing_backend/internal/availability/repository"
	"lead_routing_backend/internal/domain"

	"github.com/google/uuid"
)

type slotKey struct {
	provider uuid.UUID
	date     time.Time
}

// Store is safe for concurrent use. Each operation holds the mutex for its
// whole duration, which models a single conditional UPDATE.
type Store struct {
	mu    sync.Mutex
	slots map[slotKey]domain.Availability
}

func NewStore() *Store {
	return &Store{slots: map[slotKey]domain.Availability{}}
}

func key(providerID uuid.UUID, date time.Time) slotKey {
	return slotKey{provider: providerID, date: domain.DateOnly(date)}
}

// Seed sets a slot's status without touching its lock.
func (s *Store) Seed(providerID uuid.UUID, date time.Time, status domain.AvailabilityStatus) {
	_ = s.SetStatus(context.Background(), providerID, date, status)
}

// Get returns the raw slot for assertions.
func (s *Store) Get(providerID uuid.UUID, date time.Time) (domain.Availability, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.slots[key(providerID, date)]
	return a, ok
}

func (s *Store) Check(_ context.Context, providerID uuid.UUID, date time.Time, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.slots[key(providerID, date)]
	return ok && a.Open(now), nil
}

func (s *Store) CheckBatch(ctx context.Context, providerIDs []uuid.UUID, date time.Time, now time.Time) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(providerIDs))
	for _, id := range providerIDs {
		open, _ := s.Check(ctx, id, date, now)
		out[id] = open
	}
	return out, nil
}

func (s *Store) Lock(_ context.Context, providerID uuid.UUID, date time.Time, leadID uuid.UUID, ttl time.Duration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(providerID, date)
	a, ok := s.slots[k]
	if !ok || !a.Open(now) {
		return false, nil
	}
	until := now.Add(ttl)
	lead := leadID
	a.LockedUntil = &until
	a.LockedByLeadID = &lead
	s.slots[k] = a
	return true, nil
}

func (s *Store) Renew(_ context.Context, providerID uuid.UUID, date time.Time, leadID uuid.UUID, ttl time.Duration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(providerID, date)
	a, ok := s.slots[k]
	if !ok || !a.Status.Bookable() {
		return false, nil
	}
	ours := a.LockedByLeadID != nil && *a.LockedByLeadID == leadID
	if !ours && !a.Open(now) {
		return false, nil
	}
	until := now.Add(ttl)
	lead := leadID
	a.LockedUntil = &until
	a.LockedByLeadID = &lead
	s.slots[k] = a
	return true, nil
}

func (s *Store) Release(_ context.Context, providerID uuid.UUID, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(providerID, date)
	if a, ok := s.slots[k]; ok {
		a.LockedUntil, a.LockedByLeadID = nil, nil
		s.slots[k] = a
	}
	return nil
}

func (s *Store) ReleaseHeld(_ context.Context, providerID uuid.UUID, date time.Time, leadID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(providerID, date)
	a, ok := s.slots[k]
	if !ok || a.LockedByLeadID == nil || *a.LockedByLeadID != leadID {
		return false, nil
	}
	a.LockedUntil, a.LockedByLeadID = nil, nil
	s.slots[k] = a
	return true, nil
}

func (s *Store) ReleaseForLead(_ context.Context, leadID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, a := range s.slots {
		if a.LockedByLeadID != nil && *a.LockedByLeadID == leadID {
			a.LockedUntil, a.LockedByLeadID = nil, nil
			s.slots[k] = a
			n++
		}
	}
	return n, nil
}

func (s *Store) SetStatus(_ context.Context, providerID uuid.UUID, date time.Time, status domain.AvailabilityStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(providerID, date)
	a := s.slots[k]
	a.ProviderID, a.Date, a.Status = providerID, k.date, status
	s.slots[k] = a
	return nil
}

func (s *Store) List(_ context.Context, providerID uuid.UUID, from, to time.Time) ([]domain.Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lo, hi := domain.DateOnly(from), domain.DateOnly(to)
	var out []domain.Availability
	for k, a := range s.slots {
		if k.provider == providerID && !k.date.Before(lo) && !k.date.After(hi) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

var (
	_ repository.LockManager   = (*Store)(nil)
	_ repository.CalendarStore = (*Store)(nil)
)
