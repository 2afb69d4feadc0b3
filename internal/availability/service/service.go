// Package service lets providers maintain their calendar. Locks are taken by
// routing; here they are only reported.
package service

import (
	"context"
	"time"

	"lead_routing_backend/internal/availability/repository"
	"lead_routing_backend/internal/availability/transport"
	"lead_routing_backend/internal/domain"
	"lead_routing_backend/platform/apperr"
	"lead_routing_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultWindowDays = 90
	maxWindowDays     = 366
)

type Service struct {
	store repository.CalendarStore
	log   *logger.Logger
	now   func() time.Time
}

func New(store repository.CalendarStore, log *logger.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// SetDay records the provider's status for one calendar date.
func (s *Service) SetDay(ctx context.Context, providerID uuid.UUID, date string, status string) error {
	day, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return apperr.Validation("date must be YYYY-MM-DD")
	}
	if day.Before(domain.DateOnly(s.now())) {
		return apperr.Validation("date is in the past")
	}
	st, err := domain.ParseAvailabilityStatus(status)
	if err != nil {
		return apperr.Validation(err.Error())
	}

	if err := s.store.SetStatus(ctx, providerID, day, st); err != nil {
		return err
	}
	s.log.WithContext(ctx).Info("availability updated", "providerId", providerID, "date", date, "status", st)
	return nil
}

// ListDays returns the provider's calendar between from and to inclusive.
// Blank bounds default to today and 90 days ahead.
func (s *Service) ListDays(ctx context.Context, providerID uuid.UUID, from, to string) ([]transport.DayResponse, error) {
	now := s.now()
	start := domain.DateOnly(now)
	if from != "" {
		parsed, err := time.Parse(domain.DateLayout, from)
		if err != nil {
			return nil, apperr.Validation("from must be YYYY-MM-DD")
		}
		start = parsed
	}
	end := start.AddDate(0, 0, defaultWindowDays)
	if to != "" {
		parsed, err := time.Parse(domain.DateLayout, to)
		if err != nil {
			return nil, apperr.Validation("to must be YYYY-MM-DD")
		}
		end = parsed
	}
	if end.Before(start) {
		return nil, apperr.Validation("to must not be before from")
	}
	if end.Sub(start) > maxWindowDays*24*time.Hour {
		return nil, apperr.Validation("range is limited to one year")
	}

	days, err := s.store.List(ctx, providerID, start, end)
	if err != nil {
		return nil, err
	}

	out := make([]transport.DayResponse, 0, len(days))
	for _, d := range days {
		resp := transport.DayResponse{
			Date:   d.Date.Format(domain.DateLayout),
			Status: string(d.Status),
		}
		if d.LockedUntil != nil && d.LockedUntil.After(now) {
			resp.Locked = true
			resp.LockedUntil = d.LockedUntil
		}
		out = append(out, resp)
	}
	return out, nil
}
