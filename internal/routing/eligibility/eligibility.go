// Package eligibility selects the providers a lead may be offered to.
package eligibility

import (
	"context"
	"sort"
	"strings"
	"time"

	"lead_routing_backend/internal/domain"

	"github.com/google/uuid"
)

// CandidateReader lists routable providers, best routing score first.
type CandidateReader interface {
	ListCandidates(ctx context.Context, minReliability float64, now time.Time) ([]domain.Candidate, error)
}

// AvailabilityChecker checks many providers against one date.
type AvailabilityChecker interface {
	CheckBatch(ctx context.Context, providerIDs []uuid.UUID, date time.Time, now time.Time) (map[uuid.UUID]bool, error)
}

// Options narrows or widens one eligibility run.
type Options struct {
	// Limit caps the result; zero means unlimited.
	Limit int
	// PriceTolerancePct widens the lead's budget range on both ends.
	PriceTolerancePct float64
	MinReliability    float64
	// Exclude drops providers already assigned to the lead.
	Exclude map[uuid.UUID]bool
}

type Filter struct {
	candidates CandidateReader
	calendar   AvailabilityChecker
}

func New(candidates CandidateReader, calendar AvailabilityChecker) *Filter {
	return &Filter{candidates: candidates, calendar: calendar}
}

// Eligible returns the providers that serve the lead's city, overlap its
// budget and hold an open slot on the event date, ranked by routing score.
// A lead without an event date has no eligible providers.
func (f *Filter) Eligible(ctx context.Context, lead domain.Lead, opts Options, now time.Time) ([]domain.Candidate, error) {
	if lead.EventDate == nil {
		return nil, nil
	}

	all, err := f.candidates.ListCandidates(ctx, opts.MinReliability, now)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Candidate, 0, len(all))
	for _, c := range all {
		if opts.Exclude[c.Profile.ID] {
			continue
		}
		if !ServesCity(c.Profile, lead.City) {
			continue
		}
		if !PriceOverlaps(c.Profile, lead, opts.PriceTolerancePct) {
			continue
		}
		matched = append(matched, c)
	}
	if len(matched) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(matched))
	for i, c := range matched {
		ids[i] = c.Profile.ID
	}
	open, err := f.calendar.CheckBatch(ctx, ids, *lead.EventDate, now)
	if err != nil {
		return nil, err
	}

	out := matched[:0]
	for _, c := range matched {
		if open[c.Profile.ID] {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Metrics.RoutingScore > out[j].Metrics.RoutingScore
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// ServesCity matches the lead city against the provider's home city and
// service areas, case-insensitively by substring.
func ServesCity(p domain.ProviderProfile, city string) bool {
	city = strings.ToLower(strings.TrimSpace(city))
	if city == "" {
		return false
	}
	if strings.Contains(strings.ToLower(p.City), city) {
		return true
	}
	for _, area := range p.ServiceAreas {
		if strings.Contains(strings.ToLower(area), city) {
			return true
		}
	}
	return false
}

// PriceOverlaps reports whether the provider's price range intersects the
// lead's budget widened by tolerancePct. Providers without a complete price
// range never overlap; leads without a budget overlap every priced provider.
func PriceOverlaps(p domain.ProviderProfile, lead domain.Lead, tolerancePct float64) bool {
	if p.PriceMin == nil || p.PriceMax == nil {
		return false
	}
	if !lead.HasBudget() {
		return true
	}
	widen := tolerancePct / 100
	low := *lead.BudgetMin * (1 - widen)
	high := *lead.BudgetMax * (1 + widen)
	return *p.PriceMin <= high && *p.PriceMax >= low
}
