package scoring

import (
	"strings"

	"lead_routing_backend/internal/domain"
)

// Completeness weighs optional fields at half a required field and caps at 1.
func Completeness(requiredPresent, requiredTotal, optionalPresent, optionalTotal int) float64 {
	denominator := float64(requiredTotal) + optionalFieldWeight*float64(optionalTotal)
	if denominator <= 0 {
		return 0
	}
	ratio := (float64(requiredPresent) + optionalFieldWeight*float64(optionalPresent)) / denominator
	return clampFloat(ratio, 0, 1)
}

// LeadCompleteness applies Completeness to the intake form fields of a lead.
// Required: email, event type, event date, city, state, budget min and max.
// Optional: phone, event time, venue name, venue address, guest count, notes.
func LeadCompleteness(l domain.Lead) float64 {
	required := []bool{
		strings.TrimSpace(l.Email) != "",
		l.EventType.IsValid(),
		l.EventDate != nil,
		strings.TrimSpace(l.City) != "",
		strings.TrimSpace(l.State) != "",
		l.BudgetMin != nil,
		l.BudgetMax != nil,
	}
	optional := []bool{
		present(l.Phone),
		present(l.EventTime),
		present(l.VenueName),
		present(l.VenueAddress),
		l.GuestCount != nil && *l.GuestCount > 0,
		present(l.Notes),
	}
	return Completeness(count(required), len(required), count(optional), len(optional))
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func count(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
