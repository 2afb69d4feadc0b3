// Package scoring turns an intake lead into a 0-100 priority score. It is
// pure: the same lead, market snapshot and clock always give the same result.
package scoring

import (
	"fmt"
	"math"
	"time"

	"lead_routing_backend/internal/domain"
)

// Version tags persisted breakdowns so old rows stay interpretable.
const Version = "lead-score-v1"

// Component ceilings and floors. A component never drops below its floor,
// so one weak signal cannot zero a lead.
const (
	budgetMax, budgetFloor, budgetDefault             = 30, 10, 15
	urgencyMax, urgencyFloor, urgencyDefault          = 25, 8, 10
	completenessMax, completenessFloor                = 15, 0
	demandMax, demandFloor, demandDefault             = 20, 10, 10
	eventTypeMax, eventTypeFloor                      = 10, 5
	optionalFieldWeight                               = 0.5
	highQualityThreshold, mediumQualityThreshold      = 50, 30
	hotTemperatureThreshold, warmTemperatureThreshold = 60, 40
)

var eventTypePriority = map[domain.EventType]int{
	domain.EventWedding:      10,
	domain.EventCorporate:    8,
	domain.EventPrivateParty: 7,
	domain.EventHolidayParty: 7,
	domain.EventSchoolDance:  6,
	domain.EventOther:        5,
}

// Input is everything the score depends on. Market is nil when the market
// reader reported insufficient data.
type Input struct {
	BudgetMin        *float64
	BudgetMax        *float64
	EventType        domain.EventType
	EventDate        *time.Time
	IsLastMinute     bool
	FormCompleteness float64
	Market           *domain.CityEventStats
}

// Components is the persisted per-component breakdown.
type Components struct {
	Budget         int      `json:"budget"`
	Urgency        int      `json:"urgency"`
	Completeness   int      `json:"completeness"`
	Demand         int      `json:"demand"`
	EventType      int      `json:"eventType"`
	BudgetDiffPct  *float64 `json:"budgetDiffPct,omitempty"`
	DaysUntilEvent *int     `json:"daysUntilEvent,omitempty"`
	Version        string   `json:"version"`
}

// Sum adds the five scored components.
func (c Components) Sum() int {
	return c.Budget + c.Urgency + c.Completeness + c.Demand + c.EventType
}

type Result struct {
	Score       int
	Components  Components
	Quality     domain.LeadQuality
	Temperature domain.LeadTemperature
}

// Score computes the lead score at now.
func Score(in Input, now time.Time) Result {
	c := Components{Version: Version}

	c.Budget, c.BudgetDiffPct = budgetScore(in)
	c.Urgency, c.DaysUntilEvent = urgencyScore(in, now)
	c.Completeness = clampInt(int(math.Round(clampFloat(in.FormCompleteness, 0, 1)*completenessMax)), completenessFloor, completenessMax)
	c.Demand = demandScore(in.Market)
	c.EventType = clampInt(eventTypePriority[in.EventType], eventTypeFloor, eventTypeMax)

	total := clampInt(c.Sum(), 0, 100)
	return Result{
		Score:       total,
		Components:  c,
		Quality:     QualityFor(total),
		Temperature: TemperatureFor(total),
	}
}

func budgetScore(in Input) (int, *float64) {
	if in.BudgetMin == nil || in.BudgetMax == nil || in.Market == nil || in.Market.PriceMedian <= 0 {
		return budgetDefault, nil
	}

	midpoint := (*in.BudgetMin + *in.BudgetMax) / 2
	diff := (midpoint - in.Market.PriceMedian) / in.Market.PriceMedian * 100
	rounded := math.Round(diff*100) / 100

	var score int
	switch {
	case diff >= 20:
		score = 30
	case diff >= 5:
		score = 25
	case diff >= -5:
		score = 20
	case diff >= -20:
		score = 15
	case diff >= -40:
		score = 12
	default:
		score = budgetFloor
	}
	return clampInt(score, budgetFloor, budgetMax), &rounded
}

func urgencyScore(in Input, now time.Time) (int, *int) {
	if in.EventDate == nil {
		if in.IsLastMinute {
			return urgencyMax, nil
		}
		return urgencyDefault, nil
	}

	days := DaysUntil(*in.EventDate, now)

	var score int
	switch {
	case days < 30 || in.IsLastMinute:
		score = 25
	case days < 60:
		score = 20
	case days < 90:
		score = 15
	case days < 180:
		score = 12
	default:
		score = 8
	}
	return clampInt(score, urgencyFloor, urgencyMax), &days
}

// Categorical tension wins over the raw ratio.
func demandScore(market *domain.CityEventStats) int {
	if market == nil {
		return demandDefault
	}

	score := demandDefault
	switch {
	case market.MarketTension != nil:
		switch *market.MarketTension {
		case domain.TensionHigh:
			score = 20
		case domain.TensionMedium:
			score = 15
		case domain.TensionLow:
			score = 10
		}
	case market.DemandSupplyRatio != nil:
		switch ratio := *market.DemandSupplyRatio; {
		case ratio >= 2.0:
			score = 20
		case ratio >= 1.0:
			score = 15
		default:
			score = 10
		}
	}
	return clampInt(score, demandFloor, demandMax)
}

// DaysUntil counts whole calendar days from now's date to the event date.
func DaysUntil(eventDate, now time.Time) int {
	return int(domain.DateOnly(eventDate).Sub(domain.DateOnly(now)).Hours() / 24)
}

func QualityFor(score int) domain.LeadQuality {
	switch {
	case score >= highQualityThreshold:
		return domain.LeadQualityHigh
	case score >= mediumQualityThreshold:
		return domain.LeadQualityMedium
	default:
		return domain.LeadQualityLow
	}
}

func TemperatureFor(score int) domain.LeadTemperature {
	switch {
	case score >= hotTemperatureThreshold:
		return domain.TemperatureHot
	case score >= warmTemperatureThreshold:
		return domain.TemperatureWarm
	default:
		return domain.TemperatureCold
	}
}

// Explain renders a one-line human summary of a result.
func Explain(r Result) string {
	c := r.Components
	return fmt.Sprintf(
		"Lead score %d/100 (%s quality, %s): budget %d/%d, urgency %d/%d, completeness %d/%d, demand %d/%d, event type %d/%d.",
		r.Score, r.Quality, r.Temperature,
		c.Budget, budgetMax, c.Urgency, urgencyMax, c.Completeness, completenessMax,
		c.Demand, demandMax, c.EventType, eventTypeMax,
	)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
