// Package standing computes a provider's routing score from tier, response
// speed, conversion, price alignment, trust and a decaying penalty.
package standing

import (
	"fmt"
	"math"
	"time"

	"lead_routing_backend/internal/domain"
)

// Version tags persisted breakdowns.
const Version = "provider-standing-v1"

const (
	maxScore = 100

	// PenaltyDecayPerDay is the share of a penalty forgiven per elapsed day.
	PenaltyDecayPerDay = 0.10

	responseSpeedDefault  = 10
	conversionDefault     = 10
	priceAlignmentDefault = 10
	trustMax              = 15
)

var tierWeight = map[domain.PricingTier]int{
	domain.TierPremium:  25,
	domain.TierStandard: 20,
	domain.TierBudget:   15,
}

// Input is everything the calculation reads. MarketMedian is the reference
// median for the provider's home market, nil when unknown.
type Input struct {
	Tier               domain.PricingTier
	AvgResponseSeconds *float64
	ConversionRate     *float64
	ProviderMidpoint   *float64
	MarketMedian       *float64
	Reliability        float64
	Penalty            float64
	PenaltyAppliedAt   *time.Time
}

// FromProvider builds an Input from stored profile and metrics.
func FromProvider(p domain.ProviderProfile, m domain.ProviderMetrics, marketMedian *float64) Input {
	return Input{
		Tier:               m.PricingTier,
		AvgResponseSeconds: m.AvgResponseSeconds,
		ConversionRate:     m.ConversionRate,
		ProviderMidpoint:   p.PriceMidpoint(),
		MarketMedian:       marketMedian,
		Reliability:        m.ReliabilityScore,
		Penalty:            m.RecentPenalty,
		PenaltyAppliedAt:   m.PenaltyAppliedAt,
	}
}

type Components struct {
	Tier              int     `json:"tier"`
	ResponseSpeed     int     `json:"responseSpeed"`
	Conversion        int     `json:"conversion"`
	PriceAlignment    int     `json:"priceAlignment"`
	Trust             int     `json:"trust"`
	PenaltyAdjustment float64 `json:"penaltyAdjustment"`
	Version           string  `json:"version"`
}

type Result struct {
	Score      float64    `json:"score"`
	Components Components `json:"components"`
}

// Calculate returns the standing at now. The total is clamped to [0, 100].
func Calculate(in Input, now time.Time) Result {
	c := Components{
		Tier:           tierWeight[in.Tier],
		ResponseSpeed:  responseSpeedScore(in.AvgResponseSeconds),
		Conversion:     conversionScore(in.ConversionRate),
		PriceAlignment: priceAlignmentScore(in.ProviderMidpoint, in.MarketMedian),
		Trust:          int(math.Round(math.Max(0, math.Min(100, in.Reliability)) / 100 * trustMax)),
		Version:        Version,
	}
	if decayed := DecayPenalty(in.Penalty, in.PenaltyAppliedAt, now); decayed > 0 {
		c.PenaltyAdjustment = -round2(decayed)
	}

	total := float64(c.Tier+c.ResponseSpeed+c.Conversion+c.PriceAlignment+c.Trust) + c.PenaltyAdjustment
	return Result{
		Score:      round2(math.Max(0, math.Min(maxScore, total))),
		Components: c,
	}
}

// DecayPenalty forgives PenaltyDecayPerDay of the penalty per day since it was
// applied. Without a timestamp the penalty is returned undecayed.
func DecayPenalty(penalty float64, appliedAt *time.Time, now time.Time) float64 {
	if penalty <= 0 {
		return 0
	}
	if appliedAt == nil {
		return penalty
	}
	days := now.Sub(*appliedAt).Hours() / 24
	if days <= 0 {
		return penalty
	}
	return penalty * math.Max(0, 1-PenaltyDecayPerDay*days)
}

func responseSpeedScore(avgSeconds *float64) int {
	if avgSeconds == nil {
		return responseSpeedDefault
	}
	hours := *avgSeconds / 3600
	switch {
	case hours < 1:
		return 20
	case hours < 4:
		return 18
	case hours < 12:
		return 15
	case hours < 24:
		return 12
	case hours < 48:
		return 8
	default:
		return 5
	}
}

func conversionScore(rate *float64) int {
	if rate == nil {
		return conversionDefault
	}
	switch r := *rate; {
	case r >= 50:
		return 20
	case r >= 40:
		return 18
	case r >= 30:
		return 15
	case r >= 20:
		return 12
	case r >= 10:
		return 8
	default:
		return 5
	}
}

// Proximity to the median is rewarded in either direction.
func priceAlignmentScore(midpoint, median *float64) int {
	if midpoint == nil || median == nil || *median <= 0 {
		return priceAlignmentDefault
	}
	diff := math.Abs(*midpoint-*median) / *median
	switch {
	case diff <= 0.10:
		return 15
	case diff <= 0.20:
		return 12
	case diff <= 0.30:
		return 10
	case diff <= 0.50:
		return 7
	default:
		return 5
	}
}

// Explain renders the breakdown as one sentence.
func Explain(r Result) string {
	c := r.Components
	return fmt.Sprintf(
		"Routing score %.1f: tier %d/25, response speed %d/20, conversion %d/20, price alignment %d/15, trust %d/15, penalty %.1f.",
		r.Score, c.Tier, c.ResponseSpeed, c.Conversion, c.PriceAlignment, c.Trust, c.PenaltyAdjustment,
	)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
