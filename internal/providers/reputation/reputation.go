// Package reputation folds one assignment outcome into a provider's rolling
// metrics. It is pure; persistence and locking belong to the caller.
package reputation

import (
	"math"
	"time"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/internal/providers/standing"
)

const (
	MaxReliability = 100
	MaxPenalty     = 20

	fastResponse = time.Hour

	// Rate-based extras need this many prior leads before a rate means anything.
	minSampleForRates = 5

	declineRateThreshold = 50
	ignoreRateThreshold  = 30

	speedWeightOld = 0.7
	speedWeightNew = 0.3
)

// Outcome is one terminal assignment response.
type Outcome struct {
	Action       domain.ResponseAction
	ResponseTime time.Duration
}

// Effects reports side effects the caller must publish.
type Effects struct {
	ReliabilityDelta float64
	CooldownStarted  bool
}

// Apply returns m updated for outcome at now. Rate thresholds are judged on
// the rates before this outcome is counted.
func Apply(m domain.ProviderMetrics, o Outcome, now time.Time, cooldown time.Duration) (domain.ProviderMetrics, Effects) {
	priorReceived := m.LeadsReceived
	priorDeclineRate := m.DeclineRate
	priorIgnoreRate := m.IgnoreRate
	fast := o.ResponseTime >= 0 && o.ResponseTime < fastResponse

	m.LeadsReceived++
	var delta float64
	switch o.Action {
	case domain.ActionAccepted:
		m.LeadsAccepted++
		delta = 1
		if fast {
			delta = 2
		}
		sample := math.Max(0, o.ResponseTime.Seconds())
		if m.AvgResponseSeconds == nil {
			m.AvgResponseSeconds = &sample
		} else {
			old := *m.AvgResponseSeconds
			blended := speedWeightOld*old + speedWeightNew*sample
			m.AvgResponseSeconds = &blended
		}
	case domain.ActionDeclined:
		m.LeadsDeclined++
		delta = -1
		if priorReceived >= minSampleForRates && priorDeclineRate > declineRateThreshold {
			delta -= 2
		}
	case domain.ActionIgnored:
		m.LeadsIgnored++
		delta = -3
		if priorReceived >= minSampleForRates && priorIgnoreRate > ignoreRateThreshold {
			delta -= 5
		}
	}
	recomputeRates(&m)

	m.ReliabilityScore = clamp(m.ReliabilityScore+delta, 0, MaxReliability)

	var fx Effects
	fx.ReliabilityDelta = delta

	var penaltyDelta float64
	switch {
	case o.Action == domain.ActionIgnored:
		penaltyDelta = 5
	case o.Action == domain.ActionAccepted && fast:
		penaltyDelta = -2
	}
	if penaltyDelta != 0 {
		current := standing.DecayPenalty(m.RecentPenalty, m.PenaltyAppliedAt, now)
		m.RecentPenalty = round2(clamp(current+penaltyDelta, 0, MaxPenalty))
		appliedAt := now
		m.PenaltyAppliedAt = &appliedAt
	}

	if m.RecentPenalty >= MaxPenalty && !m.OnCooldown(now) && cooldown > 0 {
		until := now.Add(cooldown)
		m.CooldownUntil = &until
		fx.CooldownStarted = true
	}

	return m, fx
}

// ApplyConversion counts a confirmed booking.
func ApplyConversion(m domain.ProviderMetrics) domain.ProviderMetrics {
	m.LeadsConverted++
	base := max(m.LeadsReceived, m.LeadsConverted)
	rate := round2(float64(m.LeadsConverted) / float64(base) * 100)
	m.ConversionRate = &rate
	return m
}

func recomputeRates(m *domain.ProviderMetrics) {
	if m.LeadsReceived == 0 {
		m.AcceptanceRate, m.DeclineRate, m.IgnoreRate = 0, 0, 0
		return
	}
	total := float64(m.LeadsReceived)
	m.AcceptanceRate = round2(float64(m.LeadsAccepted) / total * 100)
	m.DeclineRate = round2(float64(m.LeadsDeclined) / total * 100)
	m.IgnoreRate = round2(float64(m.LeadsIgnored) / total * 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
