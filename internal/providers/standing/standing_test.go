package standing

import (
	"testing"
	"time"

	"lead_routing_backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

var standingNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestPenaltyDecaysTenPercentPerDay(t *testing.T) {
	applied := standingNow.Add(-5 * 24 * time.Hour)

	assert.InDelta(t, 5.0, DecayPenalty(10, &applied, standingNow), 1e-9)
	assert.Equal(t, 10.0, DecayPenalty(10, nil, standingNow), "no timestamp, no decay")

	longAgo := standingNow.Add(-30 * 24 * time.Hour)
	assert.Equal(t, 0.0, DecayPenalty(10, &longAgo, standingNow))
}

func TestCalculateWithDecayedPenalty(t *testing.T) {
	applied := standingNow.Add(-5 * 24 * time.Hour)
	res := Calculate(Input{
		Tier:               domain.TierStandard,
		AvgResponseSeconds: ptr(1800.0),
		ConversionRate:     ptr(35.0),
		ProviderMidpoint:   ptr(1800.0),
		MarketMedian:       ptr(1700.0),
		Reliability:        80,
		Penalty:            10,
		PenaltyAppliedAt:   &applied,
	}, standingNow)

	assert.Equal(t, 20, res.Components.Tier)
	assert.Equal(t, 20, res.Components.ResponseSpeed)
	assert.Equal(t, 15, res.Components.Conversion)
	assert.Equal(t, 15, res.Components.PriceAlignment)
	assert.Equal(t, 12, res.Components.Trust)
	assert.Equal(t, -5.0, res.Components.PenaltyAdjustment)
	assert.Equal(t, 77.0, res.Score)
}

func TestCalculateMissingDataUsesDefaults(t *testing.T) {
	res := Calculate(Input{Tier: domain.TierBudget, Reliability: 50}, standingNow)

	assert.Equal(t, 15, res.Components.Tier)
	assert.Equal(t, 10, res.Components.ResponseSpeed)
	assert.Equal(t, 10, res.Components.Conversion)
	assert.Equal(t, 10, res.Components.PriceAlignment)
	assert.Equal(t, 8, res.Components.Trust)
	assert.Equal(t, 53.0, res.Score)
}

func TestCalculateStaysWithinBounds(t *testing.T) {
	best := Calculate(Input{
		Tier:               domain.TierPremium,
		AvgResponseSeconds: ptr(60.0),
		ConversionRate:     ptr(90.0),
		ProviderMidpoint:   ptr(1000.0),
		MarketMedian:       ptr(1000.0),
		Reliability:        150,
	}, standingNow)
	assert.Equal(t, 95.0, best.Score, "component maxima sum to 95")

	worst := Calculate(Input{
		Tier:               domain.TierBudget,
		AvgResponseSeconds: ptr(200000.0),
		ConversionRate:     ptr(0.0),
		ProviderMidpoint:   ptr(5000.0),
		MarketMedian:       ptr(1000.0),
		Reliability:        0,
		Penalty:            20,
	}, standingNow)
	assert.Equal(t, 10.0, worst.Score)
	assert.GreaterOrEqual(t, worst.Score, 0.0)
}

func TestResponseSpeedBands(t *testing.T) {
	cases := map[float64]int{
		0.5 * 3600: 20,
		3 * 3600:   18,
		11 * 3600:  15,
		23 * 3600:  12,
		47 * 3600:  8,
		72 * 3600:  5,
	}
	for seconds, want := range cases {
		assert.Equal(t, want, responseSpeedScore(ptr(seconds)), "seconds=%v", seconds)
	}
}

func TestExplain(t *testing.T) {
	res := Calculate(Input{Tier: domain.TierBudget, Reliability: 50}, standingNow)
	assert.Equal(t,
		"Routing score 53.0: tier 15/25, response speed 10/20, conversion 10/20, price alignment 10/15, trust 8/15, penalty 0.0.",
		Explain(res))
}
