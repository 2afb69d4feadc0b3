package scoring

import (
	"math/rand/v2"
	"testing"
	"time"

	"lead_routing_backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scoringNow = time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func highTensionMarket(median float64) *domain.CityEventStats {
	return &domain.CityEventStats{
		PriceMedian:   median,
		SampleSize:    40,
		DataQuality:   domain.QualityHigh,
		MarketTension: ptr(domain.TensionHigh),
	}
}

func TestScoreWeddingNearMedianScores89(t *testing.T) {
	in := Input{
		BudgetMin:        ptr(1500.0),
		BudgetMax:        ptr(2000.0),
		EventType:        domain.EventWedding,
		EventDate:        ptr(scoringNow.AddDate(0, 0, 20)),
		FormCompleteness: 0.9,
		Market:           highTensionMarket(1700),
	}

	res := Score(in, scoringNow)

	assert.Equal(t, 20, res.Components.Budget)
	assert.Equal(t, 25, res.Components.Urgency)
	assert.Equal(t, 14, res.Components.Completeness, "0.9*15=13.5 rounds up")
	assert.Equal(t, 20, res.Components.Demand)
	assert.Equal(t, 10, res.Components.EventType)
	assert.Equal(t, 89, res.Score)
	assert.Equal(t, domain.LeadQualityHigh, res.Quality)
	assert.Equal(t, domain.TemperatureHot, res.Temperature)
	require.NotNil(t, res.Components.DaysUntilEvent)
	assert.Equal(t, 20, *res.Components.DaysUntilEvent)
	assert.Equal(t,
		"Lead score 89/100 (high quality, hot): budget 20/30, urgency 25/25, completeness 14/15, demand 20/20, event type 10/10.",
		Explain(res))
}

func TestScoreMissingInputsUseNeutralDefaults(t *testing.T) {
	res := Score(Input{EventType: domain.EventOther}, scoringNow)

	assert.Equal(t, 15, res.Components.Budget)
	assert.Equal(t, 10, res.Components.Urgency)
	assert.Equal(t, 0, res.Components.Completeness)
	assert.Equal(t, 10, res.Components.Demand)
	assert.Equal(t, 5, res.Components.EventType)
	assert.Equal(t, 40, res.Score)
	assert.Nil(t, res.Components.BudgetDiffPct)
}

func TestBudgetBands(t *testing.T) {
	cases := []struct {
		name     string
		midpoint float64
		want     int
	}{
		{"far above", 1300, 30},
		{"above", 1100, 25},
		{"within five percent below", 960, 20},
		{"moderately below", 850, 15},
		{"well below", 650, 12},
		{"floor", 300, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := Input{
				BudgetMin: ptr(tc.midpoint),
				BudgetMax: ptr(tc.midpoint),
				EventType: domain.EventCorporate,
				Market:    highTensionMarket(1000),
			}
			assert.Equal(t, tc.want, Score(in, scoringNow).Components.Budget)
		})
	}
}

func TestUrgencyBands(t *testing.T) {
	for days, want := range map[int]int{5: 25, 45: 20, 75: 15, 120: 12, 400: 8} {
		in := Input{EventType: domain.EventOther, EventDate: ptr(scoringNow.AddDate(0, 0, days))}
		assert.Equal(t, want, Score(in, scoringNow).Components.Urgency, "days=%d", days)
	}

	lastMinute := Input{EventType: domain.EventOther, EventDate: ptr(scoringNow.AddDate(0, 0, 200)), IsLastMinute: true}
	assert.Equal(t, 25, Score(lastMinute, scoringNow).Components.Urgency)
}

func TestDemandPrefersTensionOverRatio(t *testing.T) {
	market := &domain.CityEventStats{PriceMedian: 1000, MarketTension: ptr(domain.TensionLow), DemandSupplyRatio: ptr(3.0)}
	assert.Equal(t, 10, Score(Input{EventType: domain.EventOther, Market: market}, scoringNow).Components.Demand)

	market.MarketTension = nil
	assert.Equal(t, 20, Score(Input{EventType: domain.EventOther, Market: market}, scoringNow).Components.Demand)

	market.DemandSupplyRatio = ptr(1.2)
	assert.Equal(t, 15, Score(Input{EventType: domain.EventOther, Market: market}, scoringNow).Components.Demand)
}

func TestScoreStaysWithinBoundsAndIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	tensions := []*domain.MarketTension{nil, ptr(domain.TensionHigh), ptr(domain.TensionMedium), ptr(domain.TensionLow)}

	for range 500 {
		in := Input{
			EventType:        domain.EventTypes[rng.IntN(len(domain.EventTypes))],
			FormCompleteness: rng.Float64()*1.4 - 0.2,
			IsLastMinute:     rng.IntN(5) == 0,
		}
		if rng.IntN(4) > 0 {
			lo := rng.Float64() * 5000
			in.BudgetMin, in.BudgetMax = ptr(lo), ptr(lo+rng.Float64()*3000)
		}
		if rng.IntN(4) > 0 {
			in.EventDate = ptr(scoringNow.AddDate(0, 0, rng.IntN(500)-10))
		}
		if rng.IntN(3) > 0 {
			in.Market = &domain.CityEventStats{
				PriceMedian:       rng.Float64() * 4000,
				MarketTension:     tensions[rng.IntN(len(tensions))],
				DemandSupplyRatio: ptr(rng.Float64() * 3),
			}
		}

		res := Score(in, scoringNow)
		c := res.Components
		require.GreaterOrEqual(t, res.Score, 0)
		require.LessOrEqual(t, res.Score, 100)
		require.True(t, c.Budget >= 10 && c.Budget <= 30, "budget %d", c.Budget)
		require.True(t, c.Urgency >= 8 && c.Urgency <= 25, "urgency %d", c.Urgency)
		require.True(t, c.Completeness >= 0 && c.Completeness <= 15, "completeness %d", c.Completeness)
		require.True(t, c.Demand >= 10 && c.Demand <= 20, "demand %d", c.Demand)
		require.True(t, c.EventType >= 5 && c.EventType <= 10, "event type %d", c.EventType)
		require.Equal(t, res, Score(in, scoringNow))
	}
}

func TestCompleteness(t *testing.T) {
	assert.InDelta(t, 1.0, Completeness(7, 7, 6, 6), 1e-9)
	assert.InDelta(t, 0.9, Completeness(7, 7, 4, 6), 1e-9)
	assert.InDelta(t, 0.7, Completeness(7, 7, 0, 6), 1e-9)
	assert.Equal(t, 0.0, Completeness(0, 0, 0, 0))

	lead := domain.Lead{
		Email:     "a@b.co",
		EventType: domain.EventWedding,
		EventDate: ptr(scoringNow),
		City:      "Austin",
		State:     "TX",
		BudgetMin: ptr(1000.0),
		BudgetMax: ptr(2000.0),
		Notes:     ptr("   "),
		Phone:     ptr("+12015550123"),
	}
	assert.InDelta(t, 7.5/10.0, LeadCompleteness(lead), 1e-9)
}
