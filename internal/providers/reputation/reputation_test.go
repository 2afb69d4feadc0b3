package reputation

import (
	"math/rand"
	"testing"
	"time"

	"lead_routing_backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

const testCooldown = 24 * time.Hour

func seasoned() domain.ProviderMetrics {
	return domain.ProviderMetrics{
		PricingTier:      domain.TierStandard,
		ReliabilityScore: 50,
		LeadsReceived:    10,
		LeadsAccepted:    10,
		AcceptanceRate:   100,
		IsActive:         true,
	}
}

func TestThreeIgnoresDropReliabilityByThreeEach(t *testing.T) {
	m := seasoned()
	var got []float64
	for i := 0; i < 3; i++ {
		m, _ = Apply(m, Outcome{Action: domain.ActionIgnored}, repNow, testCooldown)
		got = append(got, m.ReliabilityScore)
	}

	assert.Equal(t, []float64{47, 44, 41}, got)
	assert.Equal(t, 3, m.LeadsIgnored)
	assert.Equal(t, 13, m.LeadsReceived)
	assert.InDelta(t, 23.08, m.IgnoreRate, 0.01)
	assert.Equal(t, 15.0, m.RecentPenalty)
}

func TestIgnoreRateAboveThresholdAddsExtraPenalty(t *testing.T) {
	m := seasoned()
	m.LeadsIgnored, m.LeadsAccepted, m.IgnoreRate, m.AcceptanceRate = 4, 6, 40, 60

	m, fx := Apply(m, Outcome{Action: domain.ActionIgnored}, repNow, testCooldown)
	assert.Equal(t, -8.0, fx.ReliabilityDelta)
	assert.Equal(t, 42.0, m.ReliabilityScore)
}

func TestDeclineRateAboveThresholdAddsExtraPenalty(t *testing.T) {
	m := seasoned()
	m.LeadsDeclined, m.LeadsAccepted, m.DeclineRate, m.AcceptanceRate = 6, 4, 60, 40

	m, fx := Apply(m, Outcome{Action: domain.ActionDeclined}, repNow, testCooldown)
	assert.Equal(t, -3.0, fx.ReliabilityDelta)
	assert.Equal(t, 0.0, m.RecentPenalty, "declines do not touch the penalty")
}

func TestAcceptUpdatesSpeedAndPenalty(t *testing.T) {
	m := seasoned()
	m.AvgResponseSeconds = floatPtr(3600)
	m.RecentPenalty = 6
	applied := repNow.Add(-24 * time.Hour)
	m.PenaltyAppliedAt = &applied

	m, fx := Apply(m, Outcome{Action: domain.ActionAccepted, ResponseTime: 10 * time.Minute}, repNow, testCooldown)

	assert.Equal(t, 2.0, fx.ReliabilityDelta)
	require.NotNil(t, m.AvgResponseSeconds)
	assert.InDelta(t, 0.7*3600+0.3*600, *m.AvgResponseSeconds, 1e-9)
	assert.InDelta(t, 6*0.9-2, m.RecentPenalty, 1e-9)
	assert.Equal(t, repNow, *m.PenaltyAppliedAt)

	m, fx = Apply(m, Outcome{Action: domain.ActionAccepted, ResponseTime: 3 * time.Hour}, repNow, testCooldown)
	assert.Equal(t, 1.0, fx.ReliabilityDelta, "slow accept")
}

func TestFirstAcceptSeedsSpeedAverage(t *testing.T) {
	m, _ := Apply(domain.ProviderMetrics{ReliabilityScore: 50}, Outcome{Action: domain.ActionAccepted, ResponseTime: 90 * time.Second}, repNow, testCooldown)
	require.NotNil(t, m.AvgResponseSeconds)
	assert.Equal(t, 90.0, *m.AvgResponseSeconds)
	assert.Equal(t, 100.0, m.AcceptanceRate)
}

func TestPenaltyCeilingStartsCooldownOnce(t *testing.T) {
	m := seasoned()
	m.RecentPenalty = 18
	m.PenaltyAppliedAt = &repNow

	m, fx := Apply(m, Outcome{Action: domain.ActionIgnored}, repNow, testCooldown)
	assert.Equal(t, 20.0, m.RecentPenalty)
	assert.True(t, fx.CooldownStarted)
	require.NotNil(t, m.CooldownUntil)
	assert.Equal(t, repNow.Add(testCooldown), *m.CooldownUntil)

	m, fx = Apply(m, Outcome{Action: domain.ActionIgnored}, repNow.Add(time.Minute), testCooldown)
	assert.False(t, fx.CooldownStarted, "already cooling down")
	assert.Equal(t, repNow.Add(testCooldown), *m.CooldownUntil)
}

func TestApplyConversion(t *testing.T) {
	m := seasoned()
	m = ApplyConversion(m)
	require.NotNil(t, m.ConversionRate)
	assert.Equal(t, 10.0, *m.ConversionRate)

	m = ApplyConversion(domain.ProviderMetrics{})
	assert.Equal(t, 100.0, *m.ConversionRate, "never above 100")
}

func TestReliabilityAndPenaltyStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	actions := []domain.ResponseAction{domain.ActionAccepted, domain.ActionDeclined, domain.ActionIgnored}

	m := domain.ProviderMetrics{ReliabilityScore: 50}
	now := repNow
	for i := 0; i < 2000; i++ {
		now = now.Add(time.Duration(rng.Intn(72)) * time.Hour)
		o := Outcome{
			Action:       actions[rng.Intn(len(actions))],
			ResponseTime: time.Duration(rng.Intn(6*3600)) * time.Second,
		}
		m, _ = Apply(m, o, now, testCooldown)

		require.GreaterOrEqual(t, m.ReliabilityScore, 0.0)
		require.LessOrEqual(t, m.ReliabilityScore, float64(MaxReliability))
		require.GreaterOrEqual(t, m.RecentPenalty, 0.0)
		require.LessOrEqual(t, m.RecentPenalty, float64(MaxPenalty))
	}
	assert.Equal(t, 2000, m.LeadsReceived)
	assert.Equal(t, m.LeadsReceived, m.LeadsAccepted+m.LeadsDeclined+m.LeadsIgnored)
}

func floatPtr(v float64) *float64 { return &v }
