package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Lead is one inbound service request.
type Lead struct {
	ID                  uuid.UUID
	Email               string
	Phone               *string
	PhoneLookupHash     *string
	ContactName         *string
	EventType           EventType
	EventDate           *time.Time
	EventTime           *string
	IsLastMinute        bool
	City                string
	State               string
	BudgetMin           *float64
	BudgetMax           *float64
	BudgetMidpoint      *float64
	GuestCount          *int
	VenueName           *string
	VenueAddress        *string
	Notes               *string
	FormCompleteness    float64
	LeadScore           *int
	ScoringComponents   []byte
	Quality             *LeadQuality
	Temperature         *LeadTemperature
	RoutingState        RoutingState
	RoutingPhase        *Phase
	FirstResponseAt     *time.Time
	ConvertedProviderID *uuid.UUID
	ConvertedAt         *time.Time
	UnmatchedAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasBudget reports whether both ends of the budget range are known.
func (l Lead) HasBudget() bool {
	return l.BudgetMin != nil && l.BudgetMax != nil
}

// ProviderProfile is the static part of a provider used for eligibility.
type ProviderProfile struct {
	ID           uuid.UUID
	Name         string
	Email        string
	City         string
	State        string
	ServiceAreas []string
	PriceMin     *float64
	PriceMax     *float64
	CreatedAt    time.Time
}

// PriceMidpoint returns the middle of the provider's price range, or nil when
// the range is incomplete.
func (p ProviderProfile) PriceMidpoint() *float64 {
	if p.PriceMin == nil || p.PriceMax == nil {
		return nil
	}
	mid := (*p.PriceMin + *p.PriceMax) / 2
	return &mid
}

// ProviderMetrics is the rolling behavioural record of one provider.
type ProviderMetrics struct {
	ProviderID         uuid.UUID
	PricingTier        PricingTier
	AvgResponseSeconds *float64
	ConversionRate     *float64
	ReliabilityScore   float64
	RecentPenalty      float64
	PenaltyAppliedAt   *time.Time
	LeadsReceived      int
	LeadsAccepted      int
	LeadsDeclined      int
	LeadsIgnored       int
	LeadsConverted     int
	AcceptanceRate     float64
	DeclineRate        float64
	IgnoreRate         float64
	RoutingScore       float64
	ScoreComponents    []byte
	ScoreUpdatedAt     *time.Time
	IsActive           bool
	IsSuspended        bool
	CooldownUntil      *time.Time
}

// OnCooldown reports whether the provider is excluded from routing at now.
func (m ProviderMetrics) OnCooldown(now time.Time) bool {
	return m.CooldownUntil != nil && m.CooldownUntil.After(now)
}

// Candidate is a provider together with the metrics eligibility ranks on.
type Candidate struct {
	Profile ProviderProfile
	Metrics ProviderMetrics
}

// Availability is one provider calendar day.
type Availability struct {
	ProviderID     uuid.UUID
	Date           time.Time
	Status         AvailabilityStatus
	LockedUntil    *time.Time
	LockedByLeadID *uuid.UUID
}

// Open reports whether the slot can be taken at now: bookable status and no
// unexpired lock. An expired lock is indistinguishable from none.
func (a Availability) Open(now time.Time) bool {
	if !a.Status.Bookable() {
		return false
	}
	return a.LockedUntil == nil || !a.LockedUntil.After(now)
}

// Assignment pairs a lead with one provider within a routing phase.
type Assignment struct {
	ID                       uuid.UUID
	LeadID                   uuid.UUID
	ProviderID               uuid.UUID
	EventDate                time.Time
	Phase                    Phase
	PhaseStartedAt           time.Time
	ResponseStatus           ResponseStatus
	RespondedAt              *time.Time
	ResponseTimeSeconds      *int
	RoutingScoreAtAssignment float64
	NotifiedAt               *time.Time
	CreatedAt                time.Time
}

// CityEventStats is the aggregator's read-only market snapshot.
type CityEventStats struct {
	City              string         `json:"city"`
	State             string         `json:"state"`
	EventType         EventType      `json:"eventType"`
	PriceLow          float64        `json:"priceLow"`
	PriceMedian       float64        `json:"priceMedian"`
	PriceHigh         float64        `json:"priceHigh"`
	SampleSize        int            `json:"sampleSize"`
	DataQuality       DataQuality    `json:"dataQuality"`
	DemandSupplyRatio *float64       `json:"demandSupplyRatio,omitempty"`
	MarketTension     *MarketTension `json:"marketTension,omitempty"`
	ComputedAt        time.Time      `json:"computedAt"`
}

// DateOnly truncates t to its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
