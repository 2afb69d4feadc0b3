package transport

import "time"

type StandingComponentsResponse struct {
	Tier              int     `json:"tier"`
	ResponseSpeed     int     `json:"responseSpeed"`
	Conversion        int     `json:"conversion"`
	PriceAlignment    int     `json:"priceAlignment"`
	Trust             int     `json:"trust"`
	PenaltyAdjustment float64 `json:"penaltyAdjustment"`
}

type StandingResponse struct {
	ProviderID       string                     `json:"providerId"`
	Name             string                     `json:"name"`
	PricingTier      string                     `json:"pricingTier"`
	RoutingScore     float64                    `json:"routingScore"`
	Components       StandingComponentsResponse `json:"components"`
	Summary          string                     `json:"summary"`
	ReliabilityScore float64                    `json:"reliabilityScore"`
	RecentPenalty    float64                    `json:"recentPenalty"`
	LeadsReceived    int                        `json:"leadsReceived"`
	AcceptanceRate   float64                    `json:"acceptanceRate"`
	DeclineRate      float64                    `json:"declineRate"`
	IgnoreRate       float64                    `json:"ignoreRate"`
	ConversionRate   *float64                   `json:"conversionRate,omitempty"`
	IsSuspended      bool                       `json:"isSuspended"`
	CooldownUntil    *time.Time                 `json:"cooldownUntil,omitempty"`
	ScoreUpdatedAt   *time.Time                 `json:"scoreUpdatedAt,omitempty"`
}

type RescoreAllResponse struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type SuspensionRequest struct {
	Suspended *bool `json:"suspended" validate:"required"`
}
