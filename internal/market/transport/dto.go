package transport

import "lead_routing_backend/internal/market/service"

type PricingQuery struct {
	City      string `form:"city" validate:"required,min=2,max=100"`
	State     string `form:"state" validate:"omitempty,max=50"`
	EventType string `form:"eventType" validate:"required,eventtype"`
	// ProviderMidpoint, when given, adds a market position insight.
	ProviderMidpoint *float64 `form:"providerMidpoint" validate:"omitempty,gt=0"`
}

type PositionResponse struct {
	Position    string  `json:"position"`
	DiffPercent float64 `json:"diffPercent"`
	Message     string  `json:"message"`
}

type PricingResponse struct {
	City              string            `json:"city"`
	State             string            `json:"state"`
	EventType         string            `json:"eventType"`
	Low               float64           `json:"low"`
	Median            float64           `json:"median"`
	High              float64           `json:"high"`
	SampleSize        int               `json:"sampleSize"`
	DataQuality       string            `json:"dataQuality"`
	DemandSupplyRatio *float64          `json:"demandSupplyRatio,omitempty"`
	MarketTension     *string           `json:"marketTension,omitempty"`
	FormattedRange    string            `json:"formattedRange"`
	SuggestedMin      float64           `json:"suggestedMin"`
	SuggestedMax      float64           `json:"suggestedMax"`
	Position          *PositionResponse `json:"position,omitempty"`
}

type ImportStatsRequest struct {
	Stats []service.StatsRecord `json:"stats" validate:"required,min=1,max=1000,dive"`
}
