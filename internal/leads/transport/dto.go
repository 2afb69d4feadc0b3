package transport

import "time"

// SubmitLeadRequest is the validated intake payload from the public form.
type SubmitLeadRequest struct {
	Email        string   `json:"email" validate:"required,email,max=254"`
	Phone        string   `json:"phone" validate:"omitempty,min=7,max=32"`
	ContactName  string   `json:"contactName" validate:"omitempty,max=120"`
	EventType    string   `json:"eventType" validate:"required,eventtype"`
	EventDate    string   `json:"eventDate" validate:"required,isodate"`
	EventTime    string   `json:"eventTime" validate:"omitempty,max=32"`
	IsLastMinute bool     `json:"isLastMinute"`
	City         string   `json:"city" validate:"required,min=2,max=100"`
	State        string   `json:"state" validate:"required,min=2,max=50"`
	BudgetMin    *float64 `json:"budgetMin" validate:"omitempty,gte=0"`
	BudgetMax    *float64 `json:"budgetMax" validate:"omitempty,gte=0"`
	GuestCount   *int     `json:"guestCount" validate:"omitempty,gte=1,lte=100000"`
	VenueName    string   `json:"venueName" validate:"omitempty,max=200"`
	VenueAddress string   `json:"venueAddress" validate:"omitempty,max=300"`
	Notes        string   `json:"notes" validate:"omitempty,max=4000"`
}

type SubmitLeadResponse struct {
	LeadID      string `json:"leadId"`
	LeadScore   int    `json:"leadScore"`
	Quality     string `json:"quality"`
	Temperature string `json:"temperature"`
}

type ScoreComponentsResponse struct {
	Budget         int      `json:"budget"`
	Urgency        int      `json:"urgency"`
	Completeness   int      `json:"completeness"`
	Demand         int      `json:"demand"`
	EventType      int      `json:"eventType"`
	BudgetDiffPct  *float64 `json:"budgetDiffPct,omitempty"`
	DaysUntilEvent *int     `json:"daysUntilEvent,omitempty"`
	Version        string   `json:"version"`
}

type ScoreExplanationResponse struct {
	LeadID      string                  `json:"leadId"`
	LeadScore   int                     `json:"leadScore"`
	Quality     string                  `json:"quality"`
	Temperature string                  `json:"temperature"`
	Components  ScoreComponentsResponse `json:"components"`
	Summary     string                  `json:"summary"`
}

type LeadResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Phone            *string    `json:"phone,omitempty"`
	ContactName      *string    `json:"contactName,omitempty"`
	EventType        string     `json:"eventType"`
	EventDate        *string    `json:"eventDate,omitempty"`
	City             string     `json:"city"`
	State            string     `json:"state"`
	BudgetMin        *float64   `json:"budgetMin,omitempty"`
	BudgetMax        *float64   `json:"budgetMax,omitempty"`
	BudgetMidpoint   *float64   `json:"budgetMidpoint,omitempty"`
	GuestCount       *int       `json:"guestCount,omitempty"`
	FormCompleteness float64    `json:"formCompleteness"`
	LeadScore        *int       `json:"leadScore,omitempty"`
	RoutingState     string     `json:"routingState"`
	RoutingPhase     *string    `json:"routingPhase,omitempty"`
	FirstResponseAt  *time.Time `json:"firstResponseAt,omitempty"`
	ConvertedAt      *time.Time `json:"convertedAt,omitempty"`
	UnmatchedAt      *time.Time `json:"unmatchedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}
