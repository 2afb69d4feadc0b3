package transport

import "time"

type RespondRequest struct {
	Action string `json:"action" validate:"required,responseaction"`
}

type ConfirmBookingRequest struct {
	ProviderID string `json:"providerId" validate:"required,uuid"`
}

type ListAssignmentsQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=pending accepted declined ignored"`
}

type AssignmentResponse struct {
	ID                       string     `json:"id"`
	LeadID                   string     `json:"leadId"`
	ProviderID               string     `json:"providerId"`
	EventDate                string     `json:"eventDate"`
	Phase                    string     `json:"phase"`
	PhaseStartedAt           time.Time  `json:"phaseStartedAt"`
	ResponseStatus           string     `json:"responseStatus"`
	RespondedAt              *time.Time `json:"respondedAt,omitempty"`
	ResponseTimeSeconds      *int       `json:"responseTimeSeconds,omitempty"`
	RoutingScoreAtAssignment float64    `json:"routingScoreAtAssignment"`
	NotifiedAt               *time.Time `json:"notifiedAt,omitempty"`
	CreatedAt                time.Time  `json:"createdAt"`
}

// RoutingStepResponse reports what one routing step did to a lead.
type RoutingStepResponse struct {
	LeadID       string               `json:"leadId"`
	RoutingState string               `json:"routingState"`
	Phase        *string              `json:"phase,omitempty"`
	Assigned     []AssignmentResponse `json:"assigned"`
	Escalated    int                  `json:"escalated,omitempty"`
	Withdrawn    int                  `json:"withdrawn,omitempty"`
	Expired      int                  `json:"expired,omitempty"`
	Skipped      string               `json:"skipped,omitempty"`
}

type RespondResponse struct {
	Assignment    AssignmentResponse `json:"assignment"`
	LeadState     string             `json:"leadState"`
	ReleasedLocks int                `json:"releasedLocks"`
}
