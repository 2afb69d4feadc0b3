// Package domain holds the entities and closed enumerations shared by the
// routing pipeline. Every enum has a Parse function that rejects unknown
// values instead of falling back to a default.
package domain

import "fmt"

// RoutingState is the lifecycle state of a lead.
type RoutingState string

const (
	StateScoring   RoutingState = "scoring"
	StateRouting   RoutingState = "routing"
	StateResponded RoutingState = "responded"
	StateConverted RoutingState = "converted"
	// StateUnmatched is terminal: every assignment ended without an acceptance,
	// or no provider was eligible at all.
	StateUnmatched RoutingState = "unmatched"
)

func (s RoutingState) IsValid() bool {
	switch s {
	case StateScoring, StateRouting, StateResponded, StateConverted, StateUnmatched:
		return true
	}
	return false
}

// IsTerminal reports whether no further routing may happen for the lead.
func (s RoutingState) IsTerminal() bool {
	return s == StateConverted || s == StateUnmatched
}

func ParseRoutingState(v string) (RoutingState, error) {
	return parse(RoutingState(v), "routing state")
}

// Phase is the visibility window an assignment belongs to.
type Phase string

const (
	PhaseExclusive Phase = "exclusive"
	PhaseShared    Phase = "shared"
)

func (p Phase) IsValid() bool {
	return p == PhaseExclusive || p == PhaseShared
}

func ParsePhase(v string) (Phase, error) {
	return parse(Phase(v), "phase")
}

// ResponseStatus is the state of a single assignment. Every value other
// than pending is terminal.
type ResponseStatus string

const (
	ResponsePending  ResponseStatus = "pending"
	ResponseAccepted ResponseStatus = "accepted"
	ResponseDeclined ResponseStatus = "declined"
	ResponseIgnored  ResponseStatus = "ignored"
)

func (s ResponseStatus) IsValid() bool {
	switch s {
	case ResponsePending, ResponseAccepted, ResponseDeclined, ResponseIgnored:
		return true
	}
	return false
}

func (s ResponseStatus) IsTerminal() bool {
	return s.IsValid() && s != ResponsePending
}

func ParseResponseStatus(v string) (ResponseStatus, error) {
	return parse(ResponseStatus(v), "response status")
}

// ResponseAction is what a provider (or the expiry job) does with an assignment.
type ResponseAction string

const (
	ActionAccepted ResponseAction = "accepted"
	ActionDeclined ResponseAction = "declined"
	ActionIgnored  ResponseAction = "ignored"
)

func (a ResponseAction) IsValid() bool {
	switch a {
	case ActionAccepted, ActionDeclined, ActionIgnored:
		return true
	}
	return false
}

// Status returns the terminal assignment status the action produces.
func (a ResponseAction) Status() ResponseStatus {
	return ResponseStatus(a)
}

func ParseResponseAction(v string) (ResponseAction, error) {
	return parse(ResponseAction(v), "response action")
}

// AvailabilityStatus is a provider's declared status for one calendar date.
type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "available"
	AvailabilityTentative   AvailabilityStatus = "tentative"
	AvailabilityUnavailable AvailabilityStatus = "unavailable"
)

func (s AvailabilityStatus) IsValid() bool {
	switch s {
	case AvailabilityAvailable, AvailabilityTentative, AvailabilityUnavailable:
		return true
	}
	return false
}

// Bookable reports whether a slot in this status may be locked for routing.
func (s AvailabilityStatus) Bookable() bool {
	return s == AvailabilityAvailable || s == AvailabilityTentative
}

func ParseAvailabilityStatus(v string) (AvailabilityStatus, error) {
	return parse(AvailabilityStatus(v), "availability status")
}

type PricingTier string

const (
	TierPremium  PricingTier = "premium"
	TierStandard PricingTier = "standard"
	TierBudget   PricingTier = "budget"
)

func (t PricingTier) IsValid() bool {
	switch t {
	case TierPremium, TierStandard, TierBudget:
		return true
	}
	return false
}

func ParsePricingTier(v string) (PricingTier, error) {
	return parse(PricingTier(v), "pricing tier")
}

type EventType string

const (
	EventWedding      EventType = "wedding"
	EventCorporate    EventType = "corporate"
	EventPrivateParty EventType = "private_party"
	EventHolidayParty EventType = "holiday_party"
	EventSchoolDance  EventType = "school_dance"
	EventOther        EventType = "other"
)

// EventTypes lists every supported event type.
var EventTypes = []EventType{
	EventWedding, EventCorporate, EventPrivateParty, EventHolidayParty, EventSchoolDance, EventOther,
}

func (e EventType) IsValid() bool {
	for _, known := range EventTypes {
		if e == known {
			return true
		}
	}
	return false
}

func ParseEventType(v string) (EventType, error) {
	return parse(EventType(v), "event type")
}

// MarketTension is the aggregator's categorical demand/supply bucket.
type MarketTension string

const (
	TensionHigh   MarketTension = "high"
	TensionMedium MarketTension = "medium"
	TensionLow    MarketTension = "low"
)

func (m MarketTension) IsValid() bool {
	return m == TensionHigh || m == TensionMedium || m == TensionLow
}

func ParseMarketTension(v string) (MarketTension, error) {
	return parse(MarketTension(v), "market tension")
}

type DataQuality string

const (
	QualityHigh   DataQuality = "high"
	QualityMedium DataQuality = "medium"
	QualityLow    DataQuality = "low"
)

func (q DataQuality) IsValid() bool {
	return q == QualityHigh || q == QualityMedium || q == QualityLow
}

func ParseDataQuality(v string) (DataQuality, error) {
	return parse(DataQuality(v), "data quality")
}

type LeadQuality string

const (
	LeadQualityHigh   LeadQuality = "high"
	LeadQualityMedium LeadQuality = "medium"
	LeadQualityLow    LeadQuality = "low"
)

func (q LeadQuality) IsValid() bool {
	return q == LeadQualityHigh || q == LeadQualityMedium || q == LeadQualityLow
}

type LeadTemperature string

const (
	TemperatureHot  LeadTemperature = "hot"
	TemperatureWarm LeadTemperature = "warm"
	TemperatureCold LeadTemperature = "cold"
)

func (t LeadTemperature) IsValid() bool {
	return t == TemperatureHot || t == TemperatureWarm || t == TemperatureCold
}

type validatable interface {
	~string
	IsValid() bool
}

func parse[T validatable](v T, kind string) (T, error) {
	if !v.IsValid() {
		var zero T
		return zero, fmt.Errorf("unknown %s %q", kind, string(v))
	}
	return v, nil
}
