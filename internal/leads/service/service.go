// Package service implements lead intake: normalization, persistence,
// scoring against market data, and the hand-off into routing.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/internal/events"
	"lead_routing_backend/internal/leads/repository"
	"lead_routing_backend/internal/leads/scoring"
	"lead_routing_backend/internal/leads/transport"
	"lead_routing_backend/platform/apperr"
	"lead_routing_backend/platform/logger"
	"lead_routing_backend/platform/phone"
	"lead_routing_backend/platform/sanitize"

	"github.com/google/uuid"
)

// PricingReader is the market statistics lookup scoring depends on.
type PricingReader interface {
	GetCityPricing(ctx context.Context, city string, eventType domain.EventType, state string) (*domain.CityEventStats, error)
}

// Options carries intake settings that come from configuration.
type Options struct {
	PhoneHashKey []byte
	PhoneRegion  string
	Now          func() time.Time
}

type Service struct {
	repo    repository.LeadStore
	pricing PricingReader
	bus     events.Bus
	log     *logger.Logger
	opts    Options
}

func New(repo repository.LeadStore, pricing PricingReader, bus events.Bus, log *logger.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{repo: repo, pricing: pricing, bus: bus, log: log, opts: opts}
}

// SubmitLead persists a new lead, scores it and moves it into routing.
// Market lookups that fail are scored as insufficient data rather than
// rejecting the lead.
func (s *Service) SubmitLead(ctx context.Context, req transport.SubmitLeadRequest) (transport.SubmitLeadResponse, error) {
	params, err := s.buildCreateParams(req)
	if err != nil {
		return transport.SubmitLeadResponse{}, err
	}

	leadID, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.SubmitLeadResponse{}, err
	}

	market, err := s.pricing.GetCityPricing(ctx, params.City, params.EventType, params.State)
	if err != nil {
		s.log.WithContext(ctx).Warn("market pricing unavailable, scoring with defaults", "leadId", leadID, "error", err)
		market = nil
	}

	result := scoring.Score(scoring.Input{
		BudgetMin:        params.BudgetMin,
		BudgetMax:        params.BudgetMax,
		EventType:        params.EventType,
		EventDate:        params.EventDate,
		IsLastMinute:     params.IsLastMinute,
		FormCompleteness: params.FormCompleteness,
		Market:           market,
	}, s.opts.Now())

	components, err := json.Marshal(result.Components)
	if err != nil {
		return transport.SubmitLeadResponse{}, fmt.Errorf("encode score components: %w", err)
	}

	if err := s.repo.SaveScore(ctx, repository.SaveScoreParams{
		LeadID:      leadID,
		Score:       result.Score,
		Components:  components,
		Quality:     result.Quality,
		Temperature: result.Temperature,
	}); err != nil {
		return transport.SubmitLeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadScored{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      leadID,
		LeadScore:   result.Score,
		Quality:     result.Quality,
		Temperature: result.Temperature,
	})

	return transport.SubmitLeadResponse{
		LeadID:      leadID.String(),
		LeadScore:   result.Score,
		Quality:     string(result.Quality),
		Temperature: string(result.Temperature),
	}, nil
}

func (s *Service) buildCreateParams(req transport.SubmitLeadRequest) (repository.CreateLeadParams, error) {
	eventType, err := domain.ParseEventType(req.EventType)
	if err != nil {
		return repository.CreateLeadParams{}, apperr.Validation(err.Error())
	}

	eventDate, err := time.Parse(domain.DateLayout, req.EventDate)
	if err != nil {
		return repository.CreateLeadParams{}, apperr.Validation("eventDate must be YYYY-MM-DD")
	}
	if eventDate.Before(domain.DateOnly(s.opts.Now())) {
		return repository.CreateLeadParams{}, apperr.Validation("eventDate is in the past")
	}

	if req.BudgetMin != nil && req.BudgetMax != nil && *req.BudgetMax < *req.BudgetMin {
		return repository.CreateLeadParams{}, apperr.Validation("budgetMax must be >= budgetMin")
	}

	p := repository.CreateLeadParams{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		ContactName:  sanitize.Optional(req.ContactName),
		EventType:    eventType,
		EventDate:    &eventDate,
		EventTime:    sanitize.Optional(req.EventTime),
		IsLastMinute: req.IsLastMinute,
		City:         sanitize.Text(req.City),
		State:        sanitize.Text(req.State),
		BudgetMin:    req.BudgetMin,
		BudgetMax:    req.BudgetMax,
		GuestCount:   req.GuestCount,
		VenueName:    sanitize.Optional(req.VenueName),
		VenueAddress: sanitize.Optional(req.VenueAddress),
		Notes:        sanitize.Optional(req.Notes),
	}
	if req.BudgetMin != nil && req.BudgetMax != nil {
		mid := (*req.BudgetMin + *req.BudgetMax) / 2
		p.BudgetMidpoint = &mid
	}

	if normalized := phone.NormalizeE164(req.Phone, s.opts.PhoneRegion); normalized != "" {
		p.Phone = &normalized
		if len(s.opts.PhoneHashKey) > 0 {
			hash, err := phone.LookupHash(s.opts.PhoneHashKey, normalized)
			if err != nil {
				return repository.CreateLeadParams{}, fmt.Errorf("hash phone: %w", err)
			}
			p.PhoneLookupHash = &hash
		}
	}

	p.FormCompleteness = scoring.LeadCompleteness(domain.Lead{
		Email:        p.Email,
		Phone:        p.Phone,
		EventType:    p.EventType,
		EventDate:    p.EventDate,
		EventTime:    p.EventTime,
		City:         p.City,
		State:        p.State,
		BudgetMin:    p.BudgetMin,
		BudgetMax:    p.BudgetMax,
		GuestCount:   p.GuestCount,
		VenueName:    p.VenueName,
		VenueAddress: p.VenueAddress,
		Notes:        p.Notes,
	})
	return p, nil
}

// GetLead returns one lead for the admin view.
func (s *Service) GetLead(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(lead), nil
}

// ExplainScore rebuilds the persisted breakdown and its summary sentence.
func (s *Service) ExplainScore(ctx context.Context, id uuid.UUID) (transport.ScoreExplanationResponse, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return transport.ScoreExplanationResponse{}, err
	}
	if lead.LeadScore == nil || len(lead.ScoringComponents) == 0 {
		return transport.ScoreExplanationResponse{}, apperr.Precondition("lead has not been scored yet")
	}

	var c scoring.Components
	if err := json.Unmarshal(lead.ScoringComponents, &c); err != nil {
		return transport.ScoreExplanationResponse{}, fmt.Errorf("decode score components: %w", err)
	}
	result := scoring.Result{
		Score:       *lead.LeadScore,
		Components:  c,
		Quality:     scoring.QualityFor(*lead.LeadScore),
		Temperature: scoring.TemperatureFor(*lead.LeadScore),
	}

	return transport.ScoreExplanationResponse{
		LeadID:      lead.ID.String(),
		LeadScore:   result.Score,
		Quality:     string(result.Quality),
		Temperature: string(result.Temperature),
		Components: transport.ScoreComponentsResponse{
			Budget:         c.Budget,
			Urgency:        c.Urgency,
			Completeness:   c.Completeness,
			Demand:         c.Demand,
			EventType:      c.EventType,
			BudgetDiffPct:  c.BudgetDiffPct,
			DaysUntilEvent: c.DaysUntilEvent,
			Version:        c.Version,
		},
		Summary: scoring.Explain(result),
	}, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

func toLeadResponse(l domain.Lead) transport.LeadResponse {
	resp := transport.LeadResponse{
		ID:               l.ID.String(),
		Email:            l.Email,
		Phone:            l.Phone,
		ContactName:      l.ContactName,
		EventType:        string(l.EventType),
		City:             l.City,
		State:            l.State,
		BudgetMin:        l.BudgetMin,
		BudgetMax:        l.BudgetMax,
		BudgetMidpoint:   l.BudgetMidpoint,
		GuestCount:       l.GuestCount,
		FormCompleteness: l.FormCompleteness,
		LeadScore:        l.LeadScore,
		RoutingState:     string(l.RoutingState),
		FirstResponseAt:  l.FirstResponseAt,
		ConvertedAt:      l.ConvertedAt,
		UnmatchedAt:      l.UnmatchedAt,
		CreatedAt:        l.CreatedAt,
	}
	if l.EventDate != nil {
		d := l.EventDate.Format(domain.DateLayout)
		resp.EventDate = &d
	}
	if l.RoutingPhase != nil {
		p := string(*l.RoutingPhase)
		resp.RoutingPhase = &p
	}
	return resp
}
