// Package service maintains provider standing: recalculating routing scores
// and folding assignment outcomes into the reputation metrics.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/internal/events"
	"lead_routing_backend/internal/providers/repository"
	"lead_routing_backend/internal/providers/reputation"
	"lead_routing_backend/internal/providers/standing"
	"lead_routing_backend/internal/providers/transport"
	"lead_routing_backend/platform/apperr"
	"lead_routing_backend/platform/config"
	"lead_routing_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Service struct {
	store   repository.StandingStore
	metrics repository.MetricsUpdater
	bus     events.Bus
	policy  config.RoutingPolicy
	log     *logger.Logger
	now     func() time.Time
}

func New(store repository.StandingStore, metrics repository.MetricsUpdater, bus events.Bus, policy config.RoutingPolicy, log *logger.Logger) *Service {
	return &Service{store: store, metrics: metrics, bus: bus, policy: policy, log: log, now: time.Now}
}

// SweepResult summarizes one RecalculateAll run.
type SweepResult struct {
	Total   int
	Updated int
	Failed  int
}

// RecalculateOne recomputes and persists one provider's routing score.
func (s *Service) RecalculateOne(ctx context.Context, providerID uuid.UUID) (standing.Result, error) {
	c, err := s.store.GetCandidate(ctx, providerID)
	if errors.Is(err, repository.ErrNotFound) {
		return standing.Result{}, apperr.NotFound("provider not found")
	}
	if err != nil {
		return standing.Result{}, err
	}

	median, err := s.store.ReferenceMedian(ctx, c.Profile.City, c.Profile.State)
	if err != nil {
		s.log.Warn("reference median unavailable, scoring price alignment as unknown", "providerId", providerID, "error", err)
		median = nil
	}

	now := s.now()
	result := standing.Calculate(standing.FromProvider(c.Profile, c.Metrics, median), now)
	components, err := json.Marshal(result.Components)
	if err != nil {
		return standing.Result{}, fmt.Errorf("encode standing components: %w", err)
	}
	if err := s.store.SaveScore(ctx, providerID, result.Score, components, now); err != nil {
		return standing.Result{}, err
	}
	return result, nil
}

// RecalculateAll rescores every active provider with bounded concurrency.
// A failing provider is logged and counted; it never aborts the sweep.
func (s *Service) RecalculateAll(ctx context.Context) (SweepResult, error) {
	ids, err := s.store.ListActiveIDs(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	var updated, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.policy.RescoreConcurrency))
	for _, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				failed.Add(1)
				return nil
			}
			if _, err := s.RecalculateOne(gctx, id); err != nil {
				failed.Add(1)
				s.log.Error("provider rescore failed", "providerId", id, "error", err)
				return nil
			}
			updated.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := SweepResult{Total: len(ids), Updated: int(updated.Load()), Failed: int(failed.Load())}
	s.log.Info("provider rescore sweep finished", "total", res.Total, "updated", res.Updated, "failed", res.Failed)
	return res, ctx.Err()
}

// RecordOutcome folds a terminal assignment response into the provider's
// metrics and refreshes the cached routing score, so a new penalty or
// cooldown ranks the provider down before the next sweep. A failed refresh
// is logged; the metrics update stands.
func (s *Service) RecordOutcome(ctx context.Context, providerID uuid.UUID, outcome reputation.Outcome) (domain.ProviderMetrics, error) {
	now := s.now()
	var fx reputation.Effects
	m, err := s.metrics.UpdateMetrics(ctx, providerID, func(current domain.ProviderMetrics) (domain.ProviderMetrics, error) {
		next, effects := reputation.Apply(current, outcome, now, s.policy.CooldownDuration)
		fx = effects
		return next, nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return domain.ProviderMetrics{}, apperr.NotFound("provider metrics not found")
	}
	if err != nil {
		return domain.ProviderMetrics{}, err
	}

	if fx.CooldownStarted && m.CooldownUntil != nil {
		s.log.Warn("provider penalty ceiling reached, cooling down", "providerId", providerID, "until", *m.CooldownUntil)
		s.bus.Publish(ctx, events.ProviderCooldownStarted{
			BaseEvent:     events.NewBaseEvent(),
			ProviderID:    providerID,
			CooldownUntil: *m.CooldownUntil,
		})
	}

	if _, err := s.RecalculateOne(ctx, providerID); err != nil {
		s.log.Error("failed to refresh routing score after outcome", "providerId", providerID, "error", err)
	}
	return m, nil
}

// RecordConversion counts a confirmed booking for the provider.
func (s *Service) RecordConversion(ctx context.Context, providerID uuid.UUID) (domain.ProviderMetrics, error) {
	m, err := s.metrics.UpdateMetrics(ctx, providerID, func(current domain.ProviderMetrics) (domain.ProviderMetrics, error) {
		return reputation.ApplyConversion(current), nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return domain.ProviderMetrics{}, apperr.NotFound("provider metrics not found")
	}
	return m, err
}

// GetStanding returns the stored score together with a fresh breakdown.
func (s *Service) GetStanding(ctx context.Context, providerID uuid.UUID) (transport.StandingResponse, error) {
	c, err := s.store.GetCandidate(ctx, providerID)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.StandingResponse{}, apperr.NotFound("provider not found")
	}
	if err != nil {
		return transport.StandingResponse{}, err
	}

	var result standing.Result
	if len(c.Metrics.ScoreComponents) > 0 && json.Unmarshal(c.Metrics.ScoreComponents, &result.Components) == nil && result.Components.Version != "" {
		result.Score = c.Metrics.RoutingScore
	} else {
		median, _ := s.store.ReferenceMedian(ctx, c.Profile.City, c.Profile.State)
		result = standing.Calculate(standing.FromProvider(c.Profile, c.Metrics, median), s.now())
	}

	m := c.Metrics
	return transport.StandingResponse{
		ProviderID:   providerID.String(),
		Name:         c.Profile.Name,
		PricingTier:  string(m.PricingTier),
		RoutingScore: result.Score,
		Components: transport.StandingComponentsResponse{
			Tier:              result.Components.Tier,
			ResponseSpeed:     result.Components.ResponseSpeed,
			Conversion:        result.Components.Conversion,
			PriceAlignment:    result.Components.PriceAlignment,
			Trust:             result.Components.Trust,
			PenaltyAdjustment: result.Components.PenaltyAdjustment,
		},
		Summary:          standing.Explain(result),
		ReliabilityScore: m.ReliabilityScore,
		RecentPenalty:    m.RecentPenalty,
		LeadsReceived:    m.LeadsReceived,
		AcceptanceRate:   m.AcceptanceRate,
		DeclineRate:      m.DeclineRate,
		IgnoreRate:       m.IgnoreRate,
		ConversionRate:   m.ConversionRate,
		IsSuspended:      m.IsSuspended,
		CooldownUntil:    m.CooldownUntil,
		ScoreUpdatedAt:   m.ScoreUpdatedAt,
	}, nil
}

// SetSuspended toggles the operator suspension flag.
func (s *Service) SetSuspended(ctx context.Context, providerID uuid.UUID, suspended bool) error {
	err := s.store.SetSuspended(ctx, providerID, suspended)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("provider not found")
	}
	if err == nil {
		s.log.Info("provider suspension changed", "providerId", providerID, "suspended", suspended)
	}
	return err
}
