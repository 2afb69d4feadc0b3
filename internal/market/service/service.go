// Package service answers market pricing lookups for scoring and for the
// pricing insight endpoint.
package service

import (
	"context"
	"errors"
	"strings"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/internal/market/repository"
	"lead_routing_backend/platform/logger"
)

// MinSampleSize is the smallest sample the aggregator's numbers are trusted at.
const MinSampleSize = 10

type Service struct {
	repo  repository.StatsReader
	cache *PricingCache
	log   *logger.Logger
}

// New builds the service. cache may be nil.
func New(repo repository.StatsReader, cache *PricingCache, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: cache, log: log}
}

// GetCityPricing returns the market snapshot for the city and event type, or
// nil when the data is absent, the sample is below MinSampleSize, or the
// aggregator flagged it as low quality. nil means "insufficient data", never zero.
func (s *Service) GetCityPricing(ctx context.Context, city string, eventType domain.EventType, state string) (*domain.CityEventStats, error) {
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)
	if city == "" || !eventType.IsValid() {
		return nil, nil
	}

	cached, hit, err := s.cache.Get(ctx, city, state, eventType)
	if err != nil {
		s.log.Warn("market pricing cache read failed", "city", city, "eventType", eventType, "error", err)
	} else if hit {
		return cached, nil
	}

	stats, err := s.repo.GetStats(ctx, city, state, eventType)
	var result *domain.CityEventStats
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, err
	case Sufficient(stats):
		result = &stats
	}

	if err := s.cache.Set(ctx, city, state, eventType, result); err != nil {
		s.log.Warn("market pricing cache write failed", "city", city, "eventType", eventType, "error", err)
	}
	return result, nil
}

// Sufficient reports whether stats are trustworthy enough to score against.
func Sufficient(stats domain.CityEventStats) bool {
	if stats.SampleSize < MinSampleSize {
		return false
	}
	return stats.DataQuality == domain.QualityHigh || stats.DataQuality == domain.QualityMedium
}
