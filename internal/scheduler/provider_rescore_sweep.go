package scheduler

import (
	"context"
	"time"

	providerservice "lead_routing_backend/internal/providers/service"
	"lead_routing_backend/platform/logger"
)

const defaultRescoreInterval = 24 * time.Hour

type ProviderRescorer interface {
	RecalculateAll(ctx context.Context) (providerservice.SweepResult, error)
}

// ProviderRescoreSweep periodically recomputes every provider's routing score
// so penalty decay and cooldown expiry show up without new outcomes.
type ProviderRescoreSweep struct {
	rescorer ProviderRescorer
	log      *logger.Logger
	interval time.Duration
}

func NewProviderRescoreSweep(rescorer ProviderRescorer, log *logger.Logger, interval time.Duration) *ProviderRescoreSweep {
	if interval <= 0 {
		interval = defaultRescoreInterval
	}
	return &ProviderRescoreSweep{
		rescorer: rescorer,
		log:      log,
		interval: interval,
	}
}

func (s *ProviderRescoreSweep) Run(ctx context.Context) {
	if s == nil || s.rescorer == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ProviderRescoreSweep) sweep(ctx context.Context) {
	started := time.Now()
	result, err := s.rescorer.RecalculateAll(ctx)
	if err != nil {
		s.log.Warn("provider rescore sweep failed", "error", err)
		return
	}

	s.log.Info("provider rescore sweep finished",
		"total", result.Total,
		"updated", result.Updated,
		"failed", result.Failed,
		"durationMs", time.Since(started).Milliseconds(),
	)
}
