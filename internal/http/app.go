// Package http wires the gin router from the modules assembled in cmd/api.
package http

import (
	"context"

	"lead_routing_backend/internal/events"
	"lead_routing_backend/platform/config"
	"lead_routing_backend/platform/logger"
)

// RouterConfig is the slice of config.Config the router reads: listen and
// CORS settings, token verification and the intake throttle.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
	config.IntakeConfig
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is built once by the composition root and handed to router.New.
// Health backs GET /api/ready; a nil Health makes readiness always pass.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
