// Package providers owns provider reputation metrics and the routing-score
// calculation that ranks providers for eligibility.
package providers

import (
	"lead_routing_backend/internal/events"
	apphttp "lead_routing_backend/internal/http"
	"lead_routing_backend/internal/providers/handler"
	"lead_routing_backend/internal/providers/repository"
	"lead_routing_backend/internal/providers/service"
	"lead_routing_backend/platform/config"
	"lead_routing_backend/platform/db"
	"lead_routing_backend/platform/logger"
	"lead_routing_backend/platform/validator"
)

// Module is the providers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

func NewModule(pool db.Querier, eventBus events.Bus, val *validator.Validator, cfg config.RoutingConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, repo, eventBus, cfg.GetRoutingPolicy(), log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

func (m *Module) Name() string {
	return "providers"
}

// Service exposes standing and reputation updates to routing and the scheduler.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes candidate reads to the eligibility filter.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/providers"))
}

var _ apphttp.Module = (*Module)(nil)
