// Package leads provides the lead intake bounded context module.
// This file defines the module that encapsulates leads setup and route registration.
package leads

import (
	"lead_routing_backend/internal/events"
	apphttp "lead_routing_backend/internal/http"
	"lead_routing_backend/internal/leads/handler"
	"lead_routing_backend/internal/leads/repository"
	"lead_routing_backend/internal/leads/service"
	"lead_routing_backend/platform/config"
	"lead_routing_backend/platform/db"
	"lead_routing_backend/platform/logger"
	"lead_routing_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool db.Querier, eventBus events.Bus, pricing service.PricingReader, val *validator.Validator, cfg config.IntakeConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, pricing, eventBus, log, service.Options{
		PhoneHashKey: []byte(cfg.GetPhoneHashKey()),
		PhoneRegion:  cfg.GetPhoneDefaultRegion(),
	})

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the intake service for the CLI.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the lead repository for adapters in other modules.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts the public intake route and the admin lead views.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/leads")
	if ctx.IntakeLimiter != nil {
		public.Use(ctx.IntakeLimiter.RateLimit())
	}
	m.handler.RegisterPublicRoutes(public)
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/leads"))
}

var _ apphttp.Module = (*Module)(nil)
