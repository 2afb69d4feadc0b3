// Package availability owns provider calendar days and the time-bounded
// locks routing takes on them.
package availability

import (
	"lead_routing_backend/internal/availability/handler"
	"lead_routing_backend/internal/availability/repository"
	"lead_routing_backend/internal/availability/service"
	apphttp "lead_routing_backend/internal/http"
	"lead_routing_backend/platform/db"
	"lead_routing_backend/platform/logger"
	"lead_routing_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
}

func NewModule(pool db.Querier, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	return &Module{
		handler: handler.New(service.New(repo, log), val),
		repo:    repo,
	}
}

func (m *Module) Name() string {
	return "availability"
}

// Locks exposes the lock manager to routing.
func (m *Module) Locks() repository.LockManager {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterProviderRoutes(ctx.Provider.Group("/availability"))
}

var _ apphttp.Module = (*Module)(nil)
