// Package market provides the read side of the aggregator's per-city price
// statistics: the scoring lookup, pricing insights and the stats import.
package market

import (
	apphttp "lead_routing_backend/internal/http"
	"lead_routing_backend/internal/market/handler"
	"lead_routing_backend/internal/market/repository"
	"lead_routing_backend/internal/market/service"
	"lead_routing_backend/platform/db"
	"lead_routing_backend/platform/logger"
	"lead_routing_backend/platform/validator"
)

// Module is the market bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	service  *service.Service
	importer *service.Importer
}

// NewModule wires the module. cache may be nil when Redis is not configured.
func NewModule(pool db.Querier, cache *service.PricingCache, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cache, log)
	importer := service.NewImporter(repo, cache)

	return &Module{
		handler:  handler.New(svc, importer, val),
		service:  svc,
		importer: importer,
	}
}

func (m *Module) Name() string {
	return "market"
}

// Service returns the pricing lookup used by lead scoring.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) Importer() *service.Importer {
	return m.importer
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/market"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/market"))
}

var _ apphttp.Module = (*Module)(nil)
