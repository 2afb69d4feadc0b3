// Package routing offers scored leads to providers in timed phases and
// settles their responses.
package routing

import (
	"context"

	availrepo "lead_routing_backend/internal/availability/repository"
	"lead_routing_backend/internal/events"
	apphttp "lead_routing_backend/internal/http"
	"lead_routing_backend/internal/routing/eligibility"
	"lead_routing_backend/internal/routing/handler"
	"lead_routing_backend/internal/routing/repository"
	"lead_routing_backend/internal/routing/service"
	"lead_routing_backend/platform/apperr"
	"lead_routing_backend/platform/config"
	"lead_routing_backend/platform/db"
	"lead_routing_backend/platform/logger"
	"lead_routing_backend/platform/validator"
)

// Module is the routing bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires routing on top of the provider candidates and reputation
// recorder owned by the providers module.
func NewModule(pool db.Querier, eventBus events.Bus, candidates eligibility.CandidateReader, rep service.ReputationRecorder, val *validator.Validator, cfg config.RoutingConfig, log *logger.Logger) *Module {
	calendar := availrepo.New(pool)
	filter := eligibility.New(candidates, calendar)
	svc := service.New(repository.New(pool), calendar, filter, rep, eventBus, cfg.GetRoutingPolicy(), log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "routing"
}

// Service exposes the routing steps to the scheduler worker and the CLI.
func (m *Module) Service() *service.Service {
	return m.service
}

// SubscribeLeadScored starts routing for every lead intake has scored.
func (m *Module) SubscribeLeadScored(bus events.Bus, log *logger.Logger) {
	bus.Subscribe(events.NameLeadScored, events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		scored, ok := event.(events.LeadScored)
		if !ok {
			return nil
		}
		_, err := m.service.Route(ctx, scored.LeadID)
		if apperr.Is(err, apperr.KindConflict) {
			log.Info("lead already routed, skipping", "leadId", scored.LeadID)
			return nil
		}
		return err
	}))
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminLeadRoutes(ctx.Admin.Group("/leads"))
	m.handler.RegisterAdminAssignmentRoutes(ctx.Admin.Group("/assignments"))
	m.handler.RegisterProviderRoutes(ctx.Provider.Group("/assignments"))
}

var _ apphttp.Module = (*Module)(nil)
