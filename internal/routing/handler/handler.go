package handler

import (
	"context"
	"net/http"

	"lead_routing_backend/internal/routing/service"
	"lead_routing_backend/internal/routing/transport"
	"lead_routing_backend/platform/httpkit"
	"lead_routing_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterAdminLeadRoutes mounts the operator controls under /admin/leads.
func (h *Handler) RegisterAdminLeadRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/route", h.Route)
	rg.POST("/:id/escalate", h.Escalate)
	rg.POST("/:id/expire", h.Expire)
	rg.GET("/:id/assignments", h.ListLeadAssignments)
	rg.POST("/:id/confirm-booking", h.ConfirmBooking)
}

// RegisterAdminAssignmentRoutes lets operators settle an assignment for a provider.
func (h *Handler) RegisterAdminAssignmentRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/respond", h.AdminRespond)
}

// RegisterProviderRoutes mounts the provider inbox.
func (h *Handler) RegisterProviderRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListMine)
	rg.POST("/:id/respond", h.Respond)
}

func (h *Handler) Route(c *gin.Context) {
	h.step(c, h.svc.Route)
}

func (h *Handler) Escalate(c *gin.Context) {
	h.step(c, h.svc.Escalate)
}

func (h *Handler) Expire(c *gin.Context) {
	h.step(c, h.svc.Expire)
}

func (h *Handler) step(c *gin.Context, run func(context.Context, uuid.UUID) (transport.RoutingStepResponse, error)) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := run(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) ListLeadAssignments(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListAssignments(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"assignments": list})
}

func (h *Handler) ConfirmBooking(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req transport.ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	if httpkit.HandleError(c, h.svc.MarkLeadConverted(c.Request.Context(), id, uuid.MustParse(req.ProviderID))) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListMine(c *gin.Context) {
	var q transport.ListAssignmentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	list, err := h.svc.ListProviderAssignments(c.Request.Context(), id.UserID(), q.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"assignments": list})
}

func (h *Handler) Respond(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	actor := id.UserID()
	h.respond(c, &actor)
}

func (h *Handler) AdminRespond(c *gin.Context) {
	h.respond(c, nil)
}

func (h *Handler) respond(c *gin.Context, actor *uuid.UUID) {
	assignmentID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req transport.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	resp, err := h.svc.RespondToLead(c.Request.Context(), assignmentID, req.Action, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}
