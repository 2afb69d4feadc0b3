package handler

import (
	"net/http"

	"lead_routing_backend/internal/availability/service"
	"lead_routing_backend/internal/availability/transport"
	"lead_routing_backend/platform/httpkit"
	"lead_routing_backend/platform/validator"

	"github.com/gin-gonic/gin"
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

// RegisterProviderRoutes mounts the calendar endpoints for the signed-in provider.
func (h *Handler) RegisterProviderRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.PUT("/:date", h.SetDay)
}

func (h *Handler) SetDay(c *gin.Context) {
	var req transport.SetDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	if httpkit.HandleError(c, h.svc.SetDay(c.Request.Context(), id.UserID(), c.Param("date"), req.Status)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) List(c *gin.Context) {
	var q transport.ListDaysQuery
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
	days, err := h.svc.ListDays(c.Request.Context(), id.UserID(), q.From, q.To)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"days": days})
}
