package handler

import (
	"net/http"

	"lead_routing_backend/internal/providers/service"
	"lead_routing_backend/internal/providers/standing"
	"lead_routing_backend/internal/providers/transport"
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

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/rescore", h.RescoreAll)
	rg.GET("/:id/standing", h.GetStanding)
	rg.POST("/:id/rescore", h.Rescore)
	rg.PUT("/:id/suspension", h.SetSuspension)
}

func (h *Handler) GetStanding(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.svc.GetStanding(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Rescore(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.RecalculateOne(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"providerId":   id.String(),
		"routingScore": result.Score,
		"components":   result.Components,
		"summary":      standing.Explain(result),
	})
}

func (h *Handler) RescoreAll(c *gin.Context) {
	res, err := h.svc.RecalculateAll(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.RescoreAllResponse{Total: res.Total, Updated: res.Updated, Failed: res.Failed})
}

func (h *Handler) SetSuspension(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req transport.SuspensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	if httpkit.HandleError(c, h.svc.SetSuspended(c.Request.Context(), id, *req.Suspended)) {
		return
	}
	c.Status(http.StatusNoContent)
}
