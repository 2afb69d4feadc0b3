package handler

import (
	"net/http"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/internal/market/service"
	"lead_routing_backend/internal/market/transport"
	"lead_routing_backend/platform/httpkit"
	"lead_routing_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInsufficientData = "insufficient market data"
)

type Handler struct {
	svc      *service.Service
	importer *service.Importer
	val      *validator.Validator
}

func New(svc *service.Service, importer *service.Importer, val *validator.Validator) *Handler {
	return &Handler{svc: svc, importer: importer, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/pricing", h.GetPricing)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/stats", h.ImportStats)
}

func (h *Handler) ImportStats(c *gin.Context) {
	var req transport.ImportStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	res, err := h.importer.Import(c.Request.Context(), req.Stats)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, res)
}

func (h *Handler) GetPricing(c *gin.Context) {
	var req transport.PricingQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	stats, err := h.svc.GetCityPricing(c.Request.Context(), req.City, domain.EventType(req.EventType), req.State)
	if httpkit.HandleError(c, err) {
		return
	}
	if stats == nil {
		httpkit.Error(c, http.StatusNotFound, msgInsufficientData, nil)
		return
	}

	low, high := service.SuggestedRange(stats.PriceMedian)
	resp := transport.PricingResponse{
		City:              stats.City,
		State:             stats.State,
		EventType:         string(stats.EventType),
		Low:               stats.PriceLow,
		Median:            stats.PriceMedian,
		High:              stats.PriceHigh,
		SampleSize:        stats.SampleSize,
		DataQuality:       string(stats.DataQuality),
		DemandSupplyRatio: stats.DemandSupplyRatio,
		FormattedRange:    service.FormatPriceRange(stats.PriceLow, stats.PriceHigh),
		SuggestedMin:      low,
		SuggestedMax:      high,
	}
	if stats.MarketTension != nil {
		tension := string(*stats.MarketTension)
		resp.MarketTension = &tension
	}
	if req.ProviderMidpoint != nil {
		insight := service.MarketPosition(*req.ProviderMidpoint, stats.PriceMedian)
		resp.Position = &transport.PositionResponse{
			Position:    string(insight.Position),
			DiffPercent: insight.DiffPercent,
			Message:     insight.Message,
		}
	}

	httpkit.OK(c, resp)
}
