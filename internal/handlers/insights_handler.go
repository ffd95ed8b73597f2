package handlers

import (
	"errors"
	"net/http"

	"socialpilot/internal/services"

	"github.com/gin-gonic/gin"
)

// InsightsHandler 账号表现洞察
type InsightsHandler struct {
	service *services.InsightsService
}

func NewInsightsHandler(service *services.InsightsService) *InsightsHandler {
	return &InsightsHandler{service: service}
}

func (h *InsightsHandler) Generate(c *gin.Context) {
	var req services.InsightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	result, err := h.service.Generate(c.Request.Context(), req)
	if errors.Is(err, services.ErrInsightsDisabled) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Insights unavailable", Message: err.Error()})
		return
	}
	if err != nil {
		respondError(c, "Failed to generate insights", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterInsightsRoutes 注册路由
func RegisterInsightsRoutes(r *gin.RouterGroup, handler *InsightsHandler) {
	r.POST("/insights", handler.Generate)
}
