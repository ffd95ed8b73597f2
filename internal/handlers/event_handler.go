package handlers

import (
	"net/http"

	"socialpilot/internal/automation"
	"socialpilot/internal/services"

	"github.com/gin-gonic/gin"
)

// EventHandler 接收平台事件（评论、私信、新粉丝）并执行匹配规则
type EventHandler struct {
	service *services.AutomationService
}

func NewEventHandler(service *services.AutomationService) *EventHandler {
	return &EventHandler{service: service}
}

type eventQuery struct {
	DryRun         bool `form:"dry_run"`
	FirstMatchOnly bool `form:"first_match_only"`
}

// Ingest 处理单个事件；dry_run=true 时只返回渲染结果
func (h *EventHandler) Ingest(c *gin.Context) {
	var q eventQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query", Message: err.Error()})
		return
	}
	var evt automation.InboundEvent
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	result, err := h.service.HandleEvent(c.Request.Context(), evt, services.EventOptions{
		DryRun:         q.DryRun,
		FirstMatchOnly: q.FirstMatchOnly,
	})
	if err != nil {
		respondError(c, "Failed to process event", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterEventRoutes 注册路由
func RegisterEventRoutes(r *gin.RouterGroup, handler *EventHandler) {
	r.POST("/events", handler.Ingest)
}
