package handlers

import (
	"net/http"

	"socialpilot/internal/automation"
	"socialpilot/internal/services"

	"github.com/gin-gonic/gin"
)

// AutomationHandler 管理自动化规则与执行记录
type AutomationHandler struct {
	service *services.AutomationService
	runs    *services.RunLogService
}

func NewAutomationHandler(service *services.AutomationService, runs *services.RunLogService) *AutomationHandler {
	return &AutomationHandler{service: service, runs: runs}
}

type toggleRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// ListRules 获取规则列表，支持 ?status=active|paused
func (h *AutomationHandler) ListRules(c *gin.Context) {
	rules, err := h.service.List(c.Query("status"))
	if err != nil {
		respondError(c, "Failed to list automations", err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// GetRule 获取单条规则
func (h *AutomationHandler) GetRule(c *gin.Context) {
	rule, err := h.service.Get(c.Param("id"))
	if err != nil {
		respondError(c, "Failed to get automation", err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// CreateRule 创建规则，新规则默认启用
func (h *AutomationHandler) CreateRule(c *gin.Context) {
	var req automation.RuleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	rule, err := h.service.Create(req)
	if err != nil {
		respondError(c, "Failed to create automation", err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// UpdateRule 整体替换规则的可编辑字段
func (h *AutomationHandler) UpdateRule(c *gin.Context) {
	var req automation.RuleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	rule, err := h.service.Update(c.Param("id"), req)
	if err != nil {
		respondError(c, "Failed to update automation", err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// SetActive 暂停或恢复规则
func (h *AutomationHandler) SetActive(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	rule, err := h.service.SetActive(c.Param("id"), *req.Active)
	if err != nil {
		respondError(c, "Failed to toggle automation", err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule 删除规则，重复删除同样返回成功
func (h *AutomationHandler) DeleteRule(c *gin.Context) {
	h.service.Delete(c.Param("id"))
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// ListRuns 分页查询执行记录
func (h *AutomationHandler) ListRuns(c *gin.Context) {
	var req services.RunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query", Message: err.Error()})
		return
	}

	runs, total, err := h.runs.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Failed to list runs", err)
		return
	}
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:     runs,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Pages:    pages(total, req.PageSize),
	})
}

// RegisterAutomationRoutes 注册路由
func RegisterAutomationRoutes(r *gin.RouterGroup, handler *AutomationHandler) {
	auto := r.Group("/automations")
	{
		auto.GET("", handler.ListRules)
		auto.POST("", handler.CreateRule)
		auto.GET("/runs", handler.ListRuns)
		auto.GET("/:id", handler.GetRule)
		auto.PUT("/:id", handler.UpdateRule)
		auto.PUT("/:id/active", handler.SetActive)
		auto.DELETE("/:id", handler.DeleteRule)
	}
}
