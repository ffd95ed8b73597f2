package handlers

import (
	"errors"
	"net/http"

	"socialpilot/internal/services"

	"github.com/gin-gonic/gin"
)

// AccountHandler 管理已连接的社交账号
type AccountHandler struct {
	service *services.AccountService
}

func NewAccountHandler(service *services.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.List())
}

func (h *AccountHandler) Get(c *gin.Context) {
	acc, err := h.service.Get(c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get account", err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// Connect 连接新账号
func (h *AccountHandler) Connect(c *gin.Context) {
	var req services.ConnectAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	acc, err := h.service.Connect(req)
	if err != nil {
		h.fail(c, "Failed to connect account", err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

// Reconnect 重新授权
func (h *AccountHandler) Reconnect(c *gin.Context) {
	acc, err := h.service.Reconnect(c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to reconnect account", err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// Remove 断开账号，其规则保留
func (h *AccountHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Param("id")); err != nil {
		h.fail(c, "Failed to remove account", err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "removed"})
}

func (h *AccountHandler) fail(c *gin.Context, title string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrUnsupportedPlatform):
		status = http.StatusBadRequest
	}
	c.JSON(status, ErrorResponse{Error: title, Message: err.Error()})
}

// RegisterAccountRoutes 注册路由
func RegisterAccountRoutes(r *gin.RouterGroup, handler *AccountHandler) {
	acc := r.Group("/accounts")
	{
		acc.GET("", handler.List)
		acc.POST("", handler.Connect)
		acc.GET("/:id", handler.Get)
		acc.POST("/:id/reconnect", handler.Reconnect)
		acc.DELETE("/:id", handler.Remove)
	}
}
