package handlers

import (
	"errors"
	"net/http"

	"socialpilot/internal/services"

	"github.com/gin-gonic/gin"
)

// ScheduleHandler 帖子排期与草稿
type ScheduleHandler struct {
	service *services.ScheduleService
}

func NewScheduleHandler(service *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// List 按视图列出帖子，默认 upcoming
func (h *ScheduleHandler) List(c *gin.Context) {
	posts, err := h.service.List(c.DefaultQuery("view", services.ViewUpcoming))
	if err != nil {
		h.fail(c, "Failed to list posts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts, "counts": h.service.Counts()})
}

func (h *ScheduleHandler) Get(c *gin.Context) {
	post, err := h.service.Get(c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get post", err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Create 排期或立即发布
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req services.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	post, err := h.service.Create(req)
	if err != nil {
		h.fail(c, "Failed to create post", err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *ScheduleHandler) SaveDraft(c *gin.Context) {
	var req services.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	post, err := h.service.SaveDraft(req)
	if err != nil {
		h.fail(c, "Failed to save draft", err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Param("id")); err != nil {
		h.fail(c, "Failed to delete post", err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *ScheduleHandler) fail(c *gin.Context, title string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrPostNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidPost),
		errors.Is(err, services.ErrUnknownView),
		errors.Is(err, services.ErrAccountNotFound):
		status = http.StatusBadRequest
	}
	c.JSON(status, ErrorResponse{Error: title, Message: err.Error()})
}

// RegisterScheduleRoutes 注册路由
func RegisterScheduleRoutes(r *gin.RouterGroup, handler *ScheduleHandler) {
	posts := r.Group("/posts")
	{
		posts.GET("", handler.List)
		posts.POST("", handler.Create)
		posts.POST("/drafts", handler.SaveDraft)
		posts.GET("/:id", handler.Get)
		posts.DELETE("/:id", handler.Delete)
	}
}
