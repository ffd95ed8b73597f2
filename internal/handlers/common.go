package handlers

import (
	"errors"
	"net/http"

	"socialpilot/internal/automation"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Data     interface{} `json:"data"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Pages    int         `json:"pages"`
}

// SuccessResponse 成功响应结构
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// respondError 将领域错误映射为 HTTP 状态码
func respondError(c *gin.Context, title string, err error) {
	var verr *automation.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: title, Message: err.Error(), Fields: verr.Fields})
	case errors.Is(err, automation.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: title, Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: title, Message: err.Error()})
	}
}

func pages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
