package handlers

import (
	"socialpilot/internal/services"

	"github.com/gin-gonic/gin"
)

// RegisterActivityRoutes 仪表盘实时活动推送，?account_id= 只订阅单个账号
func RegisterActivityRoutes(r *gin.RouterGroup, hub *services.ActivityHub) {
	r.GET("/activity/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})
}
