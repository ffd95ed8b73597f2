package middleware

import (
	"net/http"
	"strings"

	"socialpilot/internal/config"

	"github.com/gin-gonic/gin"
)

const (
	defaultCORSMethods = "GET, POST, PUT, DELETE, OPTIONS"
	defaultCORSHeaders = "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With"
)

// CORS 跨域头；未启用时放行所有来源
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	origins, methods, headers := "*", defaultCORSMethods, defaultCORSHeaders
	if cfg.Enabled {
		if len(cfg.AllowedOrigins) > 0 {
			origins = strings.Join(cfg.AllowedOrigins, ", ")
		}
		if len(cfg.AllowedMethods) > 0 {
			methods = strings.Join(cfg.AllowedMethods, ", ")
		}
		if len(cfg.AllowedHeaders) > 0 {
			headers = strings.Join(cfg.AllowedHeaders, ", ")
		}
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origins)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Allow-Methods", methods)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
