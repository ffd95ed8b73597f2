package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"socialpilot/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// BreakerReporter 返回各账号熔断器状态
type BreakerReporter interface {
	BreakerStates() map[string]string
}

// HealthHandler 健康与就绪检查
type HealthHandler struct {
	version    string
	db         *gorm.DB
	automation *services.AutomationService
	hub        *services.ActivityHub
	breakers   BreakerReporter
	startedAt  time.Time
}

func NewHealthHandler(version string, db *gorm.DB, automation *services.AutomationService, hub *services.ActivityHub, breakers BreakerReporter) *HealthHandler {
	return &HealthHandler{
		version:    version,
		db:         db,
		automation: automation,
		hub:        hub,
		breakers:   breakers,
		startedAt:  time.Now(),
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]ServiceInfo `json:"services"`
	System    SystemInfo             `json:"system"`
}

// ServiceInfo 服务信息
type ServiceInfo struct {
	Status  string      `json:"status"`
	Latency string      `json:"latency,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// SystemInfo 系统信息
type SystemInfo struct {
	Uptime    string `json:"uptime"`
	GoVersion string `json:"go_version"`
}

// Health 各组件状态；部分组件异常时返回 200 + degraded
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now(),
		Services:  make(map[string]ServiceInfo),
		System: SystemInfo{
			Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
			GoVersion: runtime.Version(),
		},
	}

	allHealthy := true
	h.checkDatabase(ctx, &resp, &allHealthy)
	h.checkAutomation(&resp)
	h.checkDelivery(&resp, &allHealthy)
	if h.hub != nil {
		resp.Services["activity"] = ServiceInfo{Status: "healthy", Details: map[string]int{"clients": h.hub.ClientCount()}}
	}

	if !allHealthy {
		resp.Status = "degraded"
	}
	c.JSON(http.StatusOK, resp)
}

// Ready 就绪检查，只检查核心依赖
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	ready := h.automation != nil
	checks := map[string]string{"automation": "ready"}
	if !ready {
		checks["automation"] = "not_ready"
	}
	if h.db != nil {
		if err := ping(ctx, h.db); err != nil {
			checks["database"] = "not_ready"
			ready = false
		} else {
			checks["database"] = "ready"
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "timestamp": time.Now(), "services": checks})
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (h *HealthHandler) checkDatabase(ctx context.Context, resp *HealthResponse, allHealthy *bool) {
	if h.db == nil {
		resp.Services["database"] = ServiceInfo{Status: "disabled"}
		return
	}
	start := time.Now()
	info := ServiceInfo{Status: "healthy", Details: map[string]string{"dialect": h.db.Dialector.Name()}}
	if err := ping(ctx, h.db); err != nil {
		info.Status = "unhealthy"
		info.Error = err.Error()
		*allHealthy = false
	}
	info.Latency = time.Since(start).String()
	resp.Services["database"] = info
}

func (h *HealthHandler) checkAutomation(resp *HealthResponse) {
	if h.automation == nil {
		return
	}
	rules := h.automation.Store().List()
	active := 0
	for _, r := range rules {
		if r.IsActive {
			active++
		}
	}
	resp.Services["automation"] = ServiceInfo{
		Status: "healthy",
		Details: map[string]int{
			"rules":       len(rules),
			"active":      active,
			"queue_depth": h.automation.QueueLen(),
		},
	}
}

// checkDelivery 任一账号熔断打开时视为降级
func (h *HealthHandler) checkDelivery(resp *HealthResponse, allHealthy *bool) {
	if h.breakers == nil {
		return
	}
	states := h.breakers.BreakerStates()
	info := ServiceInfo{Status: "healthy", Details: states}
	for _, st := range states {
		if st == services.BreakerOpen.String() {
			info.Status = "degraded"
			*allHealthy = false
			break
		}
	}
	resp.Services["delivery"] = info
}

// RegisterHealthRoutes 注册路由
func RegisterHealthRoutes(r gin.IRoutes, handler *HealthHandler) {
	r.GET("/health", handler.Health)
	r.GET("/ready", handler.Ready)
}
