package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialpilot/internal/automation"
	"socialpilot/internal/config"
	"socialpilot/internal/database"
	"socialpilot/internal/handlers"
	"socialpilot/internal/middleware"
	"socialpilot/internal/observability"
	"socialpilot/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the socialpilot API server",
	RunE:  run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// application 持有服务实例，供路由与关闭流程使用
type application struct {
	cfg        *config.Config
	logger     *logrus.Logger
	db         *gorm.DB
	automation *services.AutomationService
	accounts   *services.AccountService
	posts      *services.ScheduleService
	runs       *services.RunLogService
	insights   *services.InsightsService
	deliverer  *services.SimulatedDeliverer
	hub        *services.ActivityHub
}

// newApplication 组装服务；数据库不可用时关闭执行记录而不是退出
func newApplication(cfg *config.Config, logger *logrus.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: logger}

	db, err := database.Open(cfg)
	if err != nil {
		logger.Warnf("DB connect failed, run log disabled: %v", err)
	} else {
		app.db = db
	}

	app.deliverer = services.NewSimulatedDeliverer(cfg.Delivery, logger)
	app.automation = services.NewAutomationService(automation.NewStore(), app.deliverer, cfg, logger)
	app.accounts = services.NewAccountService(logger)
	app.posts = services.NewScheduleService(app.accounts, logger)
	app.runs = services.NewRunLogService(app.db, logger)
	app.insights = services.NewInsightsService(cfg.Insights, logger)
	app.hub = services.NewActivityHub(logger)

	app.automation.SetAccounts(app.accounts)
	app.automation.SetRunLog(app.runs)
	app.automation.SetActivity(app.hub)

	if cfg.Automation.SeedDemo {
		if err := services.SeedDemo(app.accounts, app.automation); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
		if err := services.SeedDemoPosts(app.posts); err != nil {
			return nil, fmt.Errorf("seed demo posts: %w", err)
		}
		logger.Infof("Seeded %d demo automations", app.automation.Store().Len())
	}
	return app, nil
}

func (a *application) start(ctx context.Context) {
	go a.hub.Run(ctx)
	a.automation.Start(ctx)
}

// stop 等待投递队列排空后关闭数据库
func (a *application) stop() {
	a.automation.Stop()
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func (a *application) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(a.cfg.Security.CORS))
	router.Use(middleware.RateLimitMiddleware(a.cfg))
	if a.cfg.Monitoring.Tracing.Enabled {
		svcName := a.cfg.Monitoring.Tracing.ServiceName
		if svcName == "" {
			svcName = "socialpilot"
		}
		router.Use(otelgin.Middleware(svcName))
	}

	handlers.RegisterHealthRoutes(router, handlers.NewHealthHandler(Version, a.db, a.automation, a.hub, a.deliverer))
	if a.cfg.Monitoring.Enabled {
		path := a.cfg.Monitoring.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api/v1")
	{
		handlers.RegisterAutomationRoutes(api, handlers.NewAutomationHandler(a.automation, a.runs))
		handlers.RegisterEventRoutes(api, handlers.NewEventHandler(a.automation))
		handlers.RegisterAccountRoutes(api, handlers.NewAccountHandler(a.accounts))
		handlers.RegisterScheduleRoutes(api, handlers.NewScheduleHandler(a.posts))
		handlers.RegisterInsightsRoutes(api, handlers.NewInsightsHandler(a.insights))
		handlers.RegisterActivityRoutes(api, a.hub)
	}
	return router
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.InitLogger(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger := logrus.StandardLogger()

	// OpenTelemetry 初始化（可选）
	if shutdown, err := observability.SetupTracing(context.Background(), cfg); err == nil {
		defer func() { _ = shutdown(context.Background()) }()
	} else {
		logger.Warnf("init tracing: %v", err)
	}

	app, err := newApplication(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.start(ctx)

	if cfg.Server.Host != "localhost" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		cancel()
		app.stop()
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	// 先关闭 HTTP 再排空投递队列，最后断开活动推送
	app.stop()
	cancel()
	logger.Info("Server exited")
	return nil
}
