package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"socialpilot/internal/automation"
	"socialpilot/internal/config"
	"socialpilot/internal/database"
	"socialpilot/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testApp struct {
	router     *gin.Engine
	automation *services.AutomationService
	accounts   *services.AccountService
	posts      *services.ScheduleService
	runs       *services.RunLogService
	deliverer  *services.SimulatedDeliverer
	hub        *services.ActivityHub
	db         *gorm.DB
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:handlers_"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newTestApp 组装与 serve 命令相同的路由，投递无延迟
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	cfg := config.GetDefaultConfig()
	cfg.Delivery.Latency = 0
	cfg.Delivery.Workers = 1

	app := &testApp{db: newTestDB(t)}
	app.deliverer = services.NewSimulatedDeliverer(cfg.Delivery, logger)
	app.automation = services.NewAutomationService(automation.NewStore(), app.deliverer, cfg, logger)
	app.accounts = services.NewAccountService(logger)
	app.posts = services.NewScheduleService(app.accounts, logger)
	app.runs = services.NewRunLogService(app.db, logger)
	app.hub = services.NewActivityHub(logger)
	app.automation.SetAccounts(app.accounts)
	app.automation.SetRunLog(app.runs)
	app.automation.SetActivity(app.hub)
	if err := services.SeedDemo(app.accounts, app.automation); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := services.SeedDemoPosts(app.posts); err != nil {
		t.Fatalf("seed posts: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go app.hub.Run(ctx)
	app.automation.Start(ctx)
	t.Cleanup(func() {
		app.automation.Stop()
		cancel()
	})

	r := gin.New()
	RegisterHealthRoutes(r, NewHealthHandler("test", app.db, app.automation, app.hub, app.deliverer))
	api := r.Group("/api/v1")
	RegisterAutomationRoutes(api, NewAutomationHandler(app.automation, app.runs))
	RegisterEventRoutes(api, NewEventHandler(app.automation))
	RegisterAccountRoutes(api, NewAccountHandler(app.accounts))
	RegisterScheduleRoutes(api, NewScheduleHandler(app.posts))
	RegisterInsightsRoutes(api, NewInsightsHandler(services.NewInsightsService(cfg.Insights, logger)))
	RegisterActivityRoutes(api, app.hub)
	app.router = r
	return app
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}
