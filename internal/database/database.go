package database

import (
	"fmt"
	"strings"

	"socialpilot/internal/config"
	"socialpilot/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"
)

// Open 按配置打开数据库并迁移执行记录表
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.Database)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
	}

	if cfg.Monitoring.Tracing.Enabled {
		if err := db.Use(gormtracing.NewPlugin()); err != nil {
			logrus.Warnf("gorm tracing plugin: %v", err)
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		if isSQLite(cfg.Database.Driver) {
			// 内存库在连接关闭后即丢失，固定单连接
			sqlDB.SetMaxOpenConns(1)
		} else {
			sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
			sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 自动迁移所有模型
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.AutomationRun{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func dialectorFor(dc config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(dc.Driver) {
	case "", "sqlite", "sqlite3":
		dsn := dc.DSN
		if dsn == "" {
			dsn = "file:socialpilot?mode=memory&cache=shared"
		}
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		dsn := dc.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
				dc.Host, dc.User, dc.Password, dc.Name, dc.Port)
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dc.Driver)
	}
}

func isSQLite(driver string) bool {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return true
	}
	return false
}
