package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 SOCIALPILOT_SERVER_PORT
const EnvPrefix = "SOCIALPILOT"

type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" yaml:"monitoring"`
	Security   SecurityConfig   `mapstructure:"security" yaml:"security"`
	Automation AutomationConfig `mapstructure:"automation" yaml:"automation"`
	Delivery   DeliveryConfig   `mapstructure:"delivery" yaml:"delivery"`
	Insights   InsightsConfig   `mapstructure:"insights" yaml:"insights"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Addr 返回监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"` // sqlite, postgres
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`       // 为空时按 driver 拼接
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	User            string        `mapstructure:"user" yaml:"user"`
	Password        string        `mapstructure:"password" yaml:"password"`
	Name            string        `mapstructure:"name" yaml:"name"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"` // json, text
	Output     string `mapstructure:"output" yaml:"output"` // stdout, file, both
	FilePath   string `mapstructure:"file_path" yaml:"file_path"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`       // MB
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`         // days
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"` // number of backup files
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

type MonitoringConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	MetricsPath string        `mapstructure:"metrics_path" yaml:"metrics_path"`
	Tracing     TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

// TracingConfig OpenTelemetry 追踪配置
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`         // OTLP gRPC 端点，例如 http://otel-collector:4317
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure"`         // 是否使用明文（本地/开发）
	SampleRatio float64 `mapstructure:"sample_ratio" yaml:"sample_ratio"` // 采样率 0.0~1.0
	ServiceName string  `mapstructure:"service_name" yaml:"service_name"`
}

type SecurityConfig struct {
	CORS         CORSConfig         `mapstructure:"cors" yaml:"cors"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting" yaml:"rate_limiting"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
}

type RateLimitingConfig struct {
	Enabled           bool                  `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerMinute int                   `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int                   `mapstructure:"burst" yaml:"burst"`
	KeyHeader         string                `mapstructure:"key_header" yaml:"key_header"` // 为空时按客户端 IP 限流
	Whitelist         []string              `mapstructure:"whitelist" yaml:"whitelist"`
	Paths             []PathRateLimitConfig `mapstructure:"paths" yaml:"paths"`
}

// PathRateLimitConfig 针对路径前缀的独立限流
type PathRateLimitConfig struct {
	Enabled           bool   `mapstructure:"enabled" yaml:"enabled"`
	Prefix            string `mapstructure:"prefix" yaml:"prefix"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int    `mapstructure:"burst" yaml:"burst"`
}

// AutomationConfig 自动化规则流水线配置
type AutomationConfig struct {
	SeedDemo           bool          `mapstructure:"seed_demo" yaml:"seed_demo"`                     // 启动时写入演示账号与规则
	SuppressUnresolved bool          `mapstructure:"suppress_unresolved" yaml:"suppress_unresolved"` // 模板缺少上下文时跳过发送
	FirstMatchOnly     bool          `mapstructure:"first_match_only" yaml:"first_match_only"`
	EventTimeout       time.Duration `mapstructure:"event_timeout" yaml:"event_timeout"`
}

// DeliveryConfig 动作投递（模拟）配置
type DeliveryConfig struct {
	Workers        int                  `mapstructure:"workers" yaml:"workers"`
	QueueSize      int                  `mapstructure:"queue_size" yaml:"queue_size"`
	Timeout        time.Duration        `mapstructure:"timeout" yaml:"timeout"`
	Latency        time.Duration        `mapstructure:"latency" yaml:"latency"`
	FailureRate    float64              `mapstructure:"failure_rate" yaml:"failure_rate"` // 0.0~1.0
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker" yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxFailures     int           `mapstructure:"max_failures" yaml:"max_failures"`
	ResetTimeout    time.Duration `mapstructure:"reset_timeout" yaml:"reset_timeout"`
	HalfOpenMaxReqs int           `mapstructure:"half_open_max_requests" yaml:"half_open_max_requests"`
}

// InsightsConfig 内容洞察（提示词模板）配置
type InsightsConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxInsights int           `mapstructure:"max_insights" yaml:"max_insights"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Load 从 viper 读取配置，未设置的键使用 GetDefaultConfig 的值
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom 从指定的 viper 实例读取配置
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// SetDefaults 注册默认值并开启环境变量覆盖
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := GetDefaultConfig()
	defaults := map[string]interface{}{
		"server.host": d.Server.Host,
		"server.port": d.Server.Port,

		"database.driver":            d.Database.Driver,
		"database.dsn":               d.Database.DSN,
		"database.host":              d.Database.Host,
		"database.port":              d.Database.Port,
		"database.user":              d.Database.User,
		"database.password":          d.Database.Password,
		"database.name":              d.Database.Name,
		"database.max_open_conns":    d.Database.MaxOpenConns,
		"database.max_idle_conns":    d.Database.MaxIdleConns,
		"database.conn_max_lifetime": d.Database.ConnMaxLifetime,

		"log.level":       d.Log.Level,
		"log.format":      d.Log.Format,
		"log.output":      d.Log.Output,
		"log.file_path":   d.Log.FilePath,
		"log.max_size":    d.Log.MaxSize,
		"log.max_age":     d.Log.MaxAge,
		"log.max_backups": d.Log.MaxBackups,
		"log.compress":    d.Log.Compress,

		"monitoring.enabled":              d.Monitoring.Enabled,
		"monitoring.metrics_path":         d.Monitoring.MetricsPath,
		"monitoring.tracing.enabled":      d.Monitoring.Tracing.Enabled,
		"monitoring.tracing.endpoint":     d.Monitoring.Tracing.Endpoint,
		"monitoring.tracing.insecure":     d.Monitoring.Tracing.Insecure,
		"monitoring.tracing.sample_ratio": d.Monitoring.Tracing.SampleRatio,
		"monitoring.tracing.service_name": d.Monitoring.Tracing.ServiceName,

		"security.cors.enabled":                      d.Security.CORS.Enabled,
		"security.cors.allowed_origins":              d.Security.CORS.AllowedOrigins,
		"security.cors.allowed_methods":              d.Security.CORS.AllowedMethods,
		"security.cors.allowed_headers":              d.Security.CORS.AllowedHeaders,
		"security.rate_limiting.enabled":             d.Security.RateLimiting.Enabled,
		"security.rate_limiting.requests_per_minute": d.Security.RateLimiting.RequestsPerMinute,
		"security.rate_limiting.burst":               d.Security.RateLimiting.Burst,
		"security.rate_limiting.key_header":          d.Security.RateLimiting.KeyHeader,

		"automation.seed_demo":           d.Automation.SeedDemo,
		"automation.suppress_unresolved": d.Automation.SuppressUnresolved,
		"automation.first_match_only":    d.Automation.FirstMatchOnly,
		"automation.event_timeout":       d.Automation.EventTimeout,

		"delivery.workers":                                d.Delivery.Workers,
		"delivery.queue_size":                             d.Delivery.QueueSize,
		"delivery.timeout":                                d.Delivery.Timeout,
		"delivery.latency":                                d.Delivery.Latency,
		"delivery.failure_rate":                           d.Delivery.FailureRate,
		"delivery.circuit_breaker.enabled":                d.Delivery.CircuitBreaker.Enabled,
		"delivery.circuit_breaker.max_failures":           d.Delivery.CircuitBreaker.MaxFailures,
		"delivery.circuit_breaker.reset_timeout":          d.Delivery.CircuitBreaker.ResetTimeout,
		"delivery.circuit_breaker.half_open_max_requests": d.Delivery.CircuitBreaker.HalfOpenMaxReqs,

		"insights.enabled":      d.Insights.Enabled,
		"insights.max_insights": d.Insights.MaxInsights,
		"insights.timeout":      d.Insights.Timeout,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// GetDefaultConfig 返回默认配置
func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:socialpilot?mode=memory&cache=shared",
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "password",
			Name:            "socialpilot",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 3600 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			FilePath:   "./logs/socialpilot.log",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
			Compress:   true,
		},
		Monitoring: MonitoringConfig{
			Enabled:     true,
			MetricsPath: "/metrics",
			Tracing: TracingConfig{
				Enabled:     false,
				Endpoint:    "http://localhost:4317",
				Insecure:    true,
				SampleRatio: 0.1,
				ServiceName: "socialpilot",
			},
		},
		Security: SecurityConfig{
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
				AllowedHeaders: []string{"*"},
			},
			RateLimiting: RateLimitingConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             20,
			},
		},
		Automation: AutomationConfig{
			SeedDemo:           true,
			SuppressUnresolved: false,
			FirstMatchOnly:     false,
			EventTimeout:       5 * time.Second,
		},
		Delivery: DeliveryConfig{
			Workers:     4,
			QueueSize:   256,
			Timeout:     10 * time.Second,
			Latency:     150 * time.Millisecond,
			FailureRate: 0,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:         true,
				MaxFailures:     5,
				ResetTimeout:    60 * time.Second,
				HalfOpenMaxReqs: 3,
			},
		},
		Insights: InsightsConfig{
			Enabled:     true,
			MaxInsights: 3,
			Timeout:     10 * time.Second,
		},
	}
}
