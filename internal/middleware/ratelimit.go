package middleware

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"socialpilot/internal/config"
	"socialpilot/internal/metrics"

	"github.com/gin-gonic/gin"
)

// tokenBucket 令牌桶
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	ratePerSec float64
	burst      float64
}

func newBucket(rpm, burst int, now time.Time) *tokenBucket {
	if rpm <= 0 {
		rpm = 60
	}
	if burst <= 0 {
		burst = rpm
	}
	return &tokenBucket{
		tokens:     float64(burst),
		lastRefill: now,
		ratePerSec: float64(rpm) / 60.0,
		burst:      float64(burst),
	}
}

func (b *tokenBucket) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if elapsed := now.Sub(b.lastRefill).Seconds(); elapsed > 0 {
		b.tokens += elapsed * b.ratePerSec
		if b.tokens > b.burst {
			b.tokens = b.burst
		}
		b.lastRefill = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// limiter 一组按 key 区分的令牌桶
type limiter struct {
	mu      sync.Mutex
	prefix  string
	rpm     int
	burst   int
	buckets map[string]*tokenBucket
}

func (l *limiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = newBucket(l.rpm, l.burst, now)
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.allow(now)
}

// RateLimiter 全局与按路径前缀的限流，key 取自 KeyHeader 或客户端 IP
type RateLimiter struct {
	cfg    config.RateLimitingConfig
	paths  []*limiter
	global *limiter
	now    func() time.Time
}

func NewRateLimiter(cfg config.RateLimitingConfig) *RateLimiter {
	rl := &RateLimiter{cfg: cfg, now: time.Now}
	for _, p := range cfg.Paths {
		if !p.Enabled || p.Prefix == "" || p.RequestsPerMinute <= 0 {
			continue
		}
		rl.paths = append(rl.paths, &limiter{prefix: p.Prefix, rpm: p.RequestsPerMinute, burst: p.Burst, buckets: make(map[string]*tokenBucket)})
	}
	if cfg.RequestsPerMinute > 0 {
		rl.global = &limiter{rpm: cfg.RequestsPerMinute, burst: cfg.Burst, buckets: make(map[string]*tokenBucket)}
	}
	return rl
}

func (rl *RateLimiter) key(c *gin.Context) string {
	if rl.cfg.KeyHeader != "" {
		if v := c.GetHeader(rl.cfg.KeyHeader); v != "" {
			// X-Forwarded-For 取第一个地址
			if strings.EqualFold(rl.cfg.KeyHeader, "X-Forwarded-For") {
				v, _, _ = strings.Cut(v, ",")
			}
			return strings.TrimSpace(v)
		}
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// pick 返回第一个前缀匹配的路径限流器，否则返回全局限流器
func (rl *RateLimiter) pick(path string) *limiter {
	for _, l := range rl.paths {
		if strings.HasPrefix(path, l.prefix) {
			return l
		}
	}
	return rl.global
}

// Middleware 超限时返回 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.cfg.Enabled {
			c.Next()
			return
		}
		key := rl.key(c)
		if slices.Contains(rl.cfg.Whitelist, key) || slices.Contains(rl.cfg.Whitelist, c.ClientIP()) {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		l := rl.pick(path)
		if l == nil || l.allow(key, rl.now()) {
			c.Next()
			return
		}

		metrics.IncRateLimitDrop(l.prefix)
		c.Header("Retry-After", "60")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":   "Too Many Requests",
			"message": "rate limit exceeded",
		})
	}
}

// RateLimitMiddleware 按配置构建限流中间件
func RateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	return NewRateLimiter(cfg.Security.RateLimiting).Middleware()
}
