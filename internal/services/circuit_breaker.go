package services

import (
	"errors"
	"sync"
	"time"

	"socialpilot/internal/config"
)

// ErrCircuitOpen 账号熔断期间拒绝投递
var ErrCircuitOpen = errors.New("circuit breaker open")

// BreakerState 熔断器状态
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // 正常放行
	BreakerOpen                         // 熔断
	BreakerHalfOpen                     // 试探
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker 单个账号的投递熔断器
type CircuitBreaker struct {
	cfg          config.CircuitBreakerConfig
	now          func() time.Time
	mu           sync.Mutex
	state        BreakerState
	failures     int
	openedAt     time.Time
	halfOpenReqs int
}

// NewCircuitBreaker 使用配置创建熔断器，零值字段取默认
func NewCircuitBreaker(cfg config.CircuitBreakerConfig) *CircuitBreaker {
	def := config.GetDefaultConfig().Delivery.CircuitBreaker
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMaxReqs <= 0 {
		cfg.HalfOpenMaxReqs = def.HalfOpenMaxReqs
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Allow 检查是否允许一次投递
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.ResetTimeout {
			return false
		}
		cb.state = BreakerHalfOpen
		cb.halfOpenReqs = 1
		return true
	case BreakerHalfOpen:
		if cb.halfOpenReqs < cb.cfg.HalfOpenMaxReqs {
			cb.halfOpenReqs++
			return true
		}
		return false
	}
	return false
}

// OnSuccess 记录成功
func (cb *CircuitBreaker) OnSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = BreakerClosed
	cb.failures = 0
	cb.halfOpenReqs = 0
}

// OnFailure 记录失败，达到阈值或半开失败时熔断
func (cb *CircuitBreaker) OnFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == BreakerHalfOpen || cb.failures >= cb.cfg.MaxFailures {
		cb.state = BreakerOpen
		cb.openedAt = cb.now()
		cb.halfOpenReqs = 0
	}
}

// Execute 在熔断器保护下执行 fn
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}
	if err := fn(); err != nil {
		cb.OnFailure()
		return err
	}
	cb.OnSuccess()
	return nil
}

// State 获取当前状态
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats 获取熔断器统计信息
func (cb *CircuitBreaker) Stats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return map[string]interface{}{
		"state":         cb.state.String(),
		"failure_count": cb.failures,
		"max_failures":  cb.cfg.MaxFailures,
		"reset_timeout": cb.cfg.ResetTimeout.String(),
	}
}

// BreakerGroup 按账号懒加载熔断器
type BreakerGroup struct {
	cfg      config.CircuitBreakerConfig
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

func NewBreakerGroup(cfg config.CircuitBreakerConfig) *BreakerGroup {
	return &BreakerGroup{cfg: cfg, breakers: make(map[string]*CircuitBreaker)}
}

// For 返回账号对应的熔断器
func (g *BreakerGroup) For(accountID string) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb, ok := g.breakers[accountID]
	if !ok {
		cb = NewCircuitBreaker(g.cfg)
		g.breakers[accountID] = cb
	}
	return cb
}

// States 返回所有账号的熔断状态
func (g *BreakerGroup) States() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]string, len(g.breakers))
	for id, cb := range g.breakers {
		out[id] = cb.State().String()
	}
	return out
}
