package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"socialpilot/internal/automation"
	"socialpilot/internal/config"
	"socialpilot/internal/metrics"
	"socialpilot/pkg/utils"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull        = errors.New("delivery queue full")
	ErrQueueStopped     = errors.New("delivery queue stopped")
	ErrInvalidMessage   = errors.New("outbound message is empty or too long")
	ErrSimulatedFailure = errors.New("simulated platform failure")
)

// Deliverer 把渲染后的动作发送到社交平台
type Deliverer interface {
	Deliver(ctx context.Context, action automation.RenderedAction) error
}

// DeliveryJob 一次待投递的动作
type DeliveryJob struct {
	Action     automation.RenderedAction
	RuleName   string
	EventKind  automation.EventKind
	EnqueuedAt time.Time
}

// DeliveryOutcome 投递结果，Err 为空表示平台确认成功
type DeliveryOutcome struct {
	Job      DeliveryJob
	Err      error
	Duration time.Duration
}

// DeliveryQueue 有界队列 + 固定数量的 worker
type DeliveryQueue struct {
	deliverer Deliverer
	jobs      chan DeliveryJob
	workers   int
	timeout   time.Duration
	onDone    func(DeliveryOutcome)
	logger    *logrus.Logger

	mu      sync.RWMutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewDeliveryQueue(cfg config.DeliveryConfig, d Deliverer, onDone func(DeliveryOutcome), logger *logrus.Logger) *DeliveryQueue {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if onDone == nil {
		onDone = func(DeliveryOutcome) {}
	}
	return &DeliveryQueue{
		deliverer: d,
		jobs:      make(chan DeliveryJob, cfg.QueueSize),
		workers:   cfg.Workers,
		timeout:   cfg.Timeout,
		onDone:    onDone,
		logger:    logger,
	}
}

// Start 启动 worker，重复调用无效
func (q *DeliveryQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(q.workers)
	for i := 0; i < q.workers; i++ {
		go q.worker(ctx, i)
	}
	q.logger.Infof("Delivery queue started with %d workers", q.workers)
}

// Stop 停止接收新任务，等待队列中剩余任务处理完毕；
// 未启动时剩余任务以 ErrQueueStopped 结束
func (q *DeliveryQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.jobs)
	started := q.started
	q.mu.Unlock()

	if started {
		q.wg.Wait()
		q.cancel()
	} else {
		for job := range q.jobs {
			err := fmt.Errorf("deliver %s for rule %s: %w", job.Action.Kind, job.Action.RuleID, ErrQueueStopped)
			q.onDone(DeliveryOutcome{Job: job, Err: err})
		}
	}
	metrics.SetQueueDepth(0)
	q.logger.Info("Delivery queue stopped")
}

// Enqueue 非阻塞入队，队列满时返回 ErrQueueFull
func (q *DeliveryQueue) Enqueue(job DeliveryJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return ErrQueueStopped
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	select {
	case q.jobs <- job:
		metrics.SetQueueDepth(len(q.jobs))
		return nil
	default:
		return ErrQueueFull
	}
}

// Len 当前排队数量
func (q *DeliveryQueue) Len() int {
	return len(q.jobs)
}

func (q *DeliveryQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		metrics.SetQueueDepth(len(q.jobs))
		q.onDone(q.deliver(ctx, job))
	}
	q.logger.Debugf("delivery worker %d exited", id)
}

func (q *DeliveryQueue) deliver(ctx context.Context, job DeliveryJob) DeliveryOutcome {
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	start := time.Now()
	err := q.deliverer.Deliver(ctx, job.Action)
	elapsed := time.Since(start)
	metrics.ObserveDelivery(string(job.Action.Kind), elapsed)

	if err != nil {
		err = fmt.Errorf("deliver %s for rule %s: %w", job.Action.Kind, job.Action.RuleID, err)
	}
	return DeliveryOutcome{Job: job, Err: err, Duration: elapsed}
}

// SimulatedDeliverer 演示用投递实现，不调用任何平台 API
type SimulatedDeliverer struct {
	latency     time.Duration
	failureRate float64
	breakers    *BreakerGroup
	random      func() float64
	logger      *logrus.Logger
}

func NewSimulatedDeliverer(cfg config.DeliveryConfig, logger *logrus.Logger) *SimulatedDeliverer {
	if logger == nil {
		logger = logrus.New()
	}
	d := &SimulatedDeliverer{
		latency:     cfg.Latency,
		failureRate: cfg.FailureRate,
		random:      rand.Float64,
		logger:      logger,
	}
	if cfg.CircuitBreaker.Enabled {
		d.breakers = NewBreakerGroup(cfg.CircuitBreaker)
	}
	return d
}

// Deliver 模拟网络延迟与失败，按账号熔断
func (d *SimulatedDeliverer) Deliver(ctx context.Context, action automation.RenderedAction) error {
	if action.Kind.HasTemplate() && !utils.ValidateMessage(action.Text) {
		return ErrInvalidMessage
	}

	send := func() error {
		if d.latency > 0 {
			timer := time.NewTimer(d.latency)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
		if d.failureRate > 0 && d.random() < d.failureRate {
			return ErrSimulatedFailure
		}
		d.logger.WithFields(logrus.Fields{
			"rule_id":    action.RuleID,
			"account_id": action.AccountID,
			"action":     action.Kind,
			"recipient":  action.Recipient,
		}).Info("Simulated action delivered")
		return nil
	}

	if d.breakers == nil {
		return send()
	}
	return d.breakers.For(action.AccountID).Execute(send)
}

// BreakerStates 各账号熔断状态，未启用熔断时为空
func (d *SimulatedDeliverer) BreakerStates() map[string]string {
	if d.breakers == nil {
		return map[string]string{}
	}
	return d.breakers.States()
}
