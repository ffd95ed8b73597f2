package services

import (
	"context"
	"errors"
	"time"

	"socialpilot/internal/automation"
	"socialpilot/internal/config"
	"socialpilot/internal/metrics"
	"socialpilot/internal/models"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// 单条动作在本次事件处理中的结果
const (
	OutcomeQueued  = "queued"
	OutcomePreview = models.RunStatusPreview
	OutcomeSkipped = models.RunStatusSkipped
	OutcomeFailed  = models.RunStatusFailed
)

// ActivityPublisher 接收规则变更与执行结果通知
type ActivityPublisher interface {
	Publish(msgType, accountID string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, interface{}) {}

// EventOptions 单次事件处理选项
type EventOptions struct {
	DryRun         bool
	FirstMatchOnly bool
}

// ActionOutcome 一条命中规则的处理结果
type ActionOutcome struct {
	RuleID   string                    `json:"ruleId"`
	RuleName string                    `json:"ruleName"`
	Action   automation.RenderedAction `json:"action"`
	Status   string                    `json:"status"` // queued, preview, skipped, failed
	Error    string                    `json:"error,omitempty"`
}

// EventResult 事件处理结果，每条命中规则一项
type EventResult struct {
	Event   automation.InboundEvent `json:"event"`
	DryRun  bool                    `json:"dryRun"`
	Matched int                     `json:"matched"`
	Actions []ActionOutcome         `json:"actions"`
}

// RuleView 列表展示用的规则
type RuleView struct {
	automation.AutomationRule
	Status      string             `json:"status"`
	Summary     automation.Summary `json:"summary"`
	AccountName string             `json:"accountName,omitempty"`
	Platform    string             `json:"platform,omitempty"`
}

// AutomationService 规则管理与 事件 -> 匹配 -> 渲染 -> 投递 流水线
type AutomationService struct {
	store    *automation.Store
	queue    *DeliveryQueue
	cfg      config.AutomationConfig
	accounts *AccountService
	runs     *RunLogService
	activity ActivityPublisher
	logger   *logrus.Logger
}

func NewAutomationService(store *automation.Store, deliverer Deliverer, cfg *config.Config, logger *logrus.Logger) *AutomationService {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg == nil {
		cfg = config.GetDefaultConfig()
	}
	s := &AutomationService{
		store:    store,
		cfg:      cfg.Automation,
		activity: noopPublisher{},
		logger:   logger,
	}
	s.queue = NewDeliveryQueue(cfg.Delivery, deliverer, s.completeDelivery, logger)
	return s
}

// SetAccounts 注入账号服务，用于列表中的账号名称与平台
func (s *AutomationService) SetAccounts(accounts *AccountService) { s.accounts = accounts }

// SetRunLog 注入执行记录服务
func (s *AutomationService) SetRunLog(runs *RunLogService) { s.runs = runs }

// SetActivity 注入活动推送
func (s *AutomationService) SetActivity(p ActivityPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	s.activity = p
}

// Start 启动投递 worker
func (s *AutomationService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop 等待已排队的动作投递完成
func (s *AutomationService) Stop() { s.queue.Stop() }

// QueueLen 等待投递的动作数量
func (s *AutomationService) QueueLen() int { return s.queue.Len() }

// Store 返回底层规则存储
func (s *AutomationService) Store() *automation.Store { return s.store }

// List 按存储顺序返回规则，status 为 active 或 paused 时过滤
func (s *AutomationService) List(status string) ([]RuleView, error) {
	if status != "" && status != "active" && status != "paused" {
		return nil, automation.FieldError("status", "status must be active or paused")
	}
	rules := s.store.List()
	out := make([]RuleView, 0, len(rules))
	for _, r := range rules {
		if status != "" && r.Status() != status {
			continue
		}
		out = append(out, s.view(r))
	}
	return out, nil
}

func (s *AutomationService) Get(id string) (RuleView, error) {
	r, err := s.store.Get(id)
	if err != nil {
		return RuleView{}, err
	}
	return s.view(r), nil
}

func (s *AutomationService) Create(in automation.RuleInput) (RuleView, error) {
	r, err := s.store.Create(in)
	if err != nil {
		return RuleView{}, err
	}
	s.logger.WithFields(logrus.Fields{"rule_id": r.ID, "account_id": r.AccountID}).Infof("automation: created rule %q", r.Name)
	s.afterChange(ActivityRuleCreated, r)
	return s.view(r), nil
}

func (s *AutomationService) Update(id string, in automation.RuleInput) (RuleView, error) {
	r, err := s.store.Update(id, in)
	if err != nil {
		return RuleView{}, err
	}
	s.afterChange(ActivityRuleUpdated, r)
	return s.view(r), nil
}

// SetActive 暂停或恢复规则，重复设置相同状态无副作用
func (s *AutomationService) SetActive(id string, active bool) (RuleView, error) {
	if err := s.store.SetActive(id, active); err != nil {
		return RuleView{}, err
	}
	r, err := s.store.Get(id)
	if err != nil {
		return RuleView{}, err
	}
	s.afterChange(ActivityRuleToggled, r)
	return s.view(r), nil
}

// Delete 删除规则，不存在时静默返回
func (s *AutomationService) Delete(id string) {
	r, err := s.store.Get(id)
	s.store.Delete(id)
	if err != nil {
		return
	}
	s.afterChange(ActivityRuleDeleted, r)
}

// Seed 写入固定 ID 的规则，可指定初始启用状态
func (s *AutomationService) Seed(id string, in automation.RuleInput, active bool) error {
	if _, err := s.store.Seed(id, in); err != nil {
		return err
	}
	if !active {
		if err := s.store.SetActive(id, false); err != nil {
			return err
		}
	}
	s.refreshRuleGauge()
	return nil
}

func (s *AutomationService) afterChange(msgType string, r automation.AutomationRule) {
	s.refreshRuleGauge()
	s.activity.Publish(msgType, r.AccountID, s.view(r))
}

func (s *AutomationService) refreshRuleGauge() {
	var active, paused int
	for _, r := range s.store.List() {
		if r.IsActive {
			active++
		} else {
			paused++
		}
	}
	metrics.SetRuleCounts(active, paused)
}

func (s *AutomationService) view(r automation.AutomationRule) RuleView {
	v := RuleView{AutomationRule: r, Status: r.Status(), Summary: automation.Describe(r)}
	if s.accounts != nil {
		if acc, err := s.accounts.Get(r.AccountID); err == nil {
			v.AccountName = acc.DisplayName
			v.Platform = acc.Platform
		}
	}
	return v
}

// HandleEvent 匹配事件并渲染动作；非预览模式下动作进入投递队列，
// 计数只在投递确认成功后增加
func (s *AutomationService) HandleEvent(ctx context.Context, evt automation.InboundEvent, opts EventOptions) (*EventResult, error) {
	tracer := otel.Tracer("socialpilot/automation")
	ctx, span := tracer.Start(ctx, "AutomationService.HandleEvent")
	defer span.End()

	evt, err := automation.ValidateEvent(evt)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("account_id", evt.AccountID),
		attribute.String("event_kind", string(evt.Kind)),
		attribute.Bool("dry_run", opts.DryRun),
	)
	metrics.IncEventReceived(string(evt.Kind))

	if s.cfg.EventTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.EventTimeout)
		defer cancel()
	}

	firstOnly := opts.FirstMatchOnly || s.cfg.FirstMatchOnly
	result := &EventResult{Event: evt, DryRun: opts.DryRun, Actions: []ActionOutcome{}}

	for rule := range automation.MatchSeq(evt, s.store.List()) {
		action := automation.Render(rule, evt)
		outcome := ActionOutcome{RuleID: rule.ID, RuleName: rule.Name, Action: action}

		switch {
		case opts.DryRun:
			outcome.Status = OutcomePreview

		case action.Unresolved() && s.cfg.SuppressUnresolved:
			outcome.Status = OutcomeSkipped
			outcome.Error = action.Warnings[0].String()
			s.recordRun(ctx, rule, evt, action, models.RunStatusSkipped, outcome.Error)
			s.activity.Publish(ActivityRuleSkipped, rule.AccountID, outcome)

		default:
			for _, w := range action.Warnings {
				s.logger.Warnf("automation: %s", w)
			}
			job := DeliveryJob{Action: action, RuleName: rule.Name, EventKind: evt.Kind}
			if err := s.queue.Enqueue(job); err != nil {
				outcome.Status = OutcomeFailed
				outcome.Error = err.Error()
				s.logger.Warnf("automation: enqueue rule %s failed: %v", rule.ID, err)
				s.recordRun(ctx, rule, evt, action, models.RunStatusFailed, err.Error())
				s.activity.Publish(ActivityRuleFailed, rule.AccountID, outcome)
			} else {
				outcome.Status = OutcomeQueued
			}
		}

		metrics.IncActionOutcome(string(action.Kind), outcome.Status)
		span.AddEvent("rule.matched", trace.WithAttributes(
			attribute.String("rule_id", rule.ID),
			attribute.String("status", outcome.Status),
		))
		result.Actions = append(result.Actions, outcome)
		if firstOnly {
			break
		}
	}

	result.Matched = len(result.Actions)
	metrics.AddRulesMatched(evt.AccountID, result.Matched)
	span.SetAttributes(attribute.Int("matched", result.Matched))
	return result, nil
}

// completeDelivery 投递回调：成功才记录触发
func (s *AutomationService) completeDelivery(out DeliveryOutcome) {
	ctx := context.Background()
	if s.cfg.EventTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.EventTimeout)
		defer cancel()
	}

	job := out.Job
	run := &models.AutomationRun{
		RuleID:     job.Action.RuleID,
		RuleName:   job.RuleName,
		AccountID:  job.Action.AccountID,
		EventKind:  string(job.EventKind),
		ActionKind: string(job.Action.Kind),
		Recipient:  job.Action.Recipient,
		Text:       job.Action.Text,
	}

	if out.Err != nil {
		run.Status = models.RunStatusFailed
		run.Message = out.Err.Error()
		s.runs.Record(ctx, run)
		metrics.IncActionOutcome(string(job.Action.Kind), models.RunStatusFailed)
		s.logger.WithFields(logrus.Fields{"rule_id": job.Action.RuleID, "account_id": job.Action.AccountID}).
			Warnf("automation: delivery failed: %v", out.Err)
		s.activity.Publish(ActivityRuleFailed, job.Action.AccountID, run)
		return
	}

	run.Status = models.RunStatusSuccess
	metrics.IncActionOutcome(string(job.Action.Kind), models.RunStatusSuccess)

	rule, err := s.store.RecordTrigger(job.Action.RuleID, time.Now())
	if err != nil {
		if errors.Is(err, automation.ErrNotFound) {
			run.Message = "rule deleted before delivery was confirmed"
		} else {
			run.Message = err.Error()
		}
		s.runs.Record(ctx, run)
		s.logger.Warnf("automation: record trigger for %s: %v", job.Action.RuleID, err)
		return
	}

	s.runs.Record(ctx, run)
	s.activity.Publish(ActivityRuleTriggered, rule.AccountID, s.view(rule))
}

func (s *AutomationService) recordRun(ctx context.Context, rule automation.AutomationRule, evt automation.InboundEvent, action automation.RenderedAction, status, message string) {
	s.runs.Record(ctx, &models.AutomationRun{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		AccountID:  rule.AccountID,
		EventKind:  string(evt.Kind),
		ActionKind: string(action.Kind),
		Status:     status,
		Recipient:  action.Recipient,
		Text:       action.Text,
		Message:    message,
	})
}
