package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"socialpilot/internal/automation"
	"socialpilot/internal/config"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrInsightsDisabled 洞察功能被配置关闭
var ErrInsightsDisabled = errors.New("insights disabled")

const minRecentPostData = 10

// InsightsRequest 账号表现数据
type InsightsRequest struct {
	FollowerCount  int     `json:"followerCount"`
	EngagementRate float64 `json:"engagementRate"`
	PostFrequency  string  `json:"postFrequency"`
	TimePeriod     string  `json:"timePeriod"`
	RecentPostData string  `json:"recentPostData"`
}

// InsightsResult 总结与可执行建议
type InsightsResult struct {
	Summary  string   `json:"summary"`
	Insights []string `json:"insights"`
	Prompt   string   `json:"prompt,omitempty"`
}

// InsightsService 基于提示词模板生成表现洞察，不调用真实模型
type InsightsService struct {
	cfg    config.InsightsConfig
	logger *logrus.Logger
}

func NewInsightsService(cfg config.InsightsConfig, logger *logrus.Logger) *InsightsService {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.MaxInsights <= 0 {
		cfg.MaxInsights = 3
	}
	return &InsightsService{cfg: cfg, logger: logger}
}

// Validate 校验输入，返回按字段汇总的错误
func (req InsightsRequest) Validate() error {
	fields := map[string]string{}
	if req.FollowerCount < 0 {
		fields["followerCount"] = "follower count cannot be negative"
	}
	if req.EngagementRate < 0 || req.EngagementRate > 100 {
		fields["engagementRate"] = "engagement rate must be between 0 and 100"
	}
	if strings.TrimSpace(req.PostFrequency) == "" {
		fields["postFrequency"] = "post frequency is required"
	}
	if strings.TrimSpace(req.TimePeriod) == "" {
		fields["timePeriod"] = "time period is required"
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.RecentPostData)) < minRecentPostData {
		fields["recentPostData"] = fmt.Sprintf("recent post data must be at least %d characters", minRecentPostData)
	}
	if len(fields) == 0 {
		return nil
	}
	return &automation.ValidationError{Fields: fields}
}

// Generate 校验输入、构建提示词并给出确定性的建议
func (s *InsightsService) Generate(ctx context.Context, req InsightsRequest) (*InsightsResult, error) {
	tracer := otel.Tracer("socialpilot/insights")
	_, span := tracer.Start(ctx, "InsightsService.Generate")
	span.SetAttributes(
		attribute.Int("follower_count", req.FollowerCount),
		attribute.Float64("engagement_rate", req.EngagementRate),
	)
	defer span.End()

	if !s.cfg.Enabled {
		span.SetStatus(codes.Error, ErrInsightsDisabled.Error())
		return nil, ErrInsightsDisabled
	}
	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	prompt := s.buildPrompt(req)
	result := &InsightsResult{
		Summary:  summarize(req),
		Insights: s.suggest(req),
		Prompt:   prompt,
	}
	s.logger.WithFields(logrus.Fields{
		"followers":  req.FollowerCount,
		"engagement": req.EngagementRate,
		"insights":   len(result.Insights),
	}).Info("Generated performance insights")
	return result, nil
}

func (s *InsightsService) buildPrompt(req InsightsRequest) string {
	return fmt.Sprintf(`You are a social media marketing expert. Analyze the following social media performance data and provide actionable insights to improve engagement.

Follower Count: %d
Engagement Rate: %.2f%%
Post Frequency: %s
Time Period: %s
Recent Post Data: %s

Summary:
Insights:`, req.FollowerCount, req.EngagementRate, strings.TrimSpace(req.PostFrequency),
		strings.TrimSpace(req.TimePeriod), strings.TrimSpace(req.RecentPostData))
}

func engagementBand(rate float64) string {
	switch {
	case rate >= 6:
		return "excellent"
	case rate >= 3:
		return "healthy"
	case rate >= 1:
		return "below average"
	default:
		return "low"
	}
}

func summarize(req InsightsRequest) string {
	return fmt.Sprintf("Over %s, the account reached %d followers posting %s with %s engagement (%.1f%%).",
		strings.TrimSpace(req.TimePeriod), req.FollowerCount, strings.ToLower(strings.TrimSpace(req.PostFrequency)),
		engagementBand(req.EngagementRate), req.EngagementRate)
}

func (s *InsightsService) suggest(req InsightsRequest) []string {
	var out []string
	switch engagementBand(req.EngagementRate) {
	case "low", "below average":
		out = append(out, "Engagement is under 3%: ask a direct question in captions and reply to every comment within the first hour.")
	case "excellent":
		out = append(out, "Engagement is strong: repurpose your top posts into stories and reels to reach new followers.")
	default:
		out = append(out, "Engagement is steady: test one new content format per week and compare it against your baseline.")
	}

	freq := strings.ToLower(req.PostFrequency)
	switch {
	case strings.Contains(freq, "month"):
		out = append(out, "Posting monthly is too sparse for most feeds; move to at least weekly posts.")
	case strings.Contains(freq, "week"):
		out = append(out, "Try adding one or two extra posts per week at your audience's peak hours.")
	case strings.Contains(freq, "daily"), strings.Contains(freq, "day"):
		out = append(out, "Daily posting is good; keep quality consistent and watch for drops in reach per post.")
	}

	if req.FollowerCount < 1000 {
		out = append(out, "Use keyword automations to reply to comments instantly; fast replies help small accounts grow.")
	} else {
		out = append(out, "Set up DM keyword automations so support questions from your larger audience get answered right away.")
	}

	if len(out) > s.cfg.MaxInsights {
		out = out[:s.cfg.MaxInsights]
	}
	return out
}
