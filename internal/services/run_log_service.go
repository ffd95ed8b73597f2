package services

import (
	"context"
	"fmt"
	"time"

	"socialpilot/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunListRequest 执行记录查询参数
type RunListRequest struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	RuleID   string `form:"rule_id"`
	Status   string `form:"status"`
}

// RunLogService 记录规则执行结果用于审计
type RunLogService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewRunLogService(db *gorm.DB, logger *logrus.Logger) *RunLogService {
	if logger == nil {
		logger = logrus.New()
	}
	return &RunLogService{db: db, logger: logger}
}

// Enabled 是否配置了数据库
func (s *RunLogService) Enabled() bool {
	return s != nil && s.db != nil
}

// Record 写入一条执行记录，未配置数据库时忽略
func (s *RunLogService) Record(ctx context.Context, run *models.AutomationRun) {
	if !s.Enabled() {
		return
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		s.logger.Warnf("automation: record run failed: %v", err)
	}
}

// List 分页返回执行记录，最新的在前
func (s *RunLogService) List(ctx context.Context, req *RunListRequest) ([]models.AutomationRun, int64, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}
	if !s.Enabled() {
		return []models.AutomationRun{}, 0, nil
	}

	query := s.db.WithContext(ctx).Model(&models.AutomationRun{})
	if req.RuleID != "" {
		query = query.Where("rule_id = ?", req.RuleID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	var runs []models.AutomationRun
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(req.PageSize).Find(&runs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, total, nil
}
