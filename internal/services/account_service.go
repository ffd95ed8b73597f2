package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"socialpilot/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// ConnectAccountRequest 连接新账号（模拟 OAuth）
type ConnectAccountRequest struct {
	Platform    string `json:"platform" binding:"required"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
}

// AccountService 内存中的社交账号注册表
type AccountService struct {
	mu       sync.RWMutex
	order    []string
	accounts map[string]*models.SocialAccount
	now      func() time.Time
	logger   *logrus.Logger
}

func NewAccountService(logger *logrus.Logger) *AccountService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AccountService{
		accounts: make(map[string]*models.SocialAccount),
		now:      time.Now,
		logger:   logger,
	}
}

// NormalizePlatform 返回平台的规范名称
func NormalizePlatform(p string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "instagram":
		return models.PlatformInstagram, true
	case "facebook":
		return models.PlatformFacebook, true
	case "x", "twitter":
		return models.PlatformX, true
	}
	return "", false
}

// List 按添加顺序返回所有账号
func (s *AccountService) List() []models.SocialAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SocialAccount, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.accounts[id])
	}
	return out
}

func (s *AccountService) Get(id string) (models.SocialAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return models.SocialAccount{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return *acc, nil
}

// Connect 模拟完成 OAuth 后添加账号
func (s *AccountService) Connect(req ConnectAccountRequest) (models.SocialAccount, error) {
	platform, ok := NormalizePlatform(req.Platform)
	if !ok {
		return models.SocialAccount{}, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, req.Platform)
	}

	id := uuid.NewString()
	acc := models.SocialAccount{
		ID:          id,
		Platform:    platform,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Username:    strings.TrimSpace(req.Username),
		Status:      models.AccountConnected,
		ConnectedAt: s.now(),
	}
	if acc.DisplayName == "" {
		acc.DisplayName = fmt.Sprintf("New %s Account", platform)
	}
	if acc.Username == "" {
		acc.Username = fmt.Sprintf("@new_%s_%s", strings.ToLower(platform), id[len(id)-4:])
	}

	s.put(acc)
	s.logger.Infof("Connected %s account %s (%s)", platform, acc.ID, acc.DisplayName)
	return acc, nil
}

// Seed 写入固定 ID 的账号，已存在时覆盖
func (s *AccountService) Seed(acc models.SocialAccount) {
	if acc.ConnectedAt.IsZero() {
		acc.ConnectedAt = s.now()
	}
	s.put(acc)
}

func (s *AccountService) put(acc models.SocialAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[acc.ID]; !exists {
		s.order = append(s.order, acc.ID)
	}
	s.accounts[acc.ID] = &acc
}

// Reconnect 重新授权，状态回到 connected
func (s *AccountService) Reconnect(id string) (models.SocialAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return models.SocialAccount{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	acc.Status = models.AccountConnected
	acc.ConnectedAt = s.now()
	return *acc, nil
}

// Remove 删除账号，不会级联删除其规则
func (s *AccountService) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	delete(s.accounts, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
