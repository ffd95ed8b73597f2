package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"socialpilot/internal/models"
	"socialpilot/pkg/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrInvalidPost  = errors.New("invalid post")
	ErrUnknownView  = errors.New("unknown post view")
)

// 帖子列表视图
const (
	ViewUpcoming = "upcoming"
	ViewPast     = "past"
	ViewDrafts   = "drafts"
)

// 草稿未指定时间时默认排在一周后
const draftDefaultDelay = 7 * 24 * time.Hour

// CreatePostRequest 创建帖子；ScheduledAt 为空表示立即发布
type CreatePostRequest struct {
	AccountID   string     `json:"accountId"`
	Caption     string     `json:"caption"`
	MediaURL    string     `json:"mediaUrl"`
	MediaType   string     `json:"mediaType"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

// ScheduleService 内存中的帖子排期
type ScheduleService struct {
	mu       sync.RWMutex
	posts    map[string]*models.ScheduledPost
	accounts *AccountService
	now      func() time.Time
	logger   *logrus.Logger
}

func NewScheduleService(accounts *AccountService, logger *logrus.Logger) *ScheduleService {
	if logger == nil {
		logger = logrus.New()
	}
	return &ScheduleService{
		posts:    make(map[string]*models.ScheduledPost),
		accounts: accounts,
		now:      time.Now,
		logger:   logger,
	}
}

// Create 排期帖子；未给时间则直接记为已发布
func (s *ScheduleService) Create(req CreatePostRequest) (models.ScheduledPost, error) {
	if strings.TrimSpace(req.AccountID) == "" {
		return models.ScheduledPost{}, fmt.Errorf("%w: please select an account", ErrInvalidPost)
	}
	if !utils.ValidateMessage(req.Caption) {
		return models.ScheduledPost{}, fmt.Errorf("%w: caption must be 1-%d characters", ErrInvalidPost, utils.MaxMessageLength)
	}
	acc, err := s.account(req.AccountID)
	if err != nil {
		return models.ScheduledPost{}, err
	}

	post := s.newPost(req, acc)
	if req.ScheduledAt != nil {
		post.ScheduledAt = *req.ScheduledAt
		post.Status = models.PostScheduled
	} else {
		post.ScheduledAt = post.CreatedAt
		post.Status = models.PostPosted
	}
	s.put(post)
	s.logger.Infof("Post %s %s for account %s at %s", post.ID, post.Status, post.AccountID, utils.FormatTime(post.ScheduledAt))
	return post, nil
}

// SaveDraft 保存草稿，账号可以暂不选择
func (s *ScheduleService) SaveDraft(req CreatePostRequest) (models.ScheduledPost, error) {
	if strings.TrimSpace(req.Caption) == "" && req.MediaURL == "" {
		return models.ScheduledPost{}, fmt.Errorf("%w: cannot save empty draft", ErrInvalidPost)
	}
	if utf8.RuneCountInString(req.Caption) > utils.MaxMessageLength {
		return models.ScheduledPost{}, fmt.Errorf("%w: caption too long", ErrInvalidPost)
	}

	acc := models.SocialAccount{ID: "unknown", DisplayName: "Unknown Account", Platform: "Unknown"}
	if req.AccountID != "" {
		if found, err := s.account(req.AccountID); err == nil {
			acc = found
		}
	}

	post := s.newPost(req, acc)
	post.Status = models.PostDraft
	post.ScheduledAt = post.CreatedAt.Add(draftDefaultDelay)
	if req.ScheduledAt != nil {
		post.ScheduledAt = *req.ScheduledAt
	}
	s.put(post)
	s.logger.Infof("Draft %s saved", post.ID)
	return post, nil
}

func (s *ScheduleService) account(id string) (models.SocialAccount, error) {
	if s.accounts == nil {
		return models.SocialAccount{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return s.accounts.Get(id)
}

func (s *ScheduleService) newPost(req CreatePostRequest, acc models.SocialAccount) models.ScheduledPost {
	return models.ScheduledPost{
		ID:          uuid.NewString(),
		AccountID:   acc.ID,
		AccountName: acc.DisplayName,
		Platform:    acc.Platform,
		Caption:     req.Caption,
		MediaURL:    req.MediaURL,
		MediaType:   req.MediaType,
		CreatedAt:   s.now(),
	}
}

// Seed 写入固定 ID 的帖子
func (s *ScheduleService) Seed(post models.ScheduledPost) {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now()
	}
	s.put(post)
}

func (s *ScheduleService) put(post models.ScheduledPost) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = &post
}

func (s *ScheduleService) Get(id string) (models.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return models.ScheduledPost{}, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	return *p, nil
}

func (s *ScheduleService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	delete(s.posts, id)
	return nil
}

// List 返回指定视图：
// upcoming 为未到期的排期帖子，时间升序；
// past 为已发布、失败或已过期的排期帖子，时间降序；
// drafts 为草稿，时间降序。
func (s *ScheduleService) List(view string) ([]models.ScheduledPost, error) {
	var keep func(p *models.ScheduledPost, now time.Time) bool
	asc := false
	switch view {
	case ViewUpcoming:
		keep = func(p *models.ScheduledPost, now time.Time) bool {
			return p.Status == models.PostScheduled && !p.ScheduledAt.Before(now)
		}
		asc = true
	case ViewPast:
		keep = func(p *models.ScheduledPost, now time.Time) bool {
			switch p.Status {
			case models.PostPosted, models.PostFailed:
				return true
			case models.PostScheduled:
				return p.ScheduledAt.Before(now)
			}
			return false
		}
	case ViewDrafts:
		keep = func(p *models.ScheduledPost, _ time.Time) bool { return p.Status == models.PostDraft }
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
	}

	now := s.now()
	s.mu.RLock()
	out := make([]models.ScheduledPost, 0, len(s.posts))
	for _, p := range s.posts {
		if keep(p, now) {
			out = append(out, *p)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.ScheduledPost) int {
		c := a.ScheduledAt.Compare(b.ScheduledAt)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if !asc {
			c = -c
		}
		return c
	})
	return out, nil
}

// Counts 各视图的帖子数量
func (s *ScheduleService) Counts() map[string]int {
	counts := make(map[string]int, 3)
	for _, v := range []string{ViewUpcoming, ViewPast, ViewDrafts} {
		list, _ := s.List(v)
		counts[v] = len(list)
	}
	return counts
}
