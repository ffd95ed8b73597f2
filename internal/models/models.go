package models

import "time"

// 执行记录状态
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
	RunStatusSkipped = "skipped"
	RunStatusPreview = "preview"
)

// AutomationRun 规则执行记录用于审计
type AutomationRun struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RuleID     string    `gorm:"size:64;index" json:"rule_id"`
	RuleName   string    `json:"rule_name"`
	AccountID  string    `gorm:"size:64;index" json:"account_id"`
	EventKind  string    `gorm:"size:64" json:"event_kind"`
	ActionKind string    `gorm:"size:64" json:"action_kind"`
	Status     string    `gorm:"size:16;index" json:"status"` // success, failed, skipped
	Recipient  string    `json:"recipient,omitempty"`
	Text       string    `gorm:"type:text" json:"text,omitempty"`
	Message    string    `gorm:"type:text" json:"message,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// 账号连接状态
const (
	AccountConnected    = "connected"
	AccountNeedsReauth  = "needs_reauth"
	AccountDisconnected = "disconnected"
)

// 支持的平台
const (
	PlatformInstagram = "Instagram"
	PlatformFacebook  = "Facebook"
	PlatformX         = "X"
)

// SocialAccount 已连接的社交账号
type SocialAccount struct {
	ID          string    `json:"id"`
	Platform    string    `json:"platform"`
	DisplayName string    `json:"displayName"`
	Username    string    `json:"username"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Status      string    `json:"status"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// 帖子状态
const (
	PostScheduled = "scheduled"
	PostPosted    = "posted"
	PostFailed    = "failed"
	PostDraft     = "draft"
)

// ScheduledPost 排期、已发布或草稿状态的帖子
type ScheduledPost struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	AccountName string    `json:"accountName"`
	Platform    string    `json:"platform"`
	Caption     string    `json:"caption"`
	MediaURL    string    `json:"mediaUrl,omitempty"`
	MediaType   string    `json:"mediaType,omitempty"` // image, video
	ScheduledAt time.Time `json:"scheduledAt"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}
