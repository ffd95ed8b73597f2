package automation

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// TriggerType 触发器类型
type TriggerType string

const (
	TriggerCommentKeyword TriggerType = "comment_keyword"
	TriggerNewFollower    TriggerType = "new_follower"
	TriggerDMKeyword      TriggerType = "dm_keyword"

	// legacyTriggerNewFollowerDM is the name older dashboards submit for TriggerNewFollower.
	legacyTriggerNewFollowerDM TriggerType = "new_follower_dm"
)

// ActionType 动作类型
type ActionType string

const (
	ActionReplyToComment    ActionType = "reply_comment"
	ActionSendDirectMessage ActionType = "send_dm"
	ActionLikeContent       ActionType = "like_post"
)

// EventKind identifies what happened on a connected account.
type EventKind string

const (
	EventCommentPosted         EventKind = "comment_posted"
	EventDirectMessageReceived EventKind = "direct_message_received"
	EventNewFollower           EventKind = "new_follower"
)

// UsernamePlaceholder is replaced with the event actor when rendering a template.
const UsernamePlaceholder = "{{username}}"

// Trigger is the IF part of a rule. Keywords is only meaningful for keyword triggers;
// an empty set matches every event of the trigger's kind.
type Trigger struct {
	Type     TriggerType `json:"type"`
	Keywords []string    `json:"keywords,omitempty"`
}

// Action is the THEN part of a rule. Template is empty for ActionLikeContent.
type Action struct {
	Type     ActionType `json:"type"`
	Template string     `json:"template,omitempty"`
}

// AutomationRule is a single IF trigger THEN action rule bound to one account.
type AutomationRule struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	AccountID       string     `json:"accountId"`
	Trigger         Trigger    `json:"trigger"`
	Action          Action     `json:"action"`
	IsActive        bool       `json:"isActive"`
	TriggerCount    int64      `json:"triggerCount"`
	LastTriggeredAt *time.Time `json:"lastTriggeredAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// RuleInput is the user-editable part of a rule, shared by create and update.
type RuleInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	AccountID   string  `json:"accountId"`
	Trigger     Trigger `json:"trigger"`
	Action      Action  `json:"action"`
}

// InboundEvent is an occurrence reported by the event source for one account.
type InboundEvent struct {
	AccountID     string    `json:"accountId"`
	Kind          EventKind `json:"kind"`
	Text          string    `json:"text,omitempty"`
	ActorUsername string    `json:"actorUsername,omitempty"`
	ContentID     string    `json:"contentId,omitempty"`
}

// clone returns a copy that shares no mutable state with r.
func (r AutomationRule) clone() AutomationRule {
	out := r
	if r.Trigger.Keywords != nil {
		out.Trigger.Keywords = append([]string(nil), r.Trigger.Keywords...)
	}
	if r.LastTriggeredAt != nil {
		t := *r.LastTriggeredAt
		out.LastTriggeredAt = &t
	}
	return out
}

// Status reports the externally visible state of the rule.
func (r AutomationRule) Status() string {
	if r.IsActive {
		return "active"
	}
	return "paused"
}

// IsKeyword reports whether the trigger filters on message text.
func (t TriggerType) IsKeyword() bool {
	return t == TriggerCommentKeyword || t == TriggerDMKeyword
}

// EventKind returns the event kind this trigger listens to.
func (t TriggerType) EventKind() EventKind {
	switch t {
	case TriggerCommentKeyword:
		return EventCommentPosted
	case TriggerDMKeyword:
		return EventDirectMessageReceived
	case TriggerNewFollower:
		return EventNewFollower
	default:
		return ""
	}
}

// ParseTriggerType accepts the wire names, including the legacy follower name.
func ParseTriggerType(s string) (TriggerType, bool) {
	switch t := TriggerType(strings.ToLower(strings.TrimSpace(s))); t {
	case TriggerCommentKeyword, TriggerNewFollower, TriggerDMKeyword:
		return t, true
	case legacyTriggerNewFollowerDM:
		return TriggerNewFollower, true
	default:
		return "", false
	}
}

// ParseActionType accepts the wire names of the supported actions.
func ParseActionType(s string) (ActionType, bool) {
	switch a := ActionType(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionReplyToComment, ActionSendDirectMessage, ActionLikeContent:
		return a, true
	default:
		return "", false
	}
}

// ParseEventKind accepts the wire names of inbound events.
func ParseEventKind(s string) (EventKind, bool) {
	switch k := EventKind(strings.ToLower(strings.TrimSpace(s))); k {
	case EventCommentPosted, EventDirectMessageReceived, EventNewFollower:
		return k, true
	default:
		return "", false
	}
}

// HasTemplate reports whether the action sends text.
func (a ActionType) HasTemplate() bool {
	return a == ActionReplyToComment || a == ActionSendDirectMessage
}

// NormalizeKeywords trims entries, drops empty ones and removes case-insensitive
// duplicates, keeping the first spelling seen.
func NormalizeKeywords(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	fold := cases.Fold()
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, kw := range in {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := fold.String(kw)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SplitKeywords parses the comma separated keyword field used by the dashboard form.
func SplitKeywords(raw string) []string {
	return NormalizeKeywords(strings.Split(raw, ","))
}

// ValidateEvent checks that the event names an account and a known kind, and
// trims its identifying fields.
func ValidateEvent(evt InboundEvent) (InboundEvent, error) {
	verr := &ValidationError{}
	evt.AccountID = strings.TrimSpace(evt.AccountID)
	evt.ActorUsername = strings.TrimSpace(evt.ActorUsername)
	evt.ContentID = strings.TrimSpace(evt.ContentID)
	if evt.AccountID == "" {
		verr.add("accountId", "account is required")
	}
	kind, ok := ParseEventKind(string(evt.Kind))
	if !ok {
		verr.add("kind", "unknown event kind")
	}
	evt.Kind = kind
	if err := verr.orNil(); err != nil {
		return InboundEvent{}, err
	}
	return evt, nil
}
