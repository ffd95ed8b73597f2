package automation

import (
	"fmt"
	"strings"

	"socialpilot/pkg/utils"
)

// RenderedAction is the concrete instruction handed to the delivery collaborator.
type RenderedAction struct {
	RuleID    string                  `json:"ruleId"`
	Kind      ActionType              `json:"kind"`
	Text      string                  `json:"text,omitempty"`
	AccountID string                  `json:"accountId"`
	ContentID string                  `json:"contentId,omitempty"`
	Recipient string                  `json:"recipient,omitempty"`
	Warnings  []MissingContextWarning `json:"warnings,omitempty"`
}

// Unresolved reports whether rendering left placeholders in the text.
func (a RenderedAction) Unresolved() bool {
	return len(a.Warnings) > 0
}

// Render substitutes the event context into the rule's template. A missing actor
// username leaves the placeholder intact and adds a MissingContextWarning; the
// caller decides whether to send or suppress such an action.
func Render(rule AutomationRule, evt InboundEvent) RenderedAction {
	out := RenderedAction{
		RuleID:    rule.ID,
		Kind:      rule.Action.Type,
		AccountID: rule.AccountID,
		ContentID: evt.ContentID,
		Recipient: evt.ActorUsername,
	}
	if !rule.Action.Type.HasTemplate() {
		return out
	}

	text := rule.Action.Template
	if strings.Contains(text, UsernamePlaceholder) {
		if evt.ActorUsername != "" {
			text = strings.ReplaceAll(text, UsernamePlaceholder, evt.ActorUsername)
		} else {
			out.Warnings = append(out.Warnings, MissingContextWarning{
				RuleID:      rule.ID,
				Placeholder: UsernamePlaceholder,
			})
		}
	}
	out.Text = text
	return out
}

// RenderAll renders every matched rule for the same event.
func RenderAll(rules []AutomationRule, evt InboundEvent) []RenderedAction {
	out := make([]RenderedAction, 0, len(rules))
	for _, r := range rules {
		out = append(out, Render(r, evt))
	}
	return out
}

const summaryTemplateLimit = 30

// Summary holds the human readable trigger and action lines shown in rule lists.
type Summary struct {
	Trigger string `json:"trigger"`
	Action  string `json:"action"`
}

// Describe builds the list-view summary of a rule.
func Describe(rule AutomationRule) Summary {
	keywords := "any keyword"
	if len(rule.Trigger.Keywords) > 0 {
		keywords = strings.Join(rule.Trigger.Keywords, ", ")
	}

	var s Summary
	switch rule.Trigger.Type {
	case TriggerCommentKeyword:
		s.Trigger = "Comment includes: " + keywords
	case TriggerDMKeyword:
		s.Trigger = "DM includes: " + keywords
	case TriggerNewFollower:
		s.Trigger = "New follower"
	}

	switch rule.Action.Type {
	case ActionReplyToComment:
		s.Action = fmt.Sprintf("Reply: %q", utils.Truncate(rule.Action.Template, summaryTemplateLimit))
	case ActionSendDirectMessage:
		s.Action = fmt.Sprintf("Send DM: %q", utils.Truncate(rule.Action.Template, summaryTemplateLimit))
	case ActionLikeContent:
		s.Action = "Like the content"
	}
	return s
}
