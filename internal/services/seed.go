package services

import (
	"fmt"
	"time"

	"socialpilot/internal/automation"
	"socialpilot/internal/models"
)

var demoAccounts = []models.SocialAccount{
	{ID: "ig1", Platform: models.PlatformInstagram, DisplayName: "My Awesome Biz IG", Username: "@myawesomebiz", Status: models.AccountConnected},
	{ID: "fb1", Platform: models.PlatformFacebook, DisplayName: "My Startup Page FB", Username: "mystartupfb", Status: models.AccountConnected},
	{ID: "x1", Platform: models.PlatformX, DisplayName: "My X Profile", Username: "@myxprofile", Status: models.AccountDisconnected},
}

type demoRule struct {
	id     string
	active bool
	input  automation.RuleInput
}

var demoRules = []demoRule{
	{
		id:     "auto1",
		active: true,
		input: automation.RuleInput{
			Name:      "Welcome New Instagram Followers",
			AccountID: "ig1",
			Trigger:   automation.Trigger{Type: automation.TriggerNewFollower},
			Action: automation.Action{
				Type:     automation.ActionSendDirectMessage,
				Template: "Hey {{username}}! Thanks for following! Check out our latest offers.",
			},
		},
	},
	{
		id:     "auto2",
		active: true,
		input: automation.RuleInput{
			Name:      "Reply to Price Inquiries (FB)",
			AccountID: "fb1",
			Trigger:   automation.Trigger{Type: automation.TriggerCommentKeyword, Keywords: []string{"price", "cost", "how much"}},
			Action: automation.Action{
				Type:     automation.ActionReplyToComment,
				Template: "Thanks for asking, {{username}}! We've sent you a DM with pricing details.",
			},
		},
	},
	{
		id:     "auto3",
		active: false,
		input: automation.RuleInput{
			Name:      "Support Keyword DM (IG)",
			AccountID: "ig1",
			Trigger:   automation.Trigger{Type: automation.TriggerDMKeyword, Keywords: []string{"help", "support", "issue"}},
			Action: automation.Action{
				Type:     automation.ActionSendDirectMessage,
				Template: "Hi {{username}}, sorry you're having trouble. Our support team will get back to you shortly.",
			},
		},
	},
}

// SeedDemo 写入演示账号与规则
func SeedDemo(accounts *AccountService, automations *AutomationService) error {
	for _, acc := range demoAccounts {
		accounts.Seed(acc)
	}
	for _, r := range demoRules {
		if err := automations.Seed(r.id, r.input, r.active); err != nil {
			return fmt.Errorf("seed rule %s: %w", r.id, err)
		}
	}
	return nil
}

type demoPost struct {
	post   models.ScheduledPost
	offset time.Duration
}

var demoPosts = []demoPost{
	{post: models.ScheduledPost{ID: "sp1", AccountID: "ig1", Caption: "Exciting news coming soon! #StayTuned #BigAnnouncement", Status: models.PostScheduled, MediaURL: "https://placehold.co/600x400.png", MediaType: "image"}, offset: 3 * time.Hour},
	{post: models.ScheduledPost{ID: "sp2", AccountID: "fb1", Caption: "Check out our latest blog post on scaling your business. Link in bio!", Status: models.PostScheduled}, offset: 24 * time.Hour},
	{post: models.ScheduledPost{ID: "sp3", AccountID: "ig1", Caption: "Throwback to our first product launch! #TBT", Status: models.PostPosted, MediaURL: "https://placehold.co/600x400.png", MediaType: "image"}, offset: -48 * time.Hour},
	{post: models.ScheduledPost{ID: "sp4", AccountID: "ig1", Caption: "This is a draft post.", Status: models.PostDraft}, offset: 5 * 24 * time.Hour},
}

// SeedDemoPosts 写入演示帖子，时间相对当前时刻
func SeedDemoPosts(posts *ScheduleService) error {
	now := posts.now()
	for _, d := range demoPosts {
		p := d.post
		acc, err := posts.account(p.AccountID)
		if err != nil {
			return fmt.Errorf("seed post %s: %w", p.ID, err)
		}
		p.AccountName = acc.DisplayName
		p.Platform = acc.Platform
		p.ScheduledAt = now.Add(d.offset)
		posts.Seed(p)
	}
	return nil
}
