package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(id, account string, trig Trigger, active bool) AutomationRule {
	return AutomationRule{
		ID:        id,
		Name:      id,
		AccountID: account,
		Trigger:   trig,
		Action:    Action{Type: ActionLikeContent},
		IsActive:  active,
	}
}

func ids(rules []AutomationRule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.ID)
	}
	return out
}

func TestMatch_KeywordCaseInsensitive(t *testing.T) {
	r := rule("price", "A", Trigger{Type: TriggerCommentKeyword, Keywords: []string{"price", "cost"}}, true)
	evt := InboundEvent{AccountID: "A", Kind: EventCommentPosted, Text: "what's the PRICE?"}

	assert.Equal(t, []string{"price"}, ids(Match(evt, []AutomationRule{r})))
}

func TestMatch_UnicodeFolding(t *testing.T) {
	r := rule("ecole", "A", Trigger{Type: TriggerDMKeyword, Keywords: []string{"ÉCOLE"}}, true)
	evt := InboundEvent{AccountID: "A", Kind: EventDirectMessageReceived, Text: "Quand ouvre l'école ?"}

	assert.True(t, Matches(r, evt))
}

func TestMatch_Filters(t *testing.T) {
	r := rule("price", "A", Trigger{Type: TriggerCommentKeyword, Keywords: []string{"price", "cost"}}, true)

	tests := []struct {
		name string
		evt  InboundEvent
		want bool
	}{
		{"matching", InboundEvent{AccountID: "A", Kind: EventCommentPosted, Text: "cost?"}, true},
		{"other account", InboundEvent{AccountID: "B", Kind: EventCommentPosted, Text: "price?"}, false},
		{"dm instead of comment", InboundEvent{AccountID: "A", Kind: EventDirectMessageReceived, Text: "price?"}, false},
		{"follow event", InboundEvent{AccountID: "A", Kind: EventNewFollower}, false},
		{"no keyword", InboundEvent{AccountID: "A", Kind: EventCommentPosted, Text: "love it"}, false},
		{"empty text", InboundEvent{AccountID: "A", Kind: EventCommentPosted}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(r, tt.evt))
		})
	}
}

func TestMatch_EmptyKeywordsMatchAny(t *testing.T) {
	r := rule("any", "A", Trigger{Type: TriggerCommentKeyword}, true)

	for _, text := range []string{"", "hello", "PRICE"} {
		evt := InboundEvent{AccountID: "A", Kind: EventCommentPosted, Text: text}
		assert.True(t, Matches(r, evt), "text %q", text)
	}
	assert.False(t, Matches(r, InboundEvent{AccountID: "B", Kind: EventCommentPosted, Text: "hello"}))
}

func TestMatch_NewFollower(t *testing.T) {
	r := rule("welcome", "ig1", Trigger{Type: TriggerNewFollower}, true)

	assert.True(t, Matches(r, InboundEvent{AccountID: "ig1", Kind: EventNewFollower, ActorUsername: "bob"}))
	assert.False(t, Matches(r, InboundEvent{AccountID: "ig1", Kind: EventCommentPosted, Text: "follow"}))
}

func TestMatch_PausedNeverMatches(t *testing.T) {
	rules := []AutomationRule{
		rule("paused-any", "A", Trigger{Type: TriggerCommentKeyword}, false),
		rule("paused-kw", "A", Trigger{Type: TriggerCommentKeyword, Keywords: []string{"price"}}, false),
	}
	evt := InboundEvent{AccountID: "A", Kind: EventCommentPosted, Text: "price"}

	assert.Empty(t, Match(evt, rules))
}

func TestMatch_AllMatchesInRuleOrder(t *testing.T) {
	rules := []AutomationRule{
		rule("r1", "A", Trigger{Type: TriggerCommentKeyword, Keywords: []string{"help"}}, true),
		rule("r2", "A", Trigger{Type: TriggerDMKeyword, Keywords: []string{"help"}}, true),
		rule("r3", "A", Trigger{Type: TriggerCommentKeyword}, true),
		rule("r4", "A", Trigger{Type: TriggerCommentKeyword, Keywords: []string{"please"}}, true),
	}
	evt := InboundEvent{AccountID: "A", Kind: EventCommentPosted, Text: "help please"}

	assert.Equal(t, []string{"r1", "r3", "r4"}, ids(Match(evt, rules)))
}

func TestMatchSeq_LazyAndRestartable(t *testing.T) {
	rules := []AutomationRule{
		rule("r1", "A", Trigger{Type: TriggerCommentKeyword}, true),
		rule("r2", "A", Trigger{Type: TriggerCommentKeyword}, true),
		rule("r3", "A", Trigger{Type: TriggerCommentKeyword}, true),
	}
	evt := InboundEvent{AccountID: "A", Kind: EventCommentPosted, Text: "hi"}
	seq := MatchSeq(evt, rules)

	var first string
	for r := range seq {
		first = r.ID
		break
	}
	assert.Equal(t, "r1", first)

	var all []string
	for r := range seq {
		all = append(all, r.ID)
	}
	assert.Equal(t, []string{"r1", "r2", "r3"}, all)
}

func TestMatch_DoesNotMutateRules(t *testing.T) {
	rules := []AutomationRule{rule("r1", "A", Trigger{Type: TriggerCommentKeyword}, true)}
	before := rules[0].clone()

	matched := Match(InboundEvent{AccountID: "A", Kind: EventCommentPosted, Text: "hi"}, rules)
	require.Len(t, matched, 1)

	assert.Equal(t, before, rules[0])
	assert.Zero(t, matched[0].TriggerCount)
	assert.Nil(t, matched[0].LastTriggeredAt)
}

func TestValidateEvent(t *testing.T) {
	evt, err := ValidateEvent(InboundEvent{AccountID: " ig1 ", Kind: "Comment_Posted", ActorUsername: " bob "})
	require.NoError(t, err)
	assert.Equal(t, "ig1", evt.AccountID)
	assert.Equal(t, EventCommentPosted, evt.Kind)
	assert.Equal(t, "bob", evt.ActorUsername)

	_, err = ValidateEvent(InboundEvent{Kind: "story_reply"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "accountId")
	assert.Contains(t, verr.Fields, "kind")
}
