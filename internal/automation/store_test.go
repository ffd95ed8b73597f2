package automation

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs() func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("rule-%d", n)
	}
}

func priceRuleInput() RuleInput {
	return RuleInput{
		Name:      "Reply to Price Inquiries",
		AccountID: "fb1",
		Trigger:   Trigger{Type: TriggerCommentKeyword, Keywords: []string{"price", "cost"}},
		Action:    Action{Type: ActionReplyToComment, Template: "Thanks for asking, {{username}}!"},
	}
}

func TestStore_Create_Defaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(fixedClock(now)), WithIDGenerator(sequentialIDs()))

	rule, err := s.Create(priceRuleInput())
	require.NoError(t, err)

	assert.Equal(t, "rule-1", rule.ID)
	assert.True(t, rule.IsActive)
	assert.Zero(t, rule.TriggerCount)
	assert.Nil(t, rule.LastTriggeredAt)
	assert.Equal(t, now, rule.CreatedAt)
	assert.Equal(t, []string{"price", "cost"}, rule.Trigger.Keywords)
}

func TestStore_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RuleInput)
		field  string
	}{
		{"empty name", func(in *RuleInput) { in.Name = "   " }, "name"},
		{"missing account", func(in *RuleInput) { in.AccountID = "" }, "accountId"},
		{"missing trigger", func(in *RuleInput) { in.Trigger = Trigger{} }, "trigger.type"},
		{"unknown trigger", func(in *RuleInput) { in.Trigger.Type = "story_mention" }, "trigger.type"},
		{"missing action", func(in *RuleInput) { in.Action = Action{} }, "action.type"},
		{"unknown action", func(in *RuleInput) { in.Action.Type = "follow_back" }, "action.type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			in := priceRuleInput()
			tt.mutate(&in)

			_, err := s.Create(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
			assert.Zero(t, s.Len(), "failed create must not store anything")
		})
	}
}

func TestStore_Create_AllowsEmptyTemplate(t *testing.T) {
	s := NewStore()
	in := priceRuleInput()
	in.Action.Template = "   "

	rule, err := s.Create(in)
	require.NoError(t, err)
	assert.Equal(t, ActionReplyToComment, rule.Action.Type)
	assert.Empty(t, rule.Action.Template)
}

func TestStore_Create_ReportsAllFields(t *testing.T) {
	_, err := NewStore().Create(RuleInput{})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 4)
}

func TestStore_Create_NormalisesInput(t *testing.T) {
	s := NewStore()

	rule, err := s.Create(RuleInput{
		Name:      "  Support  ",
		AccountID: "ig1",
		Trigger:   Trigger{Type: TriggerDMKeyword, Keywords: []string{" help", "", "HELP", "support ", "  "}},
		Action:    Action{Type: ActionLikeContent, Template: "ignored"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Support", rule.Name)
	assert.Equal(t, []string{"help", "support"}, rule.Trigger.Keywords)
	assert.Empty(t, rule.Action.Template)
}

func TestStore_Create_EmptyKeywordsMeansAny(t *testing.T) {
	rule, err := NewStore().Create(RuleInput{
		Name:      "Any comment",
		AccountID: "ig1",
		Trigger:   Trigger{Type: TriggerCommentKeyword, Keywords: []string{" ", ""}},
		Action:    Action{Type: ActionLikeContent},
	})
	require.NoError(t, err)
	assert.Nil(t, rule.Trigger.Keywords)
}

func TestStore_Create_LegacyFollowerTrigger(t *testing.T) {
	rule, err := NewStore().Create(RuleInput{
		Name:      "Welcome",
		AccountID: "ig1",
		Trigger:   Trigger{Type: "new_follower_dm", Keywords: []string{"dropped"}},
		Action:    Action{Type: ActionSendDirectMessage, Template: "Hey {{username}}!"},
	})
	require.NoError(t, err)
	assert.Equal(t, TriggerNewFollower, rule.Trigger.Type)
	assert.Nil(t, rule.Trigger.Keywords)
}

func TestStore_Update_PreservesIdentityAndCounters(t *testing.T) {
	s := NewStore()
	created, err := s.Create(priceRuleInput())
	require.NoError(t, err)

	firedAt := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	_, err = s.RecordTrigger(created.ID, firedAt)
	require.NoError(t, err)
	require.NoError(t, s.SetActive(created.ID, false))

	in := priceRuleInput()
	in.Name = "Pricing replies"
	in.Trigger = Trigger{Type: TriggerDMKeyword, Keywords: []string{"quote"}}
	updated, err := s.Update(created.ID, in)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Pricing replies", updated.Name)
	assert.Equal(t, TriggerDMKeyword, updated.Trigger.Type)
	assert.Equal(t, int64(1), updated.TriggerCount)
	require.NotNil(t, updated.LastTriggeredAt)
	assert.Equal(t, firedAt, *updated.LastTriggeredAt)
	assert.False(t, updated.IsActive)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestStore_Update_NotFound(t *testing.T) {
	_, err := NewStore().Update("missing", priceRuleInput())

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing", nf.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_Update_InvalidLeavesRuleUntouched(t *testing.T) {
	s := NewStore()
	created, err := s.Create(priceRuleInput())
	require.NoError(t, err)

	in := priceRuleInput()
	in.Name = ""
	_, err = s.Update(created.ID, in)
	require.ErrorIs(t, err, ErrValidation)

	got, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestStore_SetActive_Idempotent(t *testing.T) {
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(func() time.Time { return clock }))
	created, err := s.Create(priceRuleInput())
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	require.NoError(t, s.SetActive(created.ID, true))
	once, _ := s.Get(created.ID)

	clock = clock.Add(time.Minute)
	require.NoError(t, s.SetActive(created.ID, true))
	twice, _ := s.Get(created.ID)

	assert.Equal(t, once, twice)
	assert.True(t, twice.IsActive)

	require.NoError(t, s.SetActive(created.ID, false))
	paused, _ := s.Get(created.ID)
	assert.False(t, paused.IsActive)
	assert.Equal(t, "paused", paused.Status())
}

func TestStore_SetActive_NotFound(t *testing.T) {
	err := NewStore().SetActive("nope", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete_Idempotent(t *testing.T) {
	s := NewStore(WithIDGenerator(sequentialIDs()))
	a, _ := s.Create(priceRuleInput())
	b, _ := s.Create(priceRuleInput())

	s.Delete(a.ID)
	s.Delete(a.ID)
	s.Delete("never-existed")

	rules := s.List()
	require.Len(t, rules, 1)
	assert.Equal(t, b.ID, rules[0].ID)

	_, err := s.Get(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_List_InsertionOrderAndStable(t *testing.T) {
	s := NewStore(WithIDGenerator(sequentialIDs()))
	for i := 0; i < 3; i++ {
		_, err := s.Create(priceRuleInput())
		require.NoError(t, err)
	}
	// updates and toggles must not reorder
	_, err := s.Update("rule-1", priceRuleInput())
	require.NoError(t, err)
	require.NoError(t, s.SetActive("rule-2", false))

	var ids []string
	for _, r := range s.List() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"rule-1", "rule-2", "rule-3"}, ids)
}

func TestStore_List_ReturnsCopies(t *testing.T) {
	s := NewStore()
	created, _ := s.Create(priceRuleInput())

	snapshot := s.List()
	snapshot[0].Trigger.Keywords[0] = "mutated"
	snapshot[0].TriggerCount = 99

	got, _ := s.Get(created.ID)
	assert.Equal(t, "price", got.Trigger.Keywords[0])
	assert.Zero(t, got.TriggerCount)
}

func TestStore_Seed(t *testing.T) {
	s := NewStore()
	rule, err := s.Seed("auto1", priceRuleInput())
	require.NoError(t, err)
	assert.Equal(t, "auto1", rule.ID)

	_, err = s.Seed("auto1", priceRuleInput())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.Seed(" ", priceRuleInput())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStore_RecordTrigger_ConcurrentIncrements(t *testing.T) {
	s := NewStore()
	created, _ := s.Create(priceRuleInput())

	const workers = 50
	const perWorker = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := s.RecordTrigger(created.ID, time.Now())
				assert.NoError(t, err)
				_ = s.List()
			}
		}()
	}
	wg.Wait()

	got, _ := s.Get(created.ID)
	assert.Equal(t, int64(workers*perWorker), got.TriggerCount)
	assert.NotNil(t, got.LastTriggeredAt)
}

func TestStore_RecordTrigger_DeletedRule(t *testing.T) {
	s := NewStore()
	created, _ := s.Create(priceRuleInput())
	s.Delete(created.ID)

	_, err := s.RecordTrigger(created.ID, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"price", "cost", "how much"}, SplitKeywords("price, cost,, how much ,PRICE"))
	assert.Nil(t, SplitKeywords(" , "))
}
