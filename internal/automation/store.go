package automation

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store owns the automation rules of one workspace. All methods are safe for
// concurrent use; every returned rule is a copy.
type Store struct {
	mu    sync.RWMutex
	order []string
	rules map[string]*AutomationRule

	now   func() time.Time
	newID func() string
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *Store) { s.newID = gen }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		rules: make(map[string]*AutomationRule),
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the input and stores a new active rule with zeroed counters.
func (s *Store) Create(in RuleInput) (AutomationRule, error) {
	clean, err := ValidateInput(in)
	if err != nil {
		return AutomationRule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for _, exists := s.rules[id]; exists; _, exists = s.rules[id] {
		id = s.newID()
	}
	return s.insertLocked(id, clean), nil
}

// Seed loads rules with caller supplied ids, e.g. demo fixtures. Counters and
// activation state are reset the same way Create does.
func (s *Store) Seed(id string, in RuleInput) (AutomationRule, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		verr := &ValidationError{}
		verr.add("id", "id is required")
		return AutomationRule{}, verr
	}
	clean, err := ValidateInput(in)
	if err != nil {
		return AutomationRule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rules[id]; exists {
		verr := &ValidationError{}
		verr.add("id", "duplicate id "+id)
		return AutomationRule{}, verr
	}
	return s.insertLocked(id, clean), nil
}

func (s *Store) insertLocked(id string, clean RuleInput) AutomationRule {
	now := s.now()
	rule := &AutomationRule{
		ID:          id,
		Name:        clean.Name,
		Description: clean.Description,
		AccountID:   clean.AccountID,
		Trigger:     clean.Trigger,
		Action:      clean.Action,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.rules[id] = rule
	s.order = append(s.order, id)
	return rule.clone()
}

// Update replaces the editable fields and keeps id, activation state and counters.
func (s *Store) Update(id string, in RuleInput) (AutomationRule, error) {
	clean, err := ValidateInput(in)
	if err != nil {
		return AutomationRule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[id]
	if !ok {
		return AutomationRule{}, &NotFoundError{ID: id}
	}
	rule.Name = clean.Name
	rule.Description = clean.Description
	rule.AccountID = clean.AccountID
	rule.Trigger = clean.Trigger
	rule.Action = clean.Action
	rule.UpdatedAt = s.now()
	return rule.clone(), nil
}

// SetActive switches a rule between Active and Paused. Setting the current state
// again changes nothing, including UpdatedAt.
func (s *Store) SetActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if rule.IsActive == active {
		return nil
	}
	rule.IsActive = active
	rule.UpdatedAt = s.now()
	return nil
}

// Delete removes the rule. Deleting an unknown id is not an error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return
	}
	delete(s.rules, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Get returns a copy of one rule.
func (s *Store) Get(id string) (AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	if !ok {
		return AutomationRule{}, &NotFoundError{ID: id}
	}
	return rule.clone(), nil
}

// List returns a consistent snapshot in creation order.
func (s *Store) List() []AutomationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AutomationRule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rules[id].clone())
	}
	return out
}

// Len returns the number of stored rules.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// RecordTrigger is the delivery success callback: it bumps the trigger count by one
// and stamps the trigger time under the store lock.
func (s *Store) RecordTrigger(id string, at time.Time) (AutomationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[id]
	if !ok {
		return AutomationRule{}, &NotFoundError{ID: id}
	}
	if at.IsZero() {
		at = s.now()
	}
	rule.TriggerCount++
	rule.LastTriggeredAt = &at
	return rule.clone(), nil
}

// ValidateInput checks the structural invariants of a rule and returns the
// normalised input.
func ValidateInput(in RuleInput) (RuleInput, error) {
	verr := &ValidationError{}
	out := RuleInput{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		AccountID:   strings.TrimSpace(in.AccountID),
	}
	if out.Name == "" {
		verr.add("name", "name is required")
	}
	if out.AccountID == "" {
		verr.add("accountId", "account is required")
	}

	if tt, ok := ParseTriggerType(string(in.Trigger.Type)); !ok {
		if in.Trigger.Type == "" {
			verr.add("trigger.type", "trigger is required")
		} else {
			verr.add("trigger.type", "unsupported trigger type "+string(in.Trigger.Type))
		}
	} else {
		out.Trigger.Type = tt
		if tt.IsKeyword() {
			out.Trigger.Keywords = NormalizeKeywords(in.Trigger.Keywords)
		}
	}

	if at, ok := ParseActionType(string(in.Action.Type)); !ok {
		if in.Action.Type == "" {
			verr.add("action.type", "action is required")
		} else {
			verr.add("action.type", "unsupported action type "+string(in.Action.Type))
		}
	} else {
		out.Action.Type = at
		// 回复内容可以为空，空文本在投递时被拒绝
		if at.HasTemplate() {
			out.Action.Template = strings.TrimSpace(in.Action.Template)
		}
	}

	if err := verr.orNil(); err != nil {
		return RuleInput{}, err
	}
	return out, nil
}
