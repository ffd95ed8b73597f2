package automation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates the referenced rule does not exist.
	ErrNotFound = errors.New("automation rule not found")
	// ErrValidation indicates malformed rule or event data.
	ErrValidation = errors.New("invalid automation data")
)

// ValidationError collects per-field messages so callers can show them next to each field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NotFoundError names the rule id that could not be resolved.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotFound, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// MissingContextWarning is non-fatal: a template placeholder could not be resolved
// from the event and was left in the rendered text.
type MissingContextWarning struct {
	RuleID      string `json:"ruleId"`
	Placeholder string `json:"placeholder"`
}

func (w MissingContextWarning) String() string {
	return fmt.Sprintf("rule %s: unresolved placeholder %s", w.RuleID, w.Placeholder)
}

// FieldError builds a ValidationError for a single field.
func FieldError(field, msg string) *ValidationError {
	verr := &ValidationError{}
	verr.add(field, msg)
	return verr
}
