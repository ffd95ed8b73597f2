package automation

import (
	"iter"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// MatchSeq lazily yields the rules that apply to evt, in the order given.
// It reads rules only; iterating twice recomputes the result.
func MatchSeq(evt InboundEvent, rules []AutomationRule) iter.Seq[AutomationRule] {
	return func(yield func(AutomationRule) bool) {
		fold := cases.Fold()
		text := fold.String(evt.Text)
		for i := range rules {
			if !matches(&rules[i], evt, text, fold) {
				continue
			}
			if !yield(rules[i]) {
				return
			}
		}
	}
}

// Match returns every rule that applies to evt, in rule list order.
func Match(evt InboundEvent, rules []AutomationRule) []AutomationRule {
	return slices.Collect(MatchSeq(evt, rules))
}

// Matches reports whether a single rule applies to evt.
func Matches(rule AutomationRule, evt InboundEvent) bool {
	fold := cases.Fold()
	return matches(&rule, evt, fold.String(evt.Text), fold)
}

func matches(rule *AutomationRule, evt InboundEvent, foldedText string, fold cases.Caser) bool {
	if !rule.IsActive {
		return false
	}
	if rule.AccountID != evt.AccountID {
		return false
	}
	if rule.Trigger.Type.EventKind() != evt.Kind {
		return false
	}
	if !rule.Trigger.Type.IsKeyword() || len(rule.Trigger.Keywords) == 0 {
		return true
	}
	for _, kw := range rule.Trigger.Keywords {
		if strings.Contains(foldedText, fold.String(kw)) {
			return true
		}
	}
	return false
}
