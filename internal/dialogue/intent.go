package dialogue

import (
	"fmt"
	"regexp"
	"strings"

	"voice-campaign/pkg/models"
)

type Intent string

const (
	IntentNone     Intent = ""
	IntentDecline  Intent = "decline"
	IntentInterest Intent = "interest"
)

// Terminal reports whether the intent ends the call without consulting the model.
func (i Intent) Terminal() bool {
	return i == IntentDecline
}

type compiledRule struct {
	rule models.IntentRule
	re   *regexp.Regexp
}

// IntentTable is an ordered list of caller utterance rules. First match wins.
type IntentTable struct {
	rules []compiledRule
}

// NewIntentTable compiles rules in order. phrase and regex patterns are
// compiled once here.
func NewIntentTable(rules []models.IntentRule) (*IntentTable, error) {
	t := &IntentTable{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		cr := compiledRule{rule: r}
		switch r.Operator {
		case "phrase":
			re, err := phraseRegexp(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("intent rule %q: %w", r.Name, err)
			}
			cr.re = re
		case "regex":
			re, err := regexp.Compile("(?i)" + r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("intent rule %q: %w", r.Name, err)
			}
			cr.re = re
		case "equals", "contains", "starts_with":
		default:
			return nil, fmt.Errorf("intent rule %q: unknown operator %q", r.Name, r.Operator)
		}
		t.rules = append(t.rules, cr)
	}
	return t, nil
}

// Match returns the intent of the first rule matching text.
func (t *IntentTable) Match(text string) (Intent, models.IntentRule, bool) {
	if t == nil {
		return IntentNone, models.IntentRule{}, false
	}
	message := strings.ToLower(strings.TrimSpace(text))
	for _, cr := range t.rules {
		if matchRule(cr, message) {
			return Intent(cr.rule.Intent), cr.rule, true
		}
	}
	return IntentNone, models.IntentRule{}, false
}

func matchRule(cr compiledRule, message string) bool {
	value := strings.ToLower(cr.rule.Pattern)

	switch cr.rule.Operator {
	case "equals":
		return message == value
	case "contains":
		return strings.Contains(message, value)
	case "starts_with":
		return strings.HasPrefix(message, value)
	case "phrase", "regex":
		return cr.re.MatchString(message)
	default:
		return false
	}
}

// phraseRegexp matches any of the |-separated phrases as whole words.
// Go's \b is ASCII only, so word edges are spelled out to cover accented letters.
func phraseRegexp(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "|")
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(p))
	}
	if len(quoted) == 0 {
		return nil, fmt.Errorf("empty phrase pattern")
	}
	return regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}\p{N}])`)
}

// ClosingMarkers recognise agent utterances that wrap up the call.
type ClosingMarkers []models.ClosingMarker

// Match returns the outcome of the first marker contained in text.
func (m ClosingMarkers) Match(text string) (models.Outcome, bool) {
	lower := strings.ToLower(text)
	for _, marker := range m {
		if marker.Phrase != "" && strings.Contains(lower, strings.ToLower(marker.Phrase)) {
			return marker.Outcome, true
		}
	}
	return models.OutcomeUndecided, false
}
