package models

// IntentRule maps a caller utterance pattern to an intent.
// Rules are evaluated in order and the first match wins.
type IntentRule struct {
	Name     string `json:"name" yaml:"name"`
	Operator string `json:"operator" yaml:"operator"` // equals, contains, starts_with, phrase, regex
	Pattern  string `json:"pattern" yaml:"pattern"`
	Intent   string `json:"intent" yaml:"intent"` // decline, interest
}

// ClosingMarker maps a phrase in an agent utterance to the outcome it closes the call with
type ClosingMarker struct {
	Phrase  string  `json:"phrase" yaml:"phrase"`
	Outcome Outcome `json:"outcome" yaml:"outcome"`
}
