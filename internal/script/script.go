package script

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/template"

	"voice-campaign/pkg/models"

	"gopkg.in/yaml.v3"
)

// Script is the conversational content of a campaign.
// Greeting and SystemPrompt are text/template sources.
type Script struct {
	Company           string                 `yaml:"company"`
	AgentName         string                 `yaml:"agent_name"`
	Honorific         string                 `yaml:"honorific"`
	AddressFallback   string                 `yaml:"address_fallback"`
	Greeting          string                 `yaml:"greeting"`
	SystemPrompt      string                 `yaml:"system_prompt"`
	FallbackUtterance string                 `yaml:"fallback_utterance"`
	Intents           []models.IntentRule    `yaml:"intents"`
	ClosingMarkers    []models.ClosingMarker `yaml:"closing_markers"`

	greeting *template.Template
	system   *template.Template
}

// Vars are the values available to the greeting and system prompt templates.
type Vars struct {
	Company   string
	AgentName string
	FirstName string
	FullName  string
	Address   string
}

var validOperators = map[string]bool{
	"equals":      true,
	"contains":    true,
	"starts_with": true,
	"phrase":      true,
	"regex":       true,
}

// Load reads a YAML script from path on top of the built-in defaults.
// An empty path returns the defaults.
func Load(path string) (*Script, error) {
	s := Default()
	if path == "" {
		return s, s.compile()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script %s: %w", path, err)
	}
	return s, s.compile()
}

// Validate checks the rule tables and the templates.
func (s *Script) Validate() error {
	if strings.TrimSpace(s.Greeting) == "" {
		return fmt.Errorf("greeting is required")
	}
	if strings.TrimSpace(s.FallbackUtterance) == "" {
		return fmt.Errorf("fallback_utterance is required")
	}
	for i, r := range s.Intents {
		if !validOperators[r.Operator] {
			return fmt.Errorf("intent %d (%s): unknown operator %q", i, r.Name, r.Operator)
		}
		if r.Pattern == "" || r.Intent == "" {
			return fmt.Errorf("intent %d (%s): pattern and intent are required", i, r.Name)
		}
		if r.Operator == "regex" {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				return fmt.Errorf("intent %d (%s): %w", i, r.Name, err)
			}
		}
	}
	for i, m := range s.ClosingMarkers {
		if m.Outcome != models.OutcomeAccepted && m.Outcome != models.OutcomeReferral {
			return fmt.Errorf("closing marker %d: outcome must be ACCEPTED or REFERRAL, got %q", i, m.Outcome)
		}
	}
	return s.compile()
}

func (s *Script) compile() error {
	g, err := template.New("greeting").Parse(s.Greeting)
	if err != nil {
		return fmt.Errorf("greeting template: %w", err)
	}
	sys, err := template.New("system_prompt").Parse(s.SystemPrompt)
	if err != nil {
		return fmt.Errorf("system_prompt template: %w", err)
	}
	s.greeting, s.system = g, sys
	return nil
}

// VarsFor derives template values for a contact, applying the honorific and
// address fallbacks.
func (s *Script) VarsFor(c *models.Contact) Vars {
	v := Vars{
		Company:   s.Company,
		AgentName: s.AgentName,
		FirstName: s.Honorific,
		Address:   s.AddressFallback,
	}
	if c == nil {
		return v
	}
	v.FullName = c.FullName
	if first := c.FirstName(); first != "" {
		v.FirstName = first
	}
	if strings.TrimSpace(c.Address) != "" {
		v.Address = c.Address
	}
	return v
}

// RenderGreeting returns the opening line for c.
func (s *Script) RenderGreeting(c *models.Contact) (string, error) {
	if s.greeting == nil {
		if err := s.compile(); err != nil {
			return "", err
		}
	}
	return render(s.greeting, s.VarsFor(c))
}

// RenderSystemPrompt returns the system instructions without the contact block.
func (s *Script) RenderSystemPrompt(c *models.Contact) (string, error) {
	if s.system == nil {
		if err := s.compile(); err != nil {
			return "", err
		}
	}
	return render(s.system, s.VarsFor(c))
}

func render(t *template.Template, v Vars) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
