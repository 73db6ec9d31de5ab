package session

import (
	"context"
	"time"

	"voice-campaign/internal/dialogue"
	"voice-campaign/internal/script"
	"voice-campaign/internal/telephony"
	"voice-campaign/pkg/models"
)

// Speech is the perception and expression side of a call.
type Speech interface {
	Capture(ctx context.Context) ([]byte, error)
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Play(ctx context.Context, audio []byte) error
}

// Policy chooses the agent's next line.
type Policy interface {
	NextUtterance(ctx context.Context, history []models.Turn, contact *models.Contact) (string, error)
}

// Sink receives the record of every terminated session.
type Sink interface {
	Save(ctx context.Context, result models.CallResult) error
}

type SinkFunc func(ctx context.Context, result models.CallResult) error

func (f SinkFunc) Save(ctx context.Context, result models.CallResult) error {
	return f(ctx, result)
}

// MultiSink saves to every sink in order and returns the first error.
type MultiSink []Sink

func (m MultiSink) Save(ctx context.Context, result models.CallResult) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Save(ctx, result); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Notifier publishes live progress. ws.Hub satisfies it.
type Notifier interface {
	BroadcastEvent(eventType string, data interface{})
}

// Event types published through the Notifier
const (
	EventCallStarted  = "call_started"
	EventStateChanged = "state_changed"
	EventTurn         = "turn"
	EventCallFinished = "call_finished"
)

// Deps are the collaborators shared by every session of a campaign.
type Deps struct {
	Gateway  telephony.Gateway
	Speech   Speech
	Policy   Policy
	Script   *script.Script
	Intents  *dialogue.IntentTable
	Closing  dialogue.ClosingMarkers
	Sink     Sink
	Notifier Notifier
}

// Config holds the per-call limits.
type Config struct {
	SilenceCeiling         int
	MaxTurns               int
	MinTurnsBeforeKeywords int
	SilenceOutcome         models.Outcome
	AnswerTimeout          time.Duration
	HangUpTimeout          time.Duration
	NationalPrefix         string
}

// DefaultConfig mirrors the stock campaign behaviour.
func DefaultConfig() Config {
	return Config{
		SilenceCeiling: 3,
		MaxTurns:       10,
		SilenceOutcome: models.OutcomeHungUp,
		AnswerTimeout:  30 * time.Second,
		HangUpTimeout:  10 * time.Second,
		NationalPrefix: "34",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SilenceCeiling <= 0 {
		c.SilenceCeiling = d.SilenceCeiling
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = d.MaxTurns
	}
	switch c.SilenceOutcome {
	case models.OutcomeHungUp, models.OutcomeNoAnswer, models.OutcomeMaxTurns:
	default:
		c.SilenceOutcome = d.SilenceOutcome
	}
	if c.AnswerTimeout <= 0 {
		c.AnswerTimeout = d.AnswerTimeout
	}
	if c.HangUpTimeout <= 0 {
		c.HangUpTimeout = d.HangUpTimeout
	}
	return c
}
