package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"voice-campaign/internal/contacts"
	"voice-campaign/internal/dialogue"
	"voice-campaign/internal/logger"
	"voice-campaign/internal/telephony"
	"voice-campaign/pkg/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ReasonScriptError = "script_error"

// Session conducts one outbound call from dialing to hang-up.
// A Session is single use.
type Session struct {
	id      string
	contact *models.Contact
	deps    Deps
	cfg     Config
	log     *zap.Logger
	now     func() time.Time

	mu         sync.RWMutex
	state      models.State
	turns      []models.Turn
	outcome    models.Outcome
	reason     string
	interested bool
	strikes    int

	callSID     string
	callerTurns int
	startedAt   time.Time
	endedAt     time.Time

	// carried between stages
	audio      []byte
	reply      string
	replyAudio []byte
	closeWith  models.Outcome
	closeWhy   string

	remoteHangup atomic.Bool
	callEnded    atomic.Bool
	emitted      sync.Once
}

func New(contact *models.Contact, deps Deps, cfg Config) *Session {
	return &Session{
		id:      uuid.NewString(),
		contact: contact,
		deps:    deps,
		cfg:     cfg.withDefaults(),
		log:     logger.Named("session"),
		now:     time.Now,
		state:   models.StateInitiating,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Contact() *models.Contact { return s.contact }

func (s *Session) State() models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Turns returns a copy of the transcript so far.
func (s *Session) Turns() []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// SilenceStrikes is the current count of consecutive empty captures.
func (s *Session) SilenceStrikes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.strikes
}

// Snapshot describes the session for status reporting.
func (s *Session) Snapshot() models.InFlight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.InFlight{
		SessionID: s.id,
		Contact:   *s.contact,
		State:     s.state,
		Turns:     len(s.turns),
		Strikes:   s.strikes,
	}
}

// Run drives the call to completion and returns its single result. It never
// returns an error: every failure is folded into the outcome and reason.
func (s *Session) Run(ctx context.Context) models.CallResult {
	s.startedAt = s.now()
	s.log = s.log.With(zap.String("session_id", s.id), zap.Int("contact_id", s.contact.ID))
	s.notify(EventCallStarted, s.Snapshot())

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := models.StateInitiating
	for state != models.StateTerminating {
		if callCtx.Err() != nil {
			if s.remoteHangup.Load() {
				s.decide(models.OutcomeHungUp, models.ReasonRemoteHangup)
			} else {
				s.decide(models.OutcomeHungUp, models.ReasonCancelled)
			}
			break
		}
		s.setState(state)
		state = s.step(callCtx, cancel, state)
	}
	return s.terminate(ctx, cancel)
}

func (s *Session) step(ctx context.Context, cancel context.CancelFunc, state models.State) models.State {
	switch state {
	case models.StateInitiating:
		return s.initiate(ctx, cancel)
	case models.StateGreeting:
		return s.greet()
	case models.StateListening:
		return s.listen(ctx)
	case models.StateTranscribing:
		return s.transcribe(ctx)
	case models.StateGenerating:
		return s.generate(ctx)
	case models.StateSynthesizing:
		return s.synthesize(ctx)
	case models.StatePlaying:
		return s.play(ctx)
	}
	s.log.Error("Unknown session state", zap.String("state", string(state)))
	s.decide(models.OutcomeError, "invalid_state")
	return models.StateTerminating
}

func (s *Session) initiate(ctx context.Context, cancel context.CancelFunc) models.State {
	to := contacts.DialString(s.contact.Phone, s.cfg.NationalPrefix)
	if to == "" {
		s.log.Warn("Contact has no dialable phone", zap.String("phone", s.contact.Phone))
		s.decide(models.OutcomeError, models.ReasonConnectFailed)
		return models.StateTerminating
	}

	sid, err := s.deps.Gateway.PlaceCall(ctx, to)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return models.StateInitiating
		case errors.Is(err, telephony.ErrNoAnswer):
			s.decide(models.OutcomeNoAnswer, models.ReasonNoAnswer)
		default:
			s.log.Error("Failed to place call", zap.String("to", to), zap.Error(err))
			s.decide(models.OutcomeError, models.ReasonGatewayError)
		}
		return models.StateTerminating
	}
	s.callSID = sid
	s.log = s.log.With(zap.String("call_sid", sid))
	events := s.deps.Gateway.Events(sid)

	timer := time.NewTimer(s.cfg.AnswerTimeout)
	defer timer.Stop()
	for {
		select {
		case ev := <-events:
			s.log.Debug("Call status", zap.String("status", string(ev.Status)))
			switch {
			case ev.Status == telephony.StatusAnswered:
				go s.watch(ctx, cancel, events)
				return models.StateGreeting
			case ev.Status.Terminal():
				s.callEnded.Store(true)
				s.decide(models.OutcomeNoAnswer, models.ReasonNoAnswer)
				return models.StateTerminating
			}
		case <-timer.C:
			s.log.Info("Call not answered in time", zap.Duration("timeout", s.cfg.AnswerTimeout))
			s.decide(models.OutcomeNoAnswer, models.ReasonNoAnswer)
			return models.StateTerminating
		case <-ctx.Done():
			return models.StateInitiating
		}
	}
}

// watch cancels the call context when the far end hangs up.
func (s *Session) watch(ctx context.Context, cancel context.CancelFunc, events <-chan telephony.Event) {
	for {
		select {
		case ev := <-events:
			if ev.Status.Terminal() {
				s.log.Info("Remote party ended the call", zap.String("status", string(ev.Status)))
				s.callEnded.Store(true)
				s.remoteHangup.Store(true)
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) greet() models.State {
	text, err := s.deps.Script.RenderGreeting(s.contact)
	if err != nil {
		s.log.Error("Failed to render greeting", zap.Error(err))
		s.decide(models.OutcomeError, ReasonScriptError)
		return models.StateTerminating
	}
	s.appendTurn(models.SpeakerAgent, text)
	s.reply = text
	return models.StateSynthesizing
}

func (s *Session) listen(ctx context.Context) models.State {
	audio, err := s.deps.Speech.Capture(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return models.StateListening
		}
		s.log.Warn("No audio captured", zap.Error(err))
		return s.strike()
	}
	s.audio = audio
	return models.StateTranscribing
}

func (s *Session) transcribe(ctx context.Context) models.State {
	text, err := s.deps.Speech.Transcribe(ctx, s.audio)
	s.audio = nil
	if err != nil {
		if ctx.Err() != nil {
			return models.StateTranscribing
		}
		s.log.Warn("Transcription failed", zap.Error(err))
		return s.strike()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return s.strike()
	}

	s.mu.Lock()
	s.strikes = 0
	s.mu.Unlock()
	s.callerTurns++
	s.appendTurn(models.SpeakerCaller, text)

	intent, rule, ok := s.deps.Intents.Match(text)
	if !ok {
		return models.StateGenerating
	}
	if intent == dialogue.IntentInterest {
		s.mu.Lock()
		s.interested = true
		s.mu.Unlock()
	}
	if intent.Terminal() && s.callerTurns > s.cfg.MinTurnsBeforeKeywords {
		s.log.Info("Caller ended the conversation", zap.String("rule", rule.Name))
		s.decide(models.OutcomeDeclined, models.ReasonKeywordPrefix+rule.Name)
		return models.StateTerminating
	}
	return models.StateGenerating
}

func (s *Session) strike() models.State {
	s.mu.Lock()
	s.strikes++
	strikes := s.strikes
	s.mu.Unlock()
	s.log.Info("Silence strike", zap.Int("strikes", strikes), zap.Int("ceiling", s.cfg.SilenceCeiling))
	if strikes >= s.cfg.SilenceCeiling {
		s.decide(s.cfg.SilenceOutcome, models.ReasonSilenceCeiling)
		return models.StateTerminating
	}
	return models.StateListening
}

func (s *Session) generate(ctx context.Context) models.State {
	reply, err := s.deps.Policy.NextUtterance(ctx, s.Turns(), s.contact)
	if err != nil {
		if ctx.Err() != nil {
			return models.StateGenerating
		}
		s.log.Warn("Falling back after generation failure", zap.Error(err))
		reply = s.deps.Script.FallbackUtterance
	}
	s.appendTurn(models.SpeakerAgent, reply)
	s.reply = reply

	if outcome, ok := s.deps.Closing.Match(reply); ok {
		s.closeWith, s.closeWhy = outcome, models.ReasonClosingMarker
	} else if len(s.Turns()) > s.cfg.MaxTurns {
		s.closeWith, s.closeWhy = models.OutcomeMaxTurns, models.ReasonMaxTurns
	}
	return models.StateSynthesizing
}

func (s *Session) synthesize(ctx context.Context) models.State {
	audio, err := s.deps.Speech.Synthesize(ctx, s.reply)
	if err != nil {
		s.log.Warn("Speech synthesis failed", zap.Error(err))
		audio = nil
	}
	s.replyAudio = audio
	return models.StatePlaying
}

func (s *Session) play(ctx context.Context) models.State {
	if len(s.replyAudio) > 0 {
		if err := s.deps.Speech.Play(ctx, s.replyAudio); err != nil {
			s.log.Warn("Playback failed", zap.Error(err))
		}
	}
	s.replyAudio = nil
	if s.closeWith != models.OutcomeUndecided {
		s.decide(s.closeWith, s.closeWhy)
		return models.StateTerminating
	}
	return models.StateListening
}

func (s *Session) terminate(parent context.Context, cancel context.CancelFunc) models.CallResult {
	s.setState(models.StateTerminating)
	cancel()

	if s.callSID != "" {
		if !s.callEnded.Load() {
			ctx, stop := context.WithTimeout(context.WithoutCancel(parent), s.cfg.HangUpTimeout)
			if err := s.deps.Gateway.HangUp(ctx, s.callSID); err != nil {
				s.log.Warn("Hang up failed", zap.Error(err))
			}
			stop()
		}
		s.deps.Gateway.Release(s.callSID)
	}

	s.decide(models.OutcomeError, "undecided")
	s.endedAt = s.now()
	result := s.result()
	s.emit(parent, result)
	s.setState(models.StateTerminated)
	s.log.Info("Call finished",
		zap.String("outcome", string(result.Outcome)),
		zap.String("reason", result.Reason),
		zap.Int("turns", len(result.Turns)),
		zap.Duration("duration", result.Duration()))
	return result
}

func (s *Session) emit(parent context.Context, result models.CallResult) {
	s.emitted.Do(func() {
		if s.deps.Sink != nil {
			ctx, stop := context.WithTimeout(context.WithoutCancel(parent), s.cfg.HangUpTimeout)
			defer stop()
			if err := s.deps.Sink.Save(ctx, result); err != nil {
				s.log.Error("Failed to save call result", zap.Error(err))
			}
		}
		s.notify(EventCallFinished, result)
	})
}

// decide records the outcome unless one is already set.
func (s *Session) decide(outcome models.Outcome, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != models.OutcomeUndecided {
		return
	}
	s.outcome, s.reason = outcome, reason
}

func (s *Session) result() models.CallResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]models.Turn, len(s.turns))
	copy(turns, s.turns)
	return models.CallResult{
		SessionID:  s.id,
		CallSID:    s.callSID,
		Contact:    *s.contact,
		Outcome:    s.outcome,
		Reason:     s.reason,
		Interested: s.interested,
		Turns:      turns,
		StartedAt:  s.startedAt,
		EndedAt:    s.endedAt,
	}
}

func (s *Session) appendTurn(speaker models.Speaker, text string) {
	turn := models.Turn{Speaker: speaker, Text: text, Timestamp: s.now()}
	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.mu.Unlock()
	s.log.Info("Turn", zap.String("speaker", string(speaker)), zap.String("text", text))
	s.notify(EventTurn, payload{"session_id": s.id, "turn": turn})
}

func (s *Session) setState(state models.State) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()
	if changed {
		s.notify(EventStateChanged, payload{"session_id": s.id, "state": state})
	}
}

func (s *Session) notify(eventType string, data interface{}) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.BroadcastEvent(eventType, data)
	}
}

type payload map[string]interface{}
