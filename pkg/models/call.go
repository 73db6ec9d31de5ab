package models

import "time"

// Speaker identifies who produced a turn
type Speaker string

const (
	SpeakerCaller Speaker = "CALLER"
	SpeakerAgent  Speaker = "AGENT"
)

// Turn is one utterance of the conversation
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Outcome is the terminal classification of a call
type Outcome string

const (
	OutcomeAccepted  Outcome = "ACCEPTED"
	OutcomeDeclined  Outcome = "DECLINED"
	OutcomeReferral  Outcome = "REFERRAL"
	OutcomeNoAnswer  Outcome = "NO_ANSWER"
	OutcomeHungUp    Outcome = "HUNG_UP"
	OutcomeError     Outcome = "ERROR"
	OutcomeMaxTurns  Outcome = "MAX_TURNS"
	OutcomeUndecided Outcome = ""
)

// Valid reports whether o is one of the terminal outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeAccepted, OutcomeDeclined, OutcomeReferral, OutcomeNoAnswer,
		OutcomeHungUp, OutcomeError, OutcomeMaxTurns:
		return true
	}
	return false
}

// State is the position of a call session in its lifecycle
type State string

const (
	StateInitiating   State = "INITIATING"
	StateGreeting     State = "GREETING"
	StateListening    State = "LISTENING"
	StateTranscribing State = "TRANSCRIBING"
	StateGenerating   State = "GENERATING"
	StateSynthesizing State = "SYNTHESIZING"
	StatePlaying      State = "PLAYING"
	StateTerminating  State = "TERMINATING"
	StateTerminated   State = "TERMINATED"
)

// Reason codes attached to a CallResult
const (
	ReasonConnectFailed  = "connect_failed"
	ReasonGatewayError   = "gateway_error"
	ReasonNoAnswer       = "no_answer"
	ReasonSilenceCeiling = "silence_ceiling"
	ReasonKeywordPrefix  = "keyword:"
	ReasonClosingMarker  = "closing_marker"
	ReasonMaxTurns       = "max_turns"
	ReasonRemoteHangup   = "remote_hangup"
	ReasonCancelled      = "cancelled"
)

// CallResult is the record emitted once per terminated session
type CallResult struct {
	SessionID  string    `json:"session_id"`
	CallSID    string    `json:"call_sid,omitempty"`
	Contact    Contact   `json:"contact"`
	Outcome    Outcome   `json:"outcome"`
	Reason     string    `json:"reason"`
	Interested bool      `json:"interested"`
	Turns      []Turn    `json:"turns"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// Duration is the wall time between start and end of the session.
func (r CallResult) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// CampaignStatus is a point in time view of the scheduler
type CampaignStatus struct {
	Running   bool         `json:"running"`
	InFlight  *InFlight    `json:"in_flight,omitempty"`
	Pending   int          `json:"pending"`
	Total     int          `json:"total"`
	Completed []CallResult `json:"completed"`
}

// InFlight describes the call currently being conducted
type InFlight struct {
	SessionID string  `json:"session_id"`
	Contact   Contact `json:"contact"`
	State     State   `json:"state"`
	Turns     int     `json:"turns"`
	Strikes   int     `json:"silence_strikes"`
}
