package telephony

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoAnswer    = errors.New("telephony: call was not answered")
	ErrUnknownCall = errors.New("telephony: unknown call")
)

// Status is a call progress state as reported by the carrier
type Status string

const (
	StatusQueued    Status = "queued"
	StatusInitiated Status = "initiated"
	StatusRinging   Status = "ringing"
	StatusAnswered  Status = "answered"
	StatusCompleted Status = "completed"
	StatusBusy      Status = "busy"
	StatusFailed    Status = "failed"
	StatusNoAnswer  Status = "no-answer"
	StatusCanceled  Status = "canceled"
)

// ParseStatus normalizes carrier status strings. Twilio reports an answered
// call as "in-progress".
func ParseStatus(s string) Status {
	switch s {
	case "in-progress", "answered":
		return StatusAnswered
	}
	return Status(s)
}

// Terminal reports whether no further events follow this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusBusy, StatusFailed, StatusNoAnswer, StatusCanceled:
		return true
	}
	return false
}

// Unreached reports whether the call ended before anyone picked up.
func (s Status) Unreached() bool {
	switch s {
	case StatusBusy, StatusFailed, StatusNoAnswer, StatusCanceled:
		return true
	}
	return false
}

type Event struct {
	CallSID string    `json:"call_sid"`
	Status  Status    `json:"status"`
	At      time.Time `json:"at"`
}

// Gateway places and controls outbound calls.
type Gateway interface {
	// PlaceCall dials to and returns the carrier call id.
	PlaceCall(ctx context.Context, to string) (string, error)
	HangUp(ctx context.Context, callSID string) error
	// Events streams status changes for callSID. The channel is never closed.
	Events(callSID string) <-chan Event
	// Release drops the subscription created by Events.
	Release(callSID string)
}
