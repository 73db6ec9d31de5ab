package models

// StatusCallback is the form posted by Twilio to the status callback URL
type StatusCallback struct {
	CallSid        string `form:"CallSid" json:"call_sid"`
	AccountSid     string `form:"AccountSid" json:"account_sid"`
	From           string `form:"From" json:"from"`
	To             string `form:"To" json:"to"`
	CallStatus     string `form:"CallStatus" json:"call_status"` // initiated, ringing, in-progress, completed, busy, failed, no-answer, canceled
	Direction      string `form:"Direction" json:"direction"`
	CallDuration   string `form:"CallDuration" json:"call_duration,omitempty"`
	Timestamp      string `form:"Timestamp" json:"timestamp,omitempty"`
	SequenceNumber string `form:"SequenceNumber" json:"sequence_number,omitempty"`
	AnsweredBy     string `form:"AnsweredBy" json:"answered_by,omitempty"`
}

// VoiceRequest is the form posted by Twilio when an outbound call is answered
type VoiceRequest struct {
	CallSid    string `form:"CallSid"`
	From       string `form:"From"`
	To         string `form:"To"`
	CallStatus string `form:"CallStatus"`
}
