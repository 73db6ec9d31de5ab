package models

import (
	"time"

	pm "voice-campaign/pkg/models"
)

// Lead status values
const (
	LeadPending = "pending"
	LeadCalled  = "called"
)

// Lead is a contact stored for calling
type Lead struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ExternalID       int       `gorm:"index" json:"external_id"` // id column of the source list
	FullName         string    `gorm:"type:varchar(255)" json:"full_name"`
	Phone            string    `gorm:"type:varchar(50);not null;index" json:"phone"`
	Address          string    `gorm:"type:text" json:"address"`
	PostalCode       string    `gorm:"type:varchar(20)" json:"postal_code"`
	Email            string    `gorm:"type:varchar(255)" json:"email"`
	MaskedIBANSuffix string    `gorm:"type:varchar(50)" json:"masked_iban_suffix"`
	MaskedIDSuffix   string    `gorm:"type:varchar(50)" json:"masked_id_suffix"`
	Status           string    `gorm:"type:varchar(20);default:'pending'" json:"status"`
	LastOutcome      string    `gorm:"type:varchar(20)" json:"last_outcome"`
	Interested       bool      `gorm:"default:false" json:"interested"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}

func LeadFromContact(c pm.Contact) Lead {
	return Lead{
		ExternalID:       c.ID,
		FullName:         c.FullName,
		Phone:            c.Phone,
		Address:          c.Address,
		PostalCode:       c.PostalCode,
		Email:            c.Email,
		MaskedIBANSuffix: c.MaskedIBANSuffix,
		MaskedIDSuffix:   c.MaskedIDSuffix,
		Status:           LeadPending,
	}
}

func (l Lead) Contact() pm.Contact {
	return pm.Contact{
		ID:               l.ExternalID,
		FullName:         l.FullName,
		Phone:            l.Phone,
		Address:          l.Address,
		PostalCode:       l.PostalCode,
		Email:            l.Email,
		MaskedIBANSuffix: l.MaskedIBANSuffix,
		MaskedIDSuffix:   l.MaskedIDSuffix,
	}
}

// CallRecord is the persisted result of one call session
type CallRecord struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	SessionID       string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"session_id"`
	CallSID         string     `gorm:"type:varchar(64);index" json:"call_sid"`
	ContactID       int        `gorm:"index" json:"contact_id"`
	ContactName     string     `gorm:"type:varchar(255)" json:"contact_name"`
	Phone           string     `gorm:"type:varchar(50);index" json:"phone"`
	Outcome         string     `gorm:"type:varchar(20);index" json:"outcome"`
	Reason          string     `gorm:"type:varchar(100)" json:"reason"`
	Interested      bool       `json:"interested"`
	TurnCount       int        `json:"turn_count"`
	DurationSeconds float64    `json:"duration_seconds"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         time.Time  `json:"ended_at"`
	Turns           []CallTurn `gorm:"foreignKey:CallRecordID;constraint:OnDelete:CASCADE;" json:"turns,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (CallRecord) TableName() string {
	return "call_records"
}

// CallTurn is one utterance of a recorded call
type CallTurn struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CallRecordID uint      `gorm:"index" json:"call_record_id"`
	Seq          int       `json:"seq"`
	Speaker      string    `gorm:"type:varchar(10)" json:"speaker"`
	Text         string    `gorm:"type:text" json:"text"`
	SpokenAt     time.Time `json:"spoken_at"`
}

func (CallTurn) TableName() string {
	return "call_turns"
}

func NewCallRecord(r pm.CallResult) CallRecord {
	rec := CallRecord{
		SessionID:       r.SessionID,
		CallSID:         r.CallSID,
		ContactID:       r.Contact.ID,
		ContactName:     r.Contact.FullName,
		Phone:           r.Contact.Phone,
		Outcome:         string(r.Outcome),
		Reason:          r.Reason,
		Interested:      r.Interested,
		TurnCount:       len(r.Turns),
		DurationSeconds: r.Duration().Seconds(),
		StartedAt:       r.StartedAt,
		EndedAt:         r.EndedAt,
	}
	for i, t := range r.Turns {
		rec.Turns = append(rec.Turns, CallTurn{
			Seq:      i,
			Speaker:  string(t.Speaker),
			Text:     t.Text,
			SpokenAt: t.Timestamp,
		})
	}
	return rec
}

// SystemSetting is a key/value override of the runtime configuration
type SystemSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}

// All lists every table for migration.
func All() []interface{} {
	return []interface{}{
		&Lead{},
		&CallRecord{},
		&CallTurn{},
		&SystemSetting{},
	}
}
