package models

import "strings"

// Contact is one lead of a campaign. It is immutable once loaded.
type Contact struct {
	ID               int    `json:"id"`
	FullName         string `json:"full_name"`
	Phone            string `json:"phone"`
	Address          string `json:"address,omitempty"`
	PostalCode       string `json:"postal_code,omitempty"`
	Email            string `json:"email,omitempty"`
	MaskedIBANSuffix string `json:"masked_iban_suffix,omitempty"` // ****1234
	MaskedIDSuffix   string `json:"masked_id_suffix,omitempty"`   // ******9Z
}

// FirstName returns the first whitespace separated token of FullName.
func (c *Contact) FirstName() string {
	fields := strings.Fields(c.FullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
