package models

import "strings"

// Contact field names, in the order they are reported as missing.
const (
	FieldName  = "name"
	FieldEmail = "email"
	FieldPhone = "phone"
)

// CandidateInfo holds the contact fields pulled out of a resume. Any field
// may be nil when the resume did not contain it.
type CandidateInfo struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// MissingFields returns the names of fields that are nil or blank.
func (c CandidateInfo) MissingFields() []string {
	var missing []string
	if isBlank(c.Name) {
		missing = append(missing, FieldName)
	}
	if isBlank(c.Email) {
		missing = append(missing, FieldEmail)
	}
	if isBlank(c.Phone) {
		missing = append(missing, FieldPhone)
	}
	return missing
}

// Merge overlays the non-blank fields of update onto c.
func (c CandidateInfo) Merge(update CandidateInfo) CandidateInfo {
	if !isBlank(update.Name) {
		c.Name = trimmed(update.Name)
	}
	if !isBlank(update.Email) {
		c.Email = trimmed(update.Email)
	}
	if !isBlank(update.Phone) {
		c.Phone = trimmed(update.Phone)
	}
	return c
}

// Value returns the field content or an empty string.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func StringPtr(s string) *string {
	return &s
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func trimmed(s *string) *string {
	v := strings.TrimSpace(*s)
	return &v
}
