package leads

import (
	"strings"
	"time"
)

// Status values a lead moves through while staff work it.
const (
	StatusNew       = "new"
	StatusInReview  = "in_review"
	StatusScheduled = "scheduled"
	StatusClosed    = "closed"
)

// ValidStatus reports whether s is a known lead status.
func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusInReview, StatusScheduled, StatusClosed:
		return true
	}
	return false
}

// PreferredSlot wraps the caller's free-text scheduling wish. Kept as a
// structured envelope so richer slot data can be added without a migration.
type PreferredSlot struct {
	Text string `json:"text"`
}

// Lead represents a prospective patient contact captured from a call or chat.
type Lead struct {
	ID            string        `json:"id"`
	CallRef       string        `json:"call_ref,omitempty"` // session/call id, empty for manual leads
	Name          string        `json:"name"`
	Phone         string        `json:"phone"`
	Concern       string        `json:"concern"`
	Urgency       string        `json:"urgency"` // "akut" or "normal"
	Insurance     string        `json:"insurance,omitempty"`
	PreferredSlot PreferredSlot `json:"preferred_slot"`
	Notes         string        `json:"notes,omitempty"`
	Status        string        `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// CreateLeadRequest represents the input for creating a lead.
type CreateLeadRequest struct {
	CallRef       string        `json:"call_ref,omitempty"`
	Name          string        `json:"name"`
	Phone         string        `json:"phone"`
	Concern       string        `json:"concern"`
	Urgency       string        `json:"urgency,omitempty"`
	Insurance     string        `json:"insurance,omitempty"`
	PreferredSlot PreferredSlot `json:"preferred_slot"`
	Notes         string        `json:"notes,omitempty"`
}

// Validate checks the request for required fields.
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Phone) == "" {
		return ErrMissingPhone
	}
	if strings.TrimSpace(r.Concern) == "" {
		return ErrMissingConcern
	}
	return nil
}

// ListFilter narrows lead listings for the staff dashboard.
type ListFilter struct {
	Status string
	Limit  int
}
