package intake

import "strings"

// Slot field names in their canonical question order. The orchestrator asks
// for the first missing one each turn.
const (
	FieldName          = "name"
	FieldPhone         = "phone"
	FieldReason        = "reason"
	FieldPreferredTime = "preferredTime"
)

// requiredFields is the canonical ordering for missing-field resolution.
var requiredFields = [...]string{FieldName, FieldPhone, FieldReason, FieldPreferredTime}

// Memory is the best-effort slot record extracted from a conversation.
// Empty string means the slot is not yet known.
type Memory struct {
	Name          string `json:"name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Urgency       string `json:"urgency,omitempty"` // "akut" or "normal"
	PreferredTime string `json:"preferred_time,omitempty"`
	PatientType   string `json:"patient_type,omitempty"` // "neu" or "bestand"
}

// Merge folds a fresh extraction pass into m. A filled slot may be
// overwritten by a newer non-empty value but is never cleared, which keeps
// missing-field resolution monotonic across turns.
func (m *Memory) Merge(extracted Memory) {
	if v := strings.TrimSpace(extracted.Name); v != "" {
		m.Name = v
	}
	if v := strings.TrimSpace(extracted.Phone); v != "" {
		m.Phone = v
	}
	if v := strings.TrimSpace(extracted.Reason); v != "" {
		m.Reason = v
	}
	if v := strings.TrimSpace(extracted.Urgency); v != "" {
		m.Urgency = v
	}
	if v := strings.TrimSpace(extracted.PreferredTime); v != "" {
		m.PreferredTime = v
	}
	if v := strings.TrimSpace(extracted.PatientType); v != "" {
		m.PatientType = v
	}
}

// field returns the value of one of the four required slots.
func (m Memory) field(name string) string {
	switch name {
	case FieldName:
		return m.Name
	case FieldPhone:
		return m.Phone
	case FieldReason:
		return m.Reason
	case FieldPreferredTime:
		return m.PreferredTime
	}
	return ""
}

// MissingFields returns the required slots that are still unset, in
// canonical order. An empty result means the lead is ready to close.
func (m Memory) MissingFields() []string {
	var missing []string
	for _, f := range requiredFields {
		if strings.TrimSpace(m.field(f)) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Complete reports whether all four required slots are filled.
func (m Memory) Complete() bool {
	return len(m.MissingFields()) == 0
}

// State labels where a session sits in the intake flow. It is derived, not
// stored; see DeriveState.
type State string

const (
	StateFresh        State = "fresh"
	StateCollecting   State = "collecting"
	StateReadyToClose State = "ready_to_close"
	StateClosed       State = "closed"
)

// DeriveState computes the flow state from observable session facts. Closed
// sessions keep accepting turns; the label only means no further lead write
// will happen.
func DeriveState(turnCount int, memory Memory, leadSaved bool) State {
	switch {
	case leadSaved:
		return StateClosed
	case turnCount == 0:
		return StateFresh
	case memory.Complete():
		return StateReadyToClose
	default:
		return StateCollecting
	}
}
