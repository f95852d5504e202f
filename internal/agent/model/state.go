package model

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Intent is the coarse classification of the latest user message.
type Intent string

const (
	IntentGreeting   Intent = "greeting"
	IntentInquiry    Intent = "inquiry"
	IntentHighIntent Intent = "high_intent"
	IntentUnknown    Intent = "unknown"
)

// Intents lists every valid label in prompt order.
var Intents = []Intent{IntentGreeting, IntentInquiry, IntentHighIntent, IntentUnknown}

// ParseIntent accepts a raw label and reports whether it is one of the valid intents.
func ParseIntent(v string) (Intent, bool) {
	switch in := Intent(strings.ToLower(strings.TrimSpace(v))); in {
	case IntentGreeting, IntentInquiry, IntentHighIntent, IntentUnknown:
		return in, true
	default:
		return IntentUnknown, false
	}
}

// Field names one lead field. FieldNone means no field is pending.
type Field string

const (
	FieldNone     Field = "none"
	FieldName     Field = "name"
	FieldEmail    Field = "email"
	FieldPlatform Field = "platform"
)

// LeadFields is the fixed collection order.
var LeadFields = []Field{FieldName, FieldEmail, FieldPlatform}

// IsSet reports whether f names a real lead field.
func (f Field) IsSet() bool {
	return f == FieldName || f == FieldEmail || f == FieldPlatform
}

// NextStep is the transient routing signal emitted by a generator.
type NextStep string

const (
	NextTerminate   NextStep = "terminate"
	NextReclassify  NextStep = "reclassify"
	NextExecuteTool NextStep = "execute_tool"
)

// LeadStatus records the outcome of the last registration attempt.
type LeadStatus string

const (
	LeadStatusNone       LeadStatus = "none"
	LeadStatusRegistered LeadStatus = "registered"
	LeadStatusFailed     LeadStatus = "failed"
)

// Lead holds the collected fields. An empty string is the absent sentinel.
type Lead struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Platform string `json:"platform"`
}

// Get returns the value of f.
func (l Lead) Get(f Field) string {
	switch f {
	case FieldName:
		return l.Name
	case FieldEmail:
		return l.Email
	case FieldPlatform:
		return l.Platform
	}
	return ""
}

// Has reports whether f is present.
func (l Lead) Has(f Field) bool {
	return strings.TrimSpace(l.Get(f)) != ""
}

// With returns a copy of l with f set to v.
func (l Lead) With(f Field, v string) Lead {
	switch f {
	case FieldName:
		l.Name = v
	case FieldEmail:
		l.Email = v
	case FieldPlatform:
		l.Platform = v
	}
	return l
}

// Missing returns the absent fields in collection order.
func (l Lead) Missing() []Field {
	var out []Field
	for _, f := range LeadFields {
		if !l.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// FirstMissing returns the first absent field in collection order, or FieldNone.
func (l Lead) FirstMissing() Field {
	for _, f := range LeadFields {
		if !l.Has(f) {
			return f
		}
	}
	return FieldNone
}

// Complete reports whether every field is present.
func (l Lead) Complete() bool {
	return l.FirstMissing() == FieldNone
}

// State is the per-session record threaded through every step of a turn.
// Every field is always present; absent values use explicit sentinels.
type State struct {
	SessionID    string            `json:"session_id"`
	History      []*schema.Message `json:"history"`
	Intent       Intent            `json:"intent"`
	Lead         Lead              `json:"lead"`
	PendingField Field             `json:"pending_field"`
	LeadStatus   LeadStatus        `json:"lead_status"`
	NextStep     NextStep          `json:"next_step"`
}

// NewState returns the lazy-init defaults for a session.
func NewState(sessionID string) State {
	return State{
		SessionID:    sessionID,
		History:      []*schema.Message{},
		Intent:       IntentUnknown,
		Lead:         Lead{},
		PendingField: FieldNone,
		LeadStatus:   LeadStatusNone,
		NextStep:     NextTerminate,
	}
}

// Collecting reports whether the lead-capture sub-dialogue owns the turn.
func (s State) Collecting() bool {
	return s.PendingField.IsSet()
}

// LatestUserMessage returns the content of the most recent user message.
func (s State) LatestUserMessage() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if m := s.History[i]; m != nil && m.Role == schema.User {
			return m.Content
		}
	}
	return ""
}

// Validate reports values that no code path can produce.
// Persisted states failing validation are replaced by a fresh session.
func (s State) Validate() error {
	if _, ok := ParseIntent(string(s.Intent)); !ok || string(s.Intent) != strings.TrimSpace(string(s.Intent)) {
		return fmt.Errorf("invalid intent %q", s.Intent)
	}
	switch s.PendingField {
	case FieldNone, FieldName, FieldEmail, FieldPlatform:
	default:
		return fmt.Errorf("invalid pending field %q", s.PendingField)
	}
	switch s.LeadStatus {
	case LeadStatusNone, LeadStatusRegistered, LeadStatusFailed:
	default:
		return fmt.Errorf("invalid lead status %q", s.LeadStatus)
	}
	for i, m := range s.History {
		if m == nil || (m.Role != schema.User && m.Role != schema.Assistant) {
			return fmt.Errorf("invalid history entry at %d", i)
		}
	}
	return nil
}

// Clone returns a copy that shares no mutable slices with s.
func (s State) Clone() State {
	out := s
	out.History = make([]*schema.Message, len(s.History))
	for i, m := range s.History {
		if m == nil {
			continue
		}
		cp := *m
		out.History[i] = &cp
	}
	return out
}

// Delta is the partial update produced by one step.
type Delta struct {
	// Intent overwrites the stored intent unless a field is pending.
	Intent *Intent
	// Lead is merged field by field; only absent fields are filled.
	Lead *Lead
	// PendingField overwrites.
	PendingField *Field
	// LeadStatus overwrites.
	LeadStatus *LeadStatus
	// NextStep overwrites when non-empty.
	NextStep NextStep
	// Messages are appended to the history.
	Messages []*schema.Message
}

// Reduce applies d to s and returns the new state; s is not modified.
func Reduce(s State, d Delta) State {
	out := s.Clone()

	if d.Intent != nil && !s.Collecting() {
		out.Intent = *d.Intent
	}
	if d.Lead != nil {
		for _, f := range LeadFields {
			if !out.Lead.Has(f) && d.Lead.Has(f) {
				out.Lead = out.Lead.With(f, strings.TrimSpace(d.Lead.Get(f)))
			}
		}
	}
	if d.PendingField != nil {
		out.PendingField = *d.PendingField
	}
	if d.LeadStatus != nil {
		out.LeadStatus = *d.LeadStatus
	}
	if d.NextStep != "" {
		out.NextStep = d.NextStep
	}
	for _, m := range d.Messages {
		if m != nil {
			out.History = append(out.History, m)
		}
	}
	return out
}

// Ptr returns a pointer to v, for building deltas.
func Ptr[T any](v T) *T {
	return &v
}
