package nodes

import (
	"context"
	"fmt"

	"github.com/autostream-sales-agent/server/internal/agent/model"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

// LeadCapture collects name, email and platform one field per turn.
//
//	START -> ASK_NAME -> ASK_EMAIL -> ASK_PLATFORM -> READY_FOR_TOOL
//
// The current step is implied by the pending field. A field that is already
// present is never asked for again and never overwritten.
type LeadCapture struct {
	planName string
}

func NewLeadCapture(planName string) *LeadCapture {
	return &LeadCapture{planName: planName}
}

func (n *LeadCapture) Name() string { return NodeLeadCapture }

func (n *LeadCapture) Run(_ context.Context, s model.State) (model.Delta, error) {
	if !s.Collecting() {
		return n.start(s), nil
	}

	pending := s.PendingField
	lead := s.Lead
	if !lead.Has(pending) {
		if v := Extract(pending, s.LatestUserMessage()); v != "" {
			lead = lead.With(pending, v)
		}
	}

	next := lead.FirstMissing()
	logx.Debug().
		Str("node", NodeLeadCapture).
		Str("pending_field", string(pending)).
		Bool("captured", lead.Has(pending)).
		Str("next_field", string(next)).
		Msg("Lead field processed")

	var d model.Delta
	if next == model.FieldNone {
		d = model.Delta{NextStep: model.NextExecuteTool}
	} else {
		d = reply(n.question(next, lead, next == pending), model.NextTerminate)
	}
	d.Lead = &lead
	d.PendingField = &next
	return d, nil
}

// start handles the first entry into lead capture.
func (n *LeadCapture) start(s model.State) model.Delta {
	if s.LeadStatus == model.LeadStatusRegistered && s.Lead.Complete() {
		return reply(fmt.Sprintf(
			"You're already set up, %s! Check %s for the instructions to activate your %s. Is there anything else I can help you with?",
			s.Lead.Name, s.Lead.Email, n.planName,
		), model.NextTerminate)
	}

	next := s.Lead.FirstMissing()
	if next == model.FieldNone {
		// collected earlier but not registered, e.g. after a failed attempt
		return model.Delta{PendingField: model.Ptr(model.FieldNone), NextStep: model.NextExecuteTool}
	}

	text := n.question(next, s.Lead, false)
	if next == model.FieldName {
		text = fmt.Sprintf("That's great! I'd love to help you get started with the %s. Can I get your name first?", n.planName)
	}
	d := reply(text, model.NextTerminate)
	d.PendingField = &next
	return d
}

func (n *LeadCapture) question(f model.Field, lead model.Lead, again bool) string {
	switch f {
	case model.FieldName:
		return "Could you please provide your name?"
	case model.FieldEmail:
		if again || !lead.Has(model.FieldName) {
			return "Could you please provide your email address?"
		}
		return fmt.Sprintf("Thanks, %s! What's your email address?", lead.Name)
	case model.FieldPlatform:
		if again {
			return "Which platform do you primarily create content for? (e.g., YouTube, Instagram, TikTok)"
		}
		return "Great! Which platform do you primarily create content for? (e.g., YouTube, Instagram, TikTok)"
	}
	return ""
}
