package model

import (
	"encoding/json"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateDefaults(t *testing.T) {
	s := NewState("s-1")

	assert.Equal(t, "s-1", s.SessionID)
	assert.Equal(t, IntentUnknown, s.Intent)
	assert.Equal(t, FieldNone, s.PendingField)
	assert.Equal(t, LeadStatusNone, s.LeadStatus)
	assert.Equal(t, []Field{FieldName, FieldEmail, FieldPlatform}, s.Lead.Missing())
	assert.False(t, s.Collecting())
	require.NoError(t, s.Validate())
}

func TestReduceFillsLeadOnlyWhereAbsent(t *testing.T) {
	s := NewState("s-1")
	s = Reduce(s, Delta{Lead: &Lead{Name: "John Doe"}})
	s = Reduce(s, Delta{Lead: &Lead{Name: "Someone Else", Email: "john@example.com"}})

	assert.Equal(t, "John Doe", s.Lead.Name)
	assert.Equal(t, "john@example.com", s.Lead.Email)
	assert.Equal(t, FieldPlatform, s.Lead.FirstMissing())
}

func TestReduceNeverClearsLeadFields(t *testing.T) {
	s := Reduce(NewState("s-1"), Delta{Lead: &Lead{Name: "Ann", Email: "ann@example.com"}})
	s = Reduce(s, Delta{Lead: &Lead{}})

	assert.Equal(t, "Ann", s.Lead.Name)
	assert.Equal(t, "ann@example.com", s.Lead.Email)
}

func TestReduceKeepsIntentWhileFieldPending(t *testing.T) {
	s := Reduce(NewState("s-1"), Delta{Intent: Ptr(IntentHighIntent), PendingField: Ptr(FieldEmail)})
	require.Equal(t, IntentHighIntent, s.Intent)

	s = Reduce(s, Delta{Intent: Ptr(IntentGreeting)})
	assert.Equal(t, IntentHighIntent, s.Intent)

	s = Reduce(s, Delta{PendingField: Ptr(FieldNone)})
	s = Reduce(s, Delta{Intent: Ptr(IntentGreeting)})
	assert.Equal(t, IntentGreeting, s.Intent)
}

func TestReduceAppendsHistoryWithoutAliasing(t *testing.T) {
	base := Reduce(NewState("s-1"), Delta{Messages: []*schema.Message{schema.UserMessage("hi")}})
	next := Reduce(base, Delta{Messages: []*schema.Message{schema.AssistantMessage("hello", nil)}, NextStep: NextReclassify})

	assert.Len(t, base.History, 1)
	assert.Len(t, next.History, 2)
	assert.Equal(t, NextReclassify, next.NextStep)
	assert.Equal(t, NextTerminate, base.NextStep)

	next.History[0].Content = "changed"
	assert.Equal(t, "hi", base.History[0].Content)
}

func TestLatestUserMessage(t *testing.T) {
	s := Reduce(NewState("s-1"), Delta{Messages: []*schema.Message{
		schema.UserMessage("first"),
		schema.AssistantMessage("reply", nil),
		schema.UserMessage("second"),
		schema.AssistantMessage("reply", nil),
	}})
	assert.Equal(t, "second", s.LatestUserMessage())
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	var s State
	require.NoError(t, json.Unmarshal([]byte(`{"session_id":"x","intent":"purchase","pending_field":"none","lead_status":"none"}`), &s))
	assert.Error(t, s.Validate())

	s = NewState("x")
	s.PendingField = "phone"
	assert.Error(t, s.Validate())
}

func TestParseIntent(t *testing.T) {
	in, ok := ParseIntent("  High_Intent\n")
	assert.True(t, ok)
	assert.Equal(t, IntentHighIntent, in)

	_, ok = ParseIntent("buy")
	assert.False(t, ok)
}

func TestStateJSONRoundTripKeepsSentinels(t *testing.T) {
	b, err := json.Marshal(NewState("s-1"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"pending_field":"none"`)
	assert.Contains(t, string(b), `"lead":{"name":"","email":"","platform":""}`)
}
