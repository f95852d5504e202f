package nodes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autostream-sales-agent/server/internal/agent/graph/tools"
	"github.com/autostream-sales-agent/server/internal/agent/model"
)

func newTestToolExecution(t *testing.T, reg model.LeadRegistry) *ToolExecution {
	t.Helper()
	tl, err := tools.NewRegisterLeadTool(reg)
	require.NoError(t, err)
	return NewToolExecution(ToolExecutionConfig{
		Tool:     tl,
		Timeout:  time.Second,
		Company:  "AutoStream",
		PlanName: "Pro plan",
	})
}

func completeState() model.State {
	s := model.NewState("s-1")
	s.Lead = model.Lead{Name: "John Doe", Email: "john.doe@example.com", Platform: "YouTube"}
	return s
}

func TestToolExecutionRegistersLead(t *testing.T) {
	reg := &fakeRegistry{}
	n := newTestToolExecution(t, reg)

	d, err := n.Run(context.Background(), completeState())
	require.NoError(t, err)

	require.Len(t, reg.records, 1)
	assert.Equal(t, "John Doe", reg.records[0].Name)
	assert.Equal(t, "s-1", reg.records[0].SessionID)

	require.Len(t, d.Messages, 1)
	assert.Contains(t, d.Messages[0].Content, "John Doe")
	assert.Contains(t, d.Messages[0].Content, "john.doe@example.com")
	assert.Contains(t, d.Messages[0].Content, "Welcome to AutoStream!")
	assert.Equal(t, model.NextTerminate, d.NextStep)
	require.NotNil(t, d.LeadStatus)
	assert.Equal(t, model.LeadStatusRegistered, *d.LeadStatus)
}

func TestToolExecutionFailureKeepsLead(t *testing.T) {
	n := newTestToolExecution(t, &fakeRegistry{err: errors.New("crm unavailable")})

	s := completeState()
	d, err := n.Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, leadFailureReply, d.Messages[0].Content)
	assert.Equal(t, model.LeadStatusFailed, *d.LeadStatus)
	assert.Nil(t, d.Lead)
	assert.Nil(t, d.PendingField)

	next := model.Reduce(s, d)
	assert.Equal(t, s.Lead, next.Lead)
}

func TestToolExecutionRefusesIncompleteLead(t *testing.T) {
	reg := &fakeRegistry{}
	n := newTestToolExecution(t, reg)

	s := model.NewState("s-1")
	s.Lead = model.Lead{Name: "John"}
	d, err := n.Run(context.Background(), s)
	require.NoError(t, err)

	assert.Empty(t, reg.records)
	assert.Contains(t, d.Messages[0].Content, "email, platform")
	assert.Nil(t, d.LeadStatus)
	assert.Equal(t, model.NextTerminate, d.NextStep)
}

func TestToolExecutionWithoutTool(t *testing.T) {
	n := NewToolExecution(ToolExecutionConfig{Company: "AutoStream", PlanName: "Pro plan"})
	d, err := n.Run(context.Background(), completeState())
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusFailed, *d.LeadStatus)
}
