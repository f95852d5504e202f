package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionLockLease(t *testing.T) {
	assert.Equal(t, 70*time.Second, SessionConfig{}.LockLease(AgentConfig{}), "2 * (2*10s + 5s + 10s)")

	slow := AgentConfig{LLMTimeout: time.Minute, RetrievalTimeout: 10 * time.Second, ToolTimeout: 30 * time.Second}
	assert.Equal(t, 2*time.Minute+40*time.Second, slow.TurnBudget())
	assert.Equal(t, 5*time.Minute+20*time.Second, SessionConfig{}.LockLease(slow))

	fast := AgentConfig{LLMTimeout: time.Second, RetrievalTimeout: time.Second, ToolTimeout: time.Second}
	assert.Equal(t, 30*time.Second, SessionConfig{}.LockLease(fast), "derived lease never drops below 30s")

	assert.Equal(t, 45*time.Second, SessionConfig{LockTTL: 45 * time.Second}.LockLease(slow), "explicit lease wins")
}
