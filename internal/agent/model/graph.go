package model

// TurnStatus is the outcome reported to the inbound caller.
type TurnStatus string

const (
	StatusSuccess TurnStatus = "success"
	StatusError   TurnStatus = "error"
)

// TurnInput represents one inbound user message.
type TurnInput struct {
	SessionID string `json:"thread_id"`
	Message   string `json:"message"`
}

// TurnResult is what submit_turn returns.
type TurnResult struct {
	SessionID string     `json:"thread_id"`
	Reply     string     `json:"response"`
	Intent    Intent     `json:"intent"`
	Status    TurnStatus `json:"status"`

	// Diagnostics, not part of the wire contract.
	Path         []string `json:"-"`
	PendingField Field    `json:"-"`
	Lead         Lead     `json:"-"`
	TotalCostUSD float64  `json:"-"`
}

// TurnStats accumulates per-turn accounting while the turn runs.
// It is owned by a single turn and never shared across sessions.
type TurnStats struct {
	TotalCostUSD float64
	LLMCalls     int
}
