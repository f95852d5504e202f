package graph

import (
	"github.com/autostream-sales-agent/server/internal/agent/graph/nodes"
	"github.com/autostream-sales-agent/server/internal/agent/model"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

// Step is one position of the turn state machine.
type Step string

const (
	StepClassify    Step = nodes.NodeClassifier
	StepGreeting    Step = nodes.NodeGreeting
	StepInquiry     Step = nodes.NodeInquiry
	StepLeadCapture Step = nodes.NodeLeadCapture
	StepTool        Step = nodes.NodeToolExecution
	StepEnd         Step = "end"
)

// transitions lists the legal edges of the turn state machine.
var transitions = map[Step]map[Step]bool{
	StepClassify:    {StepGreeting: true, StepInquiry: true, StepLeadCapture: true},
	StepGreeting:    {StepEnd: true, StepClassify: true},
	StepInquiry:     {StepEnd: true, StepClassify: true},
	StepLeadCapture: {StepEnd: true, StepTool: true, StepClassify: true},
	StepTool:        {StepEnd: true, StepClassify: true},
}

// RouteByIntent picks the generator for a classified state. A pending lead
// field always wins over the intent.
func RouteByIntent(s model.State) Step {
	if s.Collecting() {
		return StepLeadCapture
	}
	switch s.Intent {
	case model.IntentGreeting:
		return StepGreeting
	case model.IntentHighIntent:
		return StepLeadCapture
	default:
		return StepInquiry
	}
}

// RouteNextAction maps the signal left by the last generator to the next step.
func RouteNextAction(s model.State) Step {
	switch s.NextStep {
	case model.NextExecuteTool:
		return StepTool
	case model.NextReclassify:
		return StepClassify
	default:
		return StepEnd
	}
}

// next returns the step that follows from. Edges missing from the transition
// table end the turn.
func next(from Step, s model.State) Step {
	var to Step
	if from == StepClassify {
		to = RouteByIntent(s)
	} else {
		to = RouteNextAction(s)
	}
	if !transitions[from][to] {
		logx.Error().
			Str("session_id", s.SessionID).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("Illegal transition, ending turn")
		return StepEnd
	}
	return to
}
