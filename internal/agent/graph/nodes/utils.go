package nodes

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/schema"

	"github.com/autostream-sales-agent/server/internal/agent/model"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

// Node names, used in logs, metrics and the turn path.
const (
	NodeClassifier    = "intent_classifier"
	NodeGreeting      = "greeting"
	NodeInquiry       = "inquiry"
	NodeLeadCapture   = "lead_capture"
	NodeToolExecution = "tool_execution"
)

// Fallback reasons reported to a FallbackRecorder.
const (
	ReasonNoModel        = "no_model"
	ReasonModelError     = "model_error"
	ReasonInvalidLabel   = "invalid_label"
	ReasonShortAnswer    = "short_answer"
	ReasonRetrievalError = "retrieval_error"
	ReasonNoContext      = "no_context"
	ReasonPromptError    = "prompt_error"
)

var errEmptyResponse = errors.New("empty model response")

// Node is one processing step of a turn. It reads the state and returns the delta to merge.
type Node interface {
	Name() string
	Run(ctx context.Context, s model.State) (model.Delta, error)
}

// FallbackRecorder is notified whenever a node recovers locally from a failed capability.
type FallbackRecorder interface {
	Fallback(component, reason string)
}

type noopRecorder struct{}

func (noopRecorder) Fallback(string, string) {}

func recorderOrNoop(r FallbackRecorder) FallbackRecorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}

// reply builds the delta for an assistant message followed by next.
func reply(content string, next model.NextStep) model.Delta {
	return model.Delta{
		Messages: []*schema.Message{schema.AssistantMessage(content, nil)},
		NextStep: next,
	}
}

// withRunInfo tags ctx so component callbacks report this node.
func withRunInfo(ctx context.Context, name, typ string, component components.Component) context.Context {
	return callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{Name: name, Type: typ, Component: component})
}

// recordUsage computes and logs the usage cost of a model response and adds it to the turn stats.
func recordUsage(ctx context.Context, node, modelName string, out *schema.Message) {
	stats := model.TurnStatsFrom(ctx)
	if stats != nil {
		stats.LLMCalls++
	}
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
	if stats != nil {
		stats.TotalCostUSD += totalC
	}
	logx.Debug().
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}
