package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"

	"github.com/autostream-sales-agent/server/internal/agent/graph/tools"
	"github.com/autostream-sales-agent/server/internal/agent/model"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

const leadFailureReply = "I'm sorry, there was an issue capturing your information. Please try again later."

type ToolExecutionConfig struct {
	Tool     tool.InvokableTool
	Timeout  time.Duration
	Company  string
	PlanName string
}

// ToolExecution registers the collected lead. It is the only node with an external side effect.
type ToolExecution struct {
	tool     tool.InvokableTool
	timeout  time.Duration
	company  string
	planName string
}

func NewToolExecution(cfg ToolExecutionConfig) *ToolExecution {
	return &ToolExecution{
		tool:     cfg.Tool,
		timeout:  cfg.Timeout,
		company:  cfg.Company,
		planName: cfg.PlanName,
	}
}

func (n *ToolExecution) Name() string { return NodeToolExecution }

func (n *ToolExecution) Run(ctx context.Context, s model.State) (model.Delta, error) {
	if missing := s.Lead.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, f := range missing {
			names[i] = string(f)
		}
		logx.Error().Str("node", NodeToolExecution).Strs("missing", names).Msg("Tool execution reached with an incomplete lead")
		return reply(fmt.Sprintf(
			"I can't complete your registration yet because I'm missing your %s.", strings.Join(names, ", "),
		), model.NextTerminate), nil
	}

	leadID, err := n.register(ctx, s)
	if err != nil {
		logx.Warn().Err(err).Str("node", NodeToolExecution).Msg("Lead registration failed")
		d := reply(leadFailureReply, model.NextTerminate)
		d.LeadStatus = model.Ptr(model.LeadStatusFailed)
		return d, nil
	}

	logx.Info().Str("node", NodeToolExecution).Str("lead_id", leadID).Str("platform", s.Lead.Platform).Msg("Lead registered")
	d := reply(fmt.Sprintf(
		"Perfect! I've got you all set up, %s. You'll receive an email at %s with instructions to activate your %s. Welcome to %s! 🎉",
		s.Lead.Name, s.Lead.Email, n.planName, n.company,
	), model.NextTerminate)
	d.LeadStatus = model.Ptr(model.LeadStatusRegistered)
	return d, nil
}

// register invokes the tool, emitting tool callbacks around the call.
func (n *ToolExecution) register(ctx context.Context, s model.State) (leadID string, err error) {
	if n.tool == nil {
		return "", fmt.Errorf("no lead registration tool configured")
	}

	args, err := tools.RegisterLeadArguments(s.SessionID, s.Lead)
	if err != nil {
		return "", err
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	ctx = withRunInfo(ctx, tools.ToolRegisterLead, "LocalTool", components.ComponentOfTool)
	ctx = callbacks.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: args})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	raw, err := n.tool.InvokableRun(ctx, args)
	if err != nil {
		return "", err
	}
	callbacks.OnEnd(ctx, &tool.CallbackOutput{Response: raw})

	out, perr := tools.ParseRegisterLeadOutput(raw)
	if perr != nil {
		// the lead is stored; only the id is lost
		logx.Warn().Err(perr).Str("node", NodeToolExecution).Msg("Unreadable register_lead response")
		return "", nil
	}
	return out.LeadID, nil
}
