package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/autostream-sales-agent/server/internal/agent/model"
)

const ToolRegisterLead = "register_lead"

// ===================================
// Register Lead Tool
// ===================================

type RegisterLeadInput struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Platform  string `json:"platform"`
}

type RegisterLeadOutput struct {
	LeadID string `json:"lead_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// NewRegisterLeadTool exposes a LeadRegistry as an invokable Eino tool.
func NewRegisterLeadTool(registry model.LeadRegistry) (tool.InvokableTool, error) {
	if registry == nil {
		return nil, fmt.Errorf("register_lead: registry is required")
	}
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolRegisterLead,
			Desc: "Register a qualified sales lead once the user's name, email and content platform are known.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"session_id": {
					Type: "string",
					Desc: "Conversation the lead was collected in",
				},
				"name": {
					Type:     "string",
					Desc:     "Full name of the user",
					Required: true,
				},
				"email": {
					Type:     "string",
					Desc:     "Email address of the user",
					Required: true,
				},
				"platform": {
					Type:     "string",
					Desc:     "Primary content platform, e.g. YouTube, Instagram, TikTok",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *RegisterLeadInput) (*RegisterLeadOutput, error) {
			lead := model.Lead{
				Name:     strings.TrimSpace(in.Name),
				Email:    strings.TrimSpace(in.Email),
				Platform: strings.TrimSpace(in.Platform),
			}
			if missing := lead.Missing(); len(missing) > 0 {
				return nil, fmt.Errorf("register_lead: missing fields %v", missing)
			}

			id, err := registry.RegisterLead(ctx, model.NewLeadRecord(in.SessionID, lead))
			if err != nil {
				return nil, fmt.Errorf("register_lead: %w", err)
			}
			return &RegisterLeadOutput{LeadID: id, Name: lead.Name, Email: lead.Email}, nil
		},
	), nil
}

// RegisterLeadArguments encodes the tool arguments for lead.
func RegisterLeadArguments(sessionID string, lead model.Lead) (string, error) {
	b, err := json.Marshal(RegisterLeadInput{
		SessionID: sessionID,
		Name:      lead.Name,
		Email:     lead.Email,
		Platform:  lead.Platform,
	})
	if err != nil {
		return "", fmt.Errorf("encode register_lead arguments: %w", err)
	}
	return string(b), nil
}

// ParseRegisterLeadOutput decodes the tool response.
func ParseRegisterLeadOutput(raw string) (RegisterLeadOutput, error) {
	var out RegisterLeadOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return RegisterLeadOutput{}, fmt.Errorf("decode register_lead output: %w", err)
	}
	return out, nil
}
