package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/autostream-sales-agent/server/internal/agent/model"
)

//go:embed template/classify_prompt.txt
var classifySystemPrompt string

// RenderClassify renders the intent classification prompt via the Eino prompt component.
// This triggers Prompt callbacks. The message is passed as a value and never parsed as a template.
func RenderClassify(ctx context.Context, company, message string) ([]*schema.Message, error) {
	labels := make([]string, 0, len(model.Intents))
	for _, in := range model.Intents {
		labels = append(labels, string(in))
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(classifySystemPrompt),
		schema.UserMessage("User message: {{.Message}}"),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"Company": company,
		"Labels":  strings.Join(labels, "/"),
		"Message": message,
	})
	if err != nil {
		return nil, fmt.Errorf("classify prompt render: %w", err)
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("classify prompt render: expected 2 messages, got %d", len(msgs))
	}
	return msgs, nil
}
