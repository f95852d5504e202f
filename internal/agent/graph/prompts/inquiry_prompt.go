package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/inquiry_prompt.txt
var inquirySystemPrompt string

// NoContext is rendered when retrieval returned nothing.
const NoContext = "No relevant information found."

// InquiryVars are the values rendered into the grounding prompt.
type InquiryVars struct {
	Company     string
	Description string
	// Chunks are the retrieved knowledge chunks, best first.
	Chunks []string
	// History is a transcript of recent turns, may be empty.
	History  string
	Question string
}

// RenderInquiry renders the grounded answer prompt and triggers prompt callbacks.
func RenderInquiry(ctx context.Context, vars InquiryVars) ([]*schema.Message, error) {
	if strings.TrimSpace(vars.Question) == "" {
		return nil, fmt.Errorf("inquiry prompt render: empty question")
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(inquirySystemPrompt),
		schema.UserMessage("User question: {{.Question}}"),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"Company":     vars.Company,
		"Description": vars.Description,
		"Context":     FormatContext(vars.Chunks),
		"History":     vars.History,
		"Question":    vars.Question,
	})
	if err != nil {
		return nil, fmt.Errorf("inquiry prompt render: %w", err)
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("inquiry prompt render: expected 2 messages, got %d", len(msgs))
	}
	return msgs, nil
}

// FormatContext numbers retrieved chunks as "[Context i]" blocks.
func FormatContext(chunks []string) string {
	var b strings.Builder
	n := 0
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		n++
		if n > 1 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Context %d]\n%s", n, c)
	}
	if n == 0 {
		return NoContext
	}
	return b.String()
}
