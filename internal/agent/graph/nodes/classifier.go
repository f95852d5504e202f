package nodes

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components"

	"github.com/autostream-sales-agent/server/internal/agent/graph/parsers"
	"github.com/autostream-sales-agent/server/internal/agent/graph/prompts"
	"github.com/autostream-sales-agent/server/internal/agent/model"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

type ClassifierConfig struct {
	Rules RuleTable
	// Model is optional; without it unmatched messages default to inquiry.
	Model     model.ChatModel
	ModelName string
	Company   string
	Timeout   time.Duration
	Fallbacks FallbackRecorder
}

// Classifier maps the latest user message to an intent: keyword rules first,
// then the language model, then inquiry.
type Classifier struct {
	rules     RuleTable
	model     model.ChatModel
	modelName string
	company   string
	timeout   time.Duration
	fallbacks FallbackRecorder
}

func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{
		rules:     cfg.Rules,
		model:     cfg.Model,
		modelName: cfg.ModelName,
		company:   cfg.Company,
		timeout:   cfg.Timeout,
		fallbacks: recorderOrNoop(cfg.Fallbacks),
	}
}

func (c *Classifier) Name() string { return NodeClassifier }

func (c *Classifier) Run(ctx context.Context, s model.State) (model.Delta, error) {
	intent := c.Classify(ctx, s)
	return model.Delta{Intent: &intent}, nil
}

// Classify never mutates s and never fails.
func (c *Classifier) Classify(ctx context.Context, s model.State) model.Intent {
	if s.Collecting() {
		return s.Intent
	}

	msg := s.LatestUserMessage()
	if r, ok := c.rules.Match(msg); ok {
		logx.Debug().Str("node", NodeClassifier).Str("intent", string(r.Intent)).Str("topic", string(r.Topic)).Msg("Keyword rule matched")
		return r.Intent
	}
	return c.classifyWithModel(ctx, msg)
}

func (c *Classifier) classifyWithModel(ctx context.Context, msg string) model.Intent {
	if c.model == nil {
		c.fallbacks.Fallback(NodeClassifier, ReasonNoModel)
		return model.IntentInquiry
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	in, err := prompts.RenderClassify(withRunInfo(ctx, "classify_prompt", "GoTemplate", components.ComponentOfPrompt), c.company, msg)
	if err != nil {
		logx.Warn().Err(err).Str("node", NodeClassifier).Msg("Render classify prompt failed; defaulting to inquiry")
		c.fallbacks.Fallback(NodeClassifier, ReasonPromptError)
		return model.IntentInquiry
	}

	out, err := c.model.Generate(withRunInfo(ctx, NodeClassifier, "Gemini", components.ComponentOfChatModel), in)
	if err == nil && out == nil {
		err = errEmptyResponse
	}
	if err != nil {
		logx.Warn().Err(err).Str("node", NodeClassifier).Msg("Classifier model failed; defaulting to inquiry")
		c.fallbacks.Fallback(NodeClassifier, ReasonModelError)
		return model.IntentInquiry
	}
	recordUsage(ctx, NodeClassifier, c.modelName, out)

	intent, err := parsers.ParseIntentLabel(out.Content)
	if err != nil {
		logx.Warn().Err(err).Str("node", NodeClassifier).Msg("Classifier returned an invalid label; defaulting to inquiry")
		c.fallbacks.Fallback(NodeClassifier, ReasonInvalidLabel)
		return model.IntentInquiry
	}
	logx.Debug().Str("node", NodeClassifier).Str("intent", string(intent)).Msg("Model classified intent")
	return intent
}
