package nodes

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/retriever"

	"github.com/autostream-sales-agent/server/internal/agent/graph/conversations"
	"github.com/autostream-sales-agent/server/internal/agent/graph/prompts"
	"github.com/autostream-sales-agent/server/internal/agent/knowledge"
	"github.com/autostream-sales-agent/server/internal/agent/model"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

type InquiryConfig struct {
	KnowledgeBase *knowledge.KnowledgeBase
	Rules         RuleTable
	// Retriever and Model are optional; without either, answers come from the knowledge base.
	Retriever        retriever.Retriever
	Model            model.ChatModel
	ModelName        string
	Messages         *conversations.MessagesManager
	TopK             int
	RetrievalTimeout time.Duration
	LLMTimeout       time.Duration
	MinAnswerLength  int
	Fallbacks        FallbackRecorder
}

// Inquiry answers product questions. Pricing and "tell me more" questions are
// answered straight from the knowledge base; everything else goes through
// retrieval and the response model, falling back to the knowledge base.
type Inquiry struct {
	kb        *knowledge.KnowledgeBase
	rules     RuleTable
	retriever retriever.Retriever
	model     model.ChatModel
	modelName string
	messages  *conversations.MessagesManager
	topK      int
	retrTO    time.Duration
	llmTO     time.Duration
	minLen    int
	fallbacks FallbackRecorder
}

func NewInquiry(cfg InquiryConfig) *Inquiry {
	mm := cfg.Messages
	if mm == nil {
		mm = conversations.NewMessagesManager(0)
	}
	return &Inquiry{
		kb:        cfg.KnowledgeBase,
		rules:     cfg.Rules,
		retriever: cfg.Retriever,
		model:     cfg.Model,
		modelName: cfg.ModelName,
		messages:  mm,
		topK:      cfg.TopK,
		retrTO:    cfg.RetrievalTimeout,
		llmTO:     cfg.LLMTimeout,
		minLen:    cfg.MinAnswerLength,
		fallbacks: recorderOrNoop(cfg.Fallbacks),
	}
}

func (n *Inquiry) Name() string { return NodeInquiry }

func (n *Inquiry) Run(ctx context.Context, s model.State) (model.Delta, error) {
	return reply(n.Answer(ctx, s), model.NextTerminate), nil
}

// Answer never returns an empty string.
func (n *Inquiry) Answer(ctx context.Context, s model.State) string {
	msg := s.LatestUserMessage()

	focus := ""
	if p, ok := n.kb.MentionedPlan(msg); ok {
		focus = p.Name
	}

	switch topic := n.rules.InquiryTopic(msg); topic {
	case TopicPricing:
		logx.Debug().Str("node", NodeInquiry).Str("topic", string(topic)).Str("focus", focus).Msg("Answering from knowledge base")
		return n.kb.PricingAnswer(focus)
	case TopicDetails:
		logx.Debug().Str("node", NodeInquiry).Str("topic", string(topic)).Str("focus", focus).Msg("Answering from knowledge base")
		return n.kb.DetailsAnswer(focus, msg)
	}

	if answer, ok := n.generate(ctx, s, msg); ok {
		return answer
	}
	return n.kb.FallbackAnswer(msg)
}

func (n *Inquiry) generate(ctx context.Context, s model.State, msg string) (string, bool) {
	if n.model == nil || n.retriever == nil {
		n.fallbacks.Fallback(NodeInquiry, ReasonNoModel)
		return "", false
	}

	chunks, ok := n.retrieve(ctx, msg)
	if !ok {
		return "", false
	}

	in, err := prompts.RenderInquiry(withRunInfo(ctx, "inquiry_prompt", "GoTemplate", components.ComponentOfPrompt), prompts.InquiryVars{
		Company:     n.kb.Company,
		Description: n.kb.Description,
		Chunks:      chunks,
		History:     n.messages.BuildTranscript(s.History),
		Question:    msg,
	})
	if err != nil {
		logx.Warn().Err(err).Str("node", NodeInquiry).Msg("Render inquiry prompt failed")
		n.fallbacks.Fallback(NodeInquiry, ReasonPromptError)
		return "", false
	}

	gctx := ctx
	if n.llmTO > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, n.llmTO)
		defer cancel()
	}
	out, err := n.model.Generate(withRunInfo(gctx, NodeInquiry, "Gemini", components.ComponentOfChatModel), in)
	if err == nil && out == nil {
		err = errEmptyResponse
	}
	if err != nil {
		logx.Warn().Err(err).Str("node", NodeInquiry).Msg("Response model failed; using knowledge base answer")
		n.fallbacks.Fallback(NodeInquiry, ReasonModelError)
		return "", false
	}
	recordUsage(ctx, NodeInquiry, n.modelName, out)

	answer := strings.TrimSpace(out.Content)
	if len(answer) < n.minLen {
		logx.Warn().Str("node", NodeInquiry).Int("length", len(answer)).Msg("Response too short; using knowledge base answer")
		n.fallbacks.Fallback(NodeInquiry, ReasonShortAnswer)
		return "", false
	}
	return answer, true
}

func (n *Inquiry) retrieve(ctx context.Context, msg string) ([]string, bool) {
	if n.retrTO > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.retrTO)
		defer cancel()
	}

	var opts []retriever.Option
	if n.topK > 0 {
		opts = append(opts, retriever.WithTopK(n.topK))
	}
	docs, err := n.retriever.Retrieve(withRunInfo(ctx, "knowledge_index", "KnowledgeIndex", components.ComponentOfRetriever), msg, opts...)
	if err != nil {
		logx.Warn().Err(err).Str("node", NodeInquiry).Msg("Retrieval failed; using knowledge base answer")
		n.fallbacks.Fallback(NodeInquiry, ReasonRetrievalError)
		return nil, false
	}

	chunks := make([]string, 0, len(docs))
	for _, d := range docs {
		if d != nil && strings.TrimSpace(d.Content) != "" {
			chunks = append(chunks, d.Content)
		}
	}
	if len(chunks) == 0 {
		n.fallbacks.Fallback(NodeInquiry, ReasonNoContext)
		return nil, false
	}
	return chunks, true
}
