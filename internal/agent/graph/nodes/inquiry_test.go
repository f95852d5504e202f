package nodes

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autostream-sales-agent/server/internal/agent/graph/conversations"
	"github.com/autostream-sales-agent/server/internal/agent/knowledge"
	"github.com/autostream-sales-agent/server/internal/agent/model"
)

const groundedAnswer = "AutoStream supports YouTube, Instagram, TikTok and more, with optimized exports for each."

func newTestInquiry(m model.ChatModel, r *fakeRetriever, rec FallbackRecorder) *Inquiry {
	cfg := InquiryConfig{
		KnowledgeBase:    knowledge.MustDefault(),
		Rules:            DefaultRules(10),
		Model:            m,
		ModelName:        "gemini-2.5-flash",
		Messages:         conversations.NewMessagesManager(6),
		TopK:             3,
		RetrievalTimeout: time.Second,
		LLMTimeout:       time.Second,
		MinAnswerLength:  20,
		Fallbacks:        rec,
	}
	if r != nil {
		cfg.Retriever = r
	}
	return NewInquiry(cfg)
}

func platformDocs() []*schema.Document {
	return []*schema.Document{{ID: "faq-1#0", Content: "Q: Which platforms does AutoStream support?\n\nA: YouTube, Instagram, TikTok."}}
}

func TestInquiryPricingIsDeterministic(t *testing.T) {
	for _, msg := range []string{"What's your pricing?", "how much does it cost?", "Hi, how much is the Pro plan?"} {
		t.Run(msg, func(t *testing.T) {
			m := replying("The Pro plan is $1 a year!")
			r := &fakeRetriever{docs: platformDocs()}
			n := newTestInquiry(m, r, nil)

			d, err := n.Run(context.Background(), stateWith(msg))
			require.NoError(t, err)
			require.Len(t, d.Messages, 1)
			text := d.Messages[0].Content

			assert.Contains(t, text, "Basic Plan")
			assert.Contains(t, text, "$29/month")
			assert.Contains(t, text, "Pro Plan")
			assert.Contains(t, text, "$79/month")
			assert.Equal(t, model.NextTerminate, d.NextStep)
			assert.Zero(t, m.Calls())
			assert.Zero(t, r.calls)
		})
	}
}

func TestInquiryPricingSameWithoutModel(t *testing.T) {
	withModel := newTestInquiry(replying(groundedAnswer), &fakeRetriever{docs: platformDocs()}, nil)
	withoutModel := newTestInquiry(nil, nil, nil)

	s := stateWith("what is the pricing?")
	assert.Equal(t, withModel.Answer(context.Background(), s), withoutModel.Answer(context.Background(), s))
}

func TestInquiryProFocus(t *testing.T) {
	n := newTestInquiry(nil, nil, nil)
	text := n.Answer(context.Background(), stateWith("Hi, how much is the Pro plan?"))

	assert.True(t, strings.HasPrefix(text, "The Pro Plan costs $79/month"))
	assert.Contains(t, text, "AI captions")
	assert.Contains(t, text, "Unlimited videos")
}

func TestInquiryDetailsFastPath(t *testing.T) {
	m := replying(groundedAnswer)
	n := newTestInquiry(m, &fakeRetriever{docs: platformDocs()}, nil)

	text := n.Answer(context.Background(), stateWith("Tell me more about Pro"))
	assert.Contains(t, text, "Pro Plan - $79/month")
	assert.Contains(t, text, "Recommended for:")
	assert.Zero(t, m.Calls())
}

func TestInquiryDetailsBeatPricingKeywords(t *testing.T) {
	m := replying(groundedAnswer)
	n := newTestInquiry(m, &fakeRetriever{docs: platformDocs()}, nil)

	for _, msg := range []string{"Tell me more about the Pro plan", "Can you tell me more about the pricing?"} {
		text := n.Answer(context.Background(), stateWith(msg))
		assert.Contains(t, text, "Refund Policy", msg)
		assert.Contains(t, text, "Is there a free trial?", msg)
		assert.Contains(t, text, "$79/month", msg)
		assert.Contains(t, text, "$29/month", msg)
	}
	assert.Zero(t, m.Calls())
}

func TestInquiryGroundedGeneration(t *testing.T) {
	m := replying(groundedAnswer)
	r := &fakeRetriever{docs: platformDocs()}
	n := newTestInquiry(m, r, nil)

	s := model.Reduce(model.NewState("s-1"), model.Delta{Messages: []*schema.Message{
		schema.UserMessage("hi"),
		schema.AssistantMessage("Hi there!", nil),
		schema.UserMessage("Which platforms do you support?"),
	}})
	text := n.Answer(context.Background(), s)

	assert.Equal(t, groundedAnswer, text)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 3, r.topK)
	require.Equal(t, 1, m.Calls())

	in := m.calls[0]
	require.Len(t, in, 2)
	assert.Contains(t, in[0].Content, "[Context 1]\nQ: Which platforms")
	assert.Contains(t, in[0].Content, "User: hi\nAssistant: Hi there!")
	assert.Equal(t, "User question: Which platforms do you support?", in[1].Content)
}

func TestInquiryFallsBackToKnowledgeBase(t *testing.T) {
	cases := []struct {
		name   string
		model  model.ChatModel
		ret    *fakeRetriever
		reason string
	}{
		{"model error", failing(errors.New("quota")), &fakeRetriever{docs: platformDocs()}, ReasonModelError},
		{"empty answer", replying("   "), &fakeRetriever{docs: platformDocs()}, ReasonShortAnswer},
		{"short answer", replying("Yes."), &fakeRetriever{docs: platformDocs()}, ReasonShortAnswer},
		{"retrieval error", replying(groundedAnswer), &fakeRetriever{err: errors.New("index down")}, ReasonRetrievalError},
		{"no context", replying(groundedAnswer), &fakeRetriever{}, ReasonNoContext},
		{"no model", nil, &fakeRetriever{docs: platformDocs()}, ReasonNoModel},
	}
	kb := knowledge.MustDefault()
	msg := "do you offer a refund?"

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &countingRecorder{}
			n := newTestInquiry(tc.model, tc.ret, rec)

			text := n.Answer(context.Background(), stateWith(msg))
			assert.Equal(t, kb.FallbackAnswer(msg), text)
			assert.Contains(t, text, "No refunds are issued after 7 days")
			assert.Equal(t, []string{NodeInquiry + ":" + tc.reason}, rec.reasons)
		})
	}
}

func TestInquiryUnknownTopicApologises(t *testing.T) {
	n := newTestInquiry(nil, nil, nil)
	text := n.Answer(context.Background(), stateWith("what's the weather like?"))

	assert.Contains(t, text, "I'm sorry")
	assert.Contains(t, text, "$29/month")
	assert.Contains(t, text, "$79/month")
}
