package nodes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autostream-sales-agent/server/internal/agent/model"
)

func newTestClassifier(m model.ChatModel, rec FallbackRecorder) *Classifier {
	return NewClassifier(ClassifierConfig{
		Rules:     DefaultRules(10),
		Model:     m,
		ModelName: "gemini-2.5-flash-lite",
		Company:   "AutoStream",
		Timeout:   time.Second,
		Fallbacks: rec,
	})
}

func TestClassifierKeywordCascade(t *testing.T) {
	m := failing(errors.New("must not be called"))
	c := newTestClassifier(m, nil)

	cases := []struct {
		msg  string
		want model.Intent
	}{
		{"Hi, how much is the Pro plan?", model.IntentInquiry},
		{"I want to sign up for my YouTube channel", model.IntentHighIntent},
		{"hello there, I want to buy the pro plan", model.IntentHighIntent},
		{"Hey! What's the pricing?", model.IntentInquiry},
		{"hello", model.IntentGreeting},
		{"Good morning!", model.IntentGreeting},
		{"Can I cancel anytime?", model.IntentInquiry},
		{"tell me more", model.IntentInquiry},
		{"Sounds good, let's do it", model.IntentHighIntent},
		{"please try again", model.IntentHighIntent},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(context.Background(), stateWith(tc.msg)))
		})
	}
	assert.Zero(t, m.Calls())
}

func TestClassifierHighIntentBeatsGreeting(t *testing.T) {
	c := newTestClassifier(nil, nil)
	for _, msg := range []string{"hi, I want to get started", "hello! ready to subscribe", "hey, sign up please"} {
		assert.Equal(t, model.IntentHighIntent, c.Classify(context.Background(), stateWith(msg)), msg)
	}
}

func TestClassifierGreetingNeedsShortMessage(t *testing.T) {
	m := replying("unknown")
	c := newTestClassifier(m, nil)

	long := "hello my friend it is a lovely sunny afternoon here in the city"
	assert.Equal(t, model.IntentUnknown, c.Classify(context.Background(), stateWith(long)))
	assert.Equal(t, 1, m.Calls())
}

func TestClassifierShortKeywordsNeedWordBoundaries(t *testing.T) {
	m := replying("inquiry")
	c := newTestClassifier(m, nil)

	assert.Equal(t, model.IntentInquiry, c.Classify(context.Background(), stateWith("which one?")))
	assert.Equal(t, 1, m.Calls())
}

func TestClassifierEchoesIntentWhileFieldPending(t *testing.T) {
	m := replying("greeting")
	c := newTestClassifier(m, nil)

	s := stateWith("hello")
	s.Intent = model.IntentHighIntent
	s.PendingField = model.FieldEmail

	d, err := c.Run(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, d.Intent)
	assert.Equal(t, model.IntentHighIntent, *d.Intent)
	assert.Nil(t, d.Lead)
	assert.Nil(t, d.PendingField)
	assert.Zero(t, m.Calls())
}

func TestClassifierModelFallback(t *testing.T) {
	cases := []struct {
		name   string
		model  model.ChatModel
		want   model.Intent
		reason string
	}{
		{"valid label", replying("high_intent"), model.IntentHighIntent, ""},
		{"quoted label", replying("\"Greeting\".\n"), model.IntentGreeting, ""},
		{"invalid label", replying("purchase"), model.IntentInquiry, ReasonInvalidLabel},
		{"model error", failing(errors.New("unavailable")), model.IntentInquiry, ReasonModelError},
		{"nil response", &fakeChatModel{fn: func(context.Context, []*schema.Message) (*schema.Message, error) { return nil, nil }}, model.IntentInquiry, ReasonModelError},
		{"no model", nil, model.IntentInquiry, ReasonNoModel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &countingRecorder{}
			c := newTestClassifier(tc.model, rec)
			got := c.Classify(context.Background(), stateWith("ok whatever"))
			assert.Equal(t, tc.want, got)
			if tc.reason == "" {
				assert.Empty(t, rec.reasons)
			} else {
				assert.Equal(t, []string{NodeClassifier + ":" + tc.reason}, rec.reasons)
			}
		})
	}
}

func TestClassifierModelTimeout(t *testing.T) {
	slow := &fakeChatModel{fn: func(ctx context.Context, _ []*schema.Message) (*schema.Message, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c := NewClassifier(ClassifierConfig{Rules: DefaultRules(10), Model: slow, Timeout: 20 * time.Millisecond})

	start := time.Now()
	assert.Equal(t, model.IntentInquiry, c.Classify(context.Background(), stateWith("ok whatever")))
	assert.Less(t, time.Since(start), time.Second)
}

func TestClassifierPromptCarriesMessage(t *testing.T) {
	m := replying("inquiry")
	c := newTestClassifier(m, nil)
	c.Classify(context.Background(), stateWith("ok whatever"))

	require.Equal(t, 1, m.Calls())
	in := m.calls[0]
	require.Len(t, in, 2)
	assert.Equal(t, schema.System, in[0].Role)
	assert.Equal(t, "User message: ok whatever", in[1].Content)
}

func TestClassifierAccumulatesUsage(t *testing.T) {
	m := &fakeChatModel{fn: func(context.Context, []*schema.Message) (*schema.Message, error) {
		msg := schema.AssistantMessage("inquiry", nil)
		msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 0}}
		return msg, nil
	}}
	c := newTestClassifier(m, nil)

	stats := &model.TurnStats{}
	c.Classify(model.WithTurnStats(context.Background(), stats), stateWith("ok whatever"))

	assert.Equal(t, 1, stats.LLMCalls)
	assert.InDelta(t, 0.10, stats.TotalCostUSD, 1e-9)
}
