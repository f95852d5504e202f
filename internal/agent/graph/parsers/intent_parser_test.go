package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autostream-sales-agent/server/internal/agent/model"
)

func TestParseIntentLabel(t *testing.T) {
	cases := map[string]model.Intent{
		"inquiry":                   model.IntentInquiry,
		"  GREETING\n":              model.IntentGreeting,
		"high_intent.":              model.IntentHighIntent,
		"\"high_intent\"":           model.IntentHighIntent,
		"high intent":               model.IntentHighIntent,
		"high-intent":               model.IntentHighIntent,
		"Intent: unknown":           model.IntentUnknown,
		"label = inquiry":           model.IntentInquiry,
		"```\ninquiry\n```":         model.IntentInquiry,
		"**greeting**":              model.IntentGreeting,
		"inquiry\nThe user asks...": model.IntentInquiry,
	}
	for in, want := range cases {
		got, err := ParseIntentLabel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseIntentLabelErrors(t *testing.T) {
	_, err := ParseIntentLabel("   ")
	assert.ErrorIs(t, err, ErrEmptyLabel)

	_, err = ParseIntentLabel("complaint")
	assert.ErrorIs(t, err, ErrUnknownLabel)

	_, err = ParseIntentLabel("The user wants pricing, so inquiry")
	assert.ErrorIs(t, err, ErrUnknownLabel)

	_, err = ParseIntentLabel(string([]byte{0xff, 0xfe}))
	assert.ErrorIs(t, err, ErrInvalidUTF8)

	got, err := ParseIntentLabel(strings.Repeat("x", maxContentLen+10))
	assert.ErrorIs(t, err, ErrUnknownLabel)
	assert.Equal(t, model.IntentUnknown, got)
	assert.LessOrEqual(t, len(err.Error()), maxErrSnippet+50)
}
