package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autostream-sales-agent/server/internal/agent/model"
)

func TestExtractName(t *testing.T) {
	cases := map[string]string{
		"My name is John Doe":      "John Doe",
		"my NAME IS   Jane Roe.":   "Jane Roe",
		"I'm Alex":                 "Alex",
		"i am Priya Patel!":        "Priya Patel",
		"Sam Lee":                  "Sam Lee",
		"  Maria  ":                "Maria",
		"Hi, I’m Chris":            "Chris",
		"the name is Bond, James.": "Bond, James",
		"Heyward Smith":            "Heyward Smith",
		"Hellen":                   "Hellen",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractName(in), in)
	}
}

func TestExtractEmail(t *testing.T) {
	cases := map[string]string{
		"john.doe@example.com":                   "john.doe@example.com",
		"sure, it's jane@example.org.":           "jane@example.org",
		"Email me at <ops@autostream.io> please": "ops@autostream.io",
		"I don't have one":                       "I don't have one",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractEmail(in), in)
	}
}

func TestExtractPlatform(t *testing.T) {
	cases := map[string]string{
		"YouTube":                      "YouTube",
		"mostly you tube these days":   "YouTube",
		"yt":                           "YouTube",
		"Insta":                        "Instagram",
		"tik tok":                      "TikTok",
		"FB and sometimes instagram":   "Instagram",
		"fb":                           "Facebook",
		"X":                            "Twitter",
		"twitch streams":               "Twitch",
		"Linked In":                    "LinkedIn",
		"vimeo":                        "Vimeo",
		"  my own website ":            "My own website",
		"I'm big on pinterest":         "I'm big on pinterest",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractPlatform(in), in)
	}
}

func TestExtractDispatchesByField(t *testing.T) {
	assert.Equal(t, "John", Extract(model.FieldName, "I'm John"))
	assert.Equal(t, "a@b.co", Extract(model.FieldEmail, "a@b.co"))
	assert.Equal(t, "YouTube", Extract(model.FieldPlatform, "youtube"))
	assert.Empty(t, Extract(model.FieldNone, "anything"))
}

func TestExtractIgnoresBareGreetings(t *testing.T) {
	for _, msg := range []string{"hello", "Hey there!", "hi :)", "good morning"} {
		assert.Empty(t, ExtractName(msg), msg)
		assert.Empty(t, ExtractEmail(msg), msg)
		assert.Empty(t, ExtractPlatform(msg), msg)
	}
	assert.Equal(t, "hi@example.com", ExtractEmail("hi@example.com"))
	assert.Equal(t, "Chris", ExtractName("hey, I'm Chris"))
	assert.Equal(t, "YouTube", ExtractPlatform("hi, youtube"))
}
