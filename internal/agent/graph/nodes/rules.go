package nodes

import (
	"strings"
	"unicode"

	"github.com/autostream-sales-agent/server/internal/agent/model"
)

// Topic refines an intent for the generator that handles it.
type Topic string

const (
	TopicNone     Topic = ""
	TopicSignup   Topic = "signup"
	TopicPricing  Topic = "pricing"
	TopicDetails  Topic = "details"
	TopicGeneral  Topic = "general"
	TopicGreeting Topic = "greeting"
)

// Rule is one entry of the keyword table. A rule matches when any keyword occurs
// in the message and, if MaxWords is set, the message has fewer than MaxWords words.
type Rule struct {
	Intent   model.Intent
	Topic    Topic
	Keywords []string
	MaxWords int
}

// RuleTable is evaluated top to bottom; the first matching rule wins. Its order
// encodes the priority high_intent > inquiry > greeting.
type RuleTable []Rule

var greetingKeywords = []string{"hi", "hello", "hey", "good morning", "good afternoon"}

// DefaultRules returns the keyword table with the greeting word limit applied.
func DefaultRules(greetingMaxWords int) RuleTable {
	return RuleTable{
		{
			Intent: model.IntentHighIntent,
			Topic:  TopicSignup,
			Keywords: []string{
				"sign up", "want to try", "i want", "get started",
				"purchase", "buy", "subscribe", "interested in",
				"ready to", "let's go", "sounds good", "i'll take",
				"try again", "retry",
			},
		},
		{
			Intent:   model.IntentInquiry,
			Topic:    TopicDetails,
			Keywords: []string{"tell me more", "more details"},
		},
		{
			Intent:   model.IntentInquiry,
			Topic:    TopicPricing,
			Keywords: []string{"how much", "price", "pricing", "cost", "plan"},
		},
		{
			Intent: model.IntentInquiry,
			Topic:  TopicGeneral,
			Keywords: []string{
				"feature", "what is", "tell me about", "do you", "can i",
				"support", "refund", "cancel", "trial",
			},
		},
		{
			Intent:   model.IntentGreeting,
			Topic:    TopicGreeting,
			Keywords: greetingKeywords,
			MaxWords: greetingMaxWords,
		},
	}
}

// Match returns the first rule matching text.
func (t RuleTable) Match(text string) (Rule, bool) {
	norm := normalizeText(text)
	n := wordCount(text)
	for _, r := range t {
		if r.MaxWords > 0 && n >= r.MaxWords {
			continue
		}
		if containsAny(norm, r.Keywords) {
			return r, true
		}
	}
	return Rule{}, false
}

// InquiryTopic returns the topic of the first inquiry rule matching text, ignoring
// rules for other intents. It is TopicNone when no inquiry keyword occurs.
func (t RuleTable) InquiryTopic(text string) Topic {
	norm := normalizeText(text)
	for _, r := range t {
		if r.Intent != model.IntentInquiry {
			continue
		}
		if containsAny(norm, r.Keywords) {
			return r.Topic
		}
	}
	return TopicNone
}

func normalizeText(text string) string {
	text = strings.ToLower(text)
	// typographic apostrophes from mobile keyboards
	return strings.NewReplacer("’", "'", "‘", "'").Replace(text)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if containsKeyword(text, k) {
			return true
		}
	}
	return false
}

// containsKeyword reports whether keyword occurs in text starting at a word
// boundary. Two-letter keywords must also end at one, so "hi" matches neither
// "this" nor "high".
func containsKeyword(text, keyword string) bool {
	return matchKeyword(text, keyword, len(keyword) <= 2)
}

// containsWord reports whether keyword occurs in text as whole words, so "hey"
// does not match "heyward".
func containsWord(text, keyword string) bool {
	return matchKeyword(text, keyword, true)
}

func matchKeyword(text, keyword string, whole bool) bool {
	for from := 0; from <= len(text)-len(keyword); {
		i := strings.Index(text[from:], keyword)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(keyword)
		if isBoundary(text, start-1) && (!whole || isBoundary(text, end)) {
			return true
		}
		from = start + 1
	}
	return false
}

func isBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	c := rune(text[i])
	return !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '\''
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
