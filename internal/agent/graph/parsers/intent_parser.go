package parsers

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/autostream-sales-agent/server/internal/agent/model"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 4 * 1024
	maxErrSnippet = 200
)

var (
	ErrEmptyLabel   = errors.New("empty label")
	ErrInvalidUTF8  = errors.New("label is not valid utf8")
	ErrUnknownLabel = errors.New("unknown label")
)

var (
	// "intent: inquiry", "Label - greeting"
	labelPrefix = regexp.MustCompile(`(?i)^(?:intent|label|classification|answer)\s*[:=-]\s*`)
	// ```text ... ``` fences some models wrap short answers in
	codeFence = regexp.MustCompile("^```[a-zA-Z]*\\s*|\\s*```$")
)

// ParseIntentLabel extracts one of the valid intents from a classifier response.
// Models are told to answer with the bare label; quoting, code fences, a
// "label:" prefix, trailing punctuation and space or hyphen separators are tolerated.
func ParseIntentLabel(content string) (intent model.Intent, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "intent_parser").Msgf("panic recovered: %v", r)
			intent, err = model.IntentUnknown, fmt.Errorf("intent parser panic: %v", r)
		}
	}()

	// content length guard
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "intent_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}
	if !utf8.ValidString(content) {
		return model.IntentUnknown, ErrInvalidUTF8
	}

	label := strings.TrimSpace(codeFence.ReplaceAllString(strings.TrimSpace(content), ""))
	if i := strings.IndexByte(label, '\n'); i >= 0 {
		label = label[:i]
	}
	label = labelPrefix.ReplaceAllString(strings.TrimSpace(label), "")
	label = strings.Trim(label, "\"'`.!*[]() ")
	label = strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(label))
	if label == "" {
		return model.IntentUnknown, ErrEmptyLabel
	}

	intent, ok := model.ParseIntent(label)
	if !ok {
		return model.IntentUnknown, fmt.Errorf("%w: %q", ErrUnknownLabel, safeSnippet(label))
	}
	return intent, nil
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
