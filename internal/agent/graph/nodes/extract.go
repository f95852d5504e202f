package nodes

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/autostream-sales-agent/server/internal/agent/model"
)

var (
	nameIsMarker = regexp.MustCompile(`(?i)\bname\s+is\b`)
	selfMarker   = regexp.MustCompile(`(?i)\b(?:i'm|i’m|i am)\b`)
)

// platformAliases maps spellings to canonical platform names. The first
// matching entry wins.
var platformAliases = []struct {
	canonical string
	re        *regexp.Regexp
}{
	{"YouTube", regexp.MustCompile(`(?i)\b(?:youtube|you\s+tube|youtub|yt)\b`)},
	{"Instagram", regexp.MustCompile(`(?i)\b(?:instagram|insta|instagr[ae]m|ig)\b`)},
	{"TikTok", regexp.MustCompile(`(?i)\b(?:tiktok|tik\s+tok|tik-tok|ticktock)\b`)},
	{"Facebook", regexp.MustCompile(`(?i)\b(?:facebook|face\s+book|fb)\b`)},
	{"Twitter", regexp.MustCompile(`(?i)\b(?:twitter|x)\b`)},
	{"Twitch", regexp.MustCompile(`(?i)\btwitch\b`)},
	{"LinkedIn", regexp.MustCompile(`(?i)\b(?:linkedin|linked\s+in)\b`)},
}

// smallTalkMaxWords bounds the messages treated as a bare greeting.
const smallTalkMaxWords = 3

// Extract pulls the value for field out of message. Extraction is best effort:
// when no marker is found the whole trimmed message is used, unless the message
// is a bare greeting.
func Extract(field model.Field, message string) string {
	switch field {
	case model.FieldName:
		return ExtractName(message)
	case model.FieldEmail:
		return ExtractEmail(message)
	case model.FieldPlatform:
		return ExtractPlatform(message)
	}
	return ""
}

func ExtractName(message string) string {
	msg := strings.TrimSpace(message)
	if loc := nameIsMarker.FindStringIndex(msg); loc != nil {
		if v := cleanValue(msg[loc[1]:]); v != "" {
			return v
		}
	}
	if loc := selfMarker.FindStringIndex(msg); loc != nil {
		if v := cleanValue(msg[loc[1]:]); v != "" {
			return v
		}
	}
	if isSmallTalk(msg) {
		return ""
	}
	return cleanValue(msg)
}

func ExtractEmail(message string) string {
	for _, tok := range strings.Fields(message) {
		if strings.Contains(tok, "@") {
			if v := strings.TrimFunc(tok, isEdgePunct); v != "" {
				return v
			}
		}
	}
	if isSmallTalk(message) {
		return ""
	}
	return strings.TrimSpace(message)
}

func ExtractPlatform(message string) string {
	for _, a := range platformAliases {
		if a.re.MatchString(message) {
			return a.canonical
		}
	}
	if isSmallTalk(message) {
		return ""
	}
	return capitalize(strings.TrimSpace(message))
}

// isSmallTalk reports whether message is a short greeting such as "hello" or "hey there!".
func isSmallTalk(message string) bool {
	if wordCount(message) > smallTalkMaxWords {
		return false
	}
	norm := normalizeText(message)
	for _, k := range greetingKeywords {
		if containsWord(norm, k) {
			return true
		}
	}
	return false
}

// cleanValue trims whitespace and surrounding punctuation.
func cleanValue(s string) string {
	return strings.TrimFunc(strings.TrimSpace(s), func(r rune) bool {
		return unicode.IsSpace(r) || isEdgePunct(r)
	})
}

func isEdgePunct(r rune) bool {
	switch r {
	case '.', ',', '!', '?', ';', ':', '"', '\'', '(', ')', '<', '>', '[', ']':
		return true
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
