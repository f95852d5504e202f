package conversations

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// MessagesManager builds the conversation context handed to the response model.
type MessagesManager struct {
	maxTurns int
}

func NewMessagesManager(maxTurns int) *MessagesManager {
	return &MessagesManager{maxTurns: maxTurns}
}

// BuildTranscript renders the recent history, without the latest user message, as
// "User: ..." / "Assistant: ..." lines. Returns "" when there is nothing before it.
func (cm *MessagesManager) BuildTranscript(history []*schema.Message) string {
	prior := dropLatestUser(history)
	recent := trimTail(prior, cm.maxTurns)

	var b strings.Builder
	for _, msg := range recent {
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			b.WriteString("User: ")
		case schema.Assistant:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(strings.TrimSpace(msg.Content))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ====================== Helper function ======================
func dropLatestUser(messages []*schema.Message) []*schema.Message {
	n := len(messages)
	if n > 0 && messages[n-1] != nil && messages[n-1].Role == schema.User {
		return messages[:n-1]
	}
	return messages
}

func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 {
		return nil
	}
	if len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
