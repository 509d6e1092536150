package history

import (
	"notes-rag-be/internal/constant"
	"notes-rag-be/internal/entity"
	"notes-rag-be/pkg/llm"
)

// DefaultWindow is how many trailing messages are replayed to the model.
const DefaultWindow = 10

// Window converts the tail of a session log into model messages, oldest
// first. Only user and assistant turns are replayed.
func Window(messages []*entity.ChatMessage, limit int) []llm.Message {
	if limit <= 0 {
		limit = DefaultWindow
	}
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case constant.ChatMessageRoleUser, constant.ChatMessageRoleAssistant:
			out = append(out, llm.Message{Role: m.Role, Content: m.Content})
		}
	}
	return out
}
