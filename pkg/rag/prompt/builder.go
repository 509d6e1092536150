package prompt

import (
	"strings"

	"notes-rag-be/internal/constant"
	"notes-rag-be/pkg/llm"
)

// ContextualBuilder turns instructions, context blocks and conversation
// history into the message list sent to the model.
type ContextualBuilder struct {
	systemPrompt string
	blocks       []string
	history      []llm.Message
}

func NewContextualBuilder(systemPrompt string, blocks []string, history []llm.Message) *ContextualBuilder {
	return &ContextualBuilder{
		systemPrompt: systemPrompt,
		blocks:       blocks,
		history:      history,
	}
}

// Build returns one system message carrying instructions and sources,
// followed by the history unchanged.
func (b *ContextualBuilder) Build() []llm.Message {
	var system strings.Builder
	b.writeInstructions(&system)
	b.writeSources(&system)

	messages := make([]llm.Message, 0, len(b.history)+1)
	messages = append(messages, llm.Message{
		Role:    constant.ChatMessageRoleSystem,
		Content: strings.TrimRight(system.String(), "\n"),
	})
	return append(messages, b.history...)
}

func (b *ContextualBuilder) writeInstructions(prompt *strings.Builder) {
	prompt.WriteString(b.systemPrompt)
	prompt.WriteString("\n\n")
}

func (b *ContextualBuilder) writeSources(prompt *strings.Builder) {
	if len(b.blocks) == 0 {
		return
	}

	prompt.WriteString("<sources>\n")
	prompt.WriteString(strings.Join(b.blocks, "\n"))
	prompt.WriteString("</sources>\n")
}

// TitleHistory is the single-turn history used to derive a chat title.
func TitleHistory(question string) []llm.Message {
	return []llm.Message{{
		Role:    constant.ChatMessageRoleUser,
		Content: "Question: " + question + "\nTitle:",
	}}
}
