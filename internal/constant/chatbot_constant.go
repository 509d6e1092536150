package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// SubjectUncategorized is the sentinel label returned when no subject
	// suggestion is confident enough.
	SubjectUncategorized = "Uncategorized"

	// NoNotesFoundMessage leads every answer produced without source notes.
	NoNotesFoundMessage = "I couldn't find any matching notes to answer your question."

	FallbackChatTitle  = "Chat Session"
	MaxChatTitleLength = 50

	RagSystemPromptV1 = `You are a helpful study assistant that answers questions based on the user's personal notes.

INSTRUCTIONS:
1. Answer only from the notes provided inside <sources>.
2. Each note starts with a marker like [note:<id>]. Mention the subject or note a fact comes from.
3. If the sources do not contain enough information, say so clearly.
4. Keep the response concise but informative.`

	NoSourcesSystemPromptV1 = `You are a helpful study assistant that answers questions based on the user's personal notes.

No sources: none of the user's notes matched this question.
Tell the user plainly that no matching notes were found. Do not invent content from notes.
You may suggest what kind of note would help answer the question.`

	TitleSystemPromptV1 = `Generate a short, descriptive title (max 6 words) for a chat conversation.
The title should capture the main topic being asked about. Do not include quotes or extra formatting.
Examples:
- "What is photosynthesis?" -> Photosynthesis Questions
- "Help me understand calculus derivatives" -> Calculus Derivatives Help
Reply with the title only.`
)

// GenericSuggestedQuestions fill the suggestion list after subject-specific ones.
var GenericSuggestedQuestions = []string{
	"What are the main topics in my notes?",
	"Can you summarize my recent notes?",
	"What have I been studying recently?",
	"What questions should I review for my exams?",
}
