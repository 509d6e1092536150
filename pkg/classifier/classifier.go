// Package classifier asks a language model to pick a subject label for a
// piece of note text.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"notes-rag-be/pkg/llm"
)

// maxTextRunes bounds how much note text goes into the prompt.
const maxTextRunes = 1000

// Result is the raw classifier answer. Label may fall outside the offered
// labels; callers reconcile it.
type Result struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (*Result, error)
}

// LLMClassifier implements Classifier on top of a chat model.
type LLMClassifier struct {
	provider llm.LLMProvider
}

func NewLLMClassifier(provider llm.LLMProvider) *LLMClassifier {
	return &LLMClassifier{provider: provider}
}

func (c *LLMClassifier) Classify(ctx context.Context, text string, labels []string) (*Result, error) {
	resp, err := c.provider.Chat(ctx, []llm.Message{
		{Role: "user", Content: buildPrompt(text, labels)},
	}, llm.WithTemperature(0), llm.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("classifier call: %w", err)
	}
	return parseResponse(resp)
}

func buildPrompt(text string, labels []string) string {
	if runes := []rune(text); len(runes) > maxTextRunes {
		text = string(runes[:maxTextRunes])
	}

	var sb strings.Builder
	sb.WriteString("Classify the following text from handwritten notes into one of these EXACT subjects.\n\n")
	sb.WriteString("Subjects:\n")
	for _, label := range labels {
		sb.WriteString("- ")
		sb.WriteString(label)
		sb.WriteString("\n")
	}
	sb.WriteString("\nText:\n")
	sb.WriteString(text)
	sb.WriteString(`

Return a JSON object with this structure:
{"label": "<subject name>", "confidence": 0.9}

Rules:
- Use one of the subject names exactly as listed
- If several apply, choose the dominant one
- If none fits, use "NONE" with confidence 0
- Confidence is 0.0-1.0

Return ONLY the JSON, no other text.`)
	return sb.String()
}

func parseResponse(resp string) (*Result, error) {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var result Result
	if err := json.Unmarshal([]byte(resp), &result); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}

	result.Label = strings.TrimSpace(result.Label)
	if strings.EqualFold(result.Label, "none") {
		result.Label = ""
		result.Confidence = 0
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return &result, nil
}
