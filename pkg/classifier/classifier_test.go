package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"notes-rag-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedProvider struct {
	reply  string
	err    error
	prompt string
}

func (p *cannedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	p.prompt = history[len(history)-1].Content
	return p.reply, p.err
}

func (p *cannedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func TestClassifyParsesFencedJSON(t *testing.T) {
	p := &cannedProvider{reply: "```json\n{\"label\": \"Physics\", \"confidence\": 0.82}\n```"}
	c := NewLLMClassifier(p)

	res, err := c.Classify(context.Background(), "momentum and force", []string{"Physics", "Cooking"})
	require.NoError(t, err)
	assert.Equal(t, "Physics", res.Label)
	assert.InDelta(t, 0.82, res.Confidence, 1e-9)
	assert.Contains(t, p.prompt, "- Physics\n")
	assert.Contains(t, p.prompt, "momentum and force")
}

func TestClassifyNoneAndClamping(t *testing.T) {
	res, err := parseResponse(`{"label": "NONE", "confidence": 0.7}`)
	require.NoError(t, err)
	assert.Empty(t, res.Label)
	assert.Zero(t, res.Confidence)

	res, err = parseResponse(`{"label": "Biology", "confidence": 3}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestClassifyErrors(t *testing.T) {
	_, err := NewLLMClassifier(&cannedProvider{err: errors.New("offline")}).
		Classify(context.Background(), "x", []string{"A"})
	assert.ErrorContains(t, err, "offline")

	_, err = NewLLMClassifier(&cannedProvider{reply: "Physics, probably"}).
		Classify(context.Background(), "x", []string{"A"})
	assert.ErrorContains(t, err, "parse json")
}

func TestPromptTruncatesLongText(t *testing.T) {
	prompt := buildPrompt(strings.Repeat("é", 3000), []string{"A"})
	assert.Equal(t, maxTextRunes, strings.Count(prompt, "é"))
}
