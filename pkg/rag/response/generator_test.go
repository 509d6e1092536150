package response

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/pkg/llm"
	"notes-rag-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider hangs until the deadline for the first `hang` calls, then answers.
type scriptedProvider struct {
	mu       sync.Mutex
	hang     int
	err      error
	answer   string
	calls    int
	received [][]llm.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.received = append(p.received, history)
	p.mu.Unlock()

	if call <= p.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if p.err != nil {
		return "", p.err
	}
	return p.answer, nil
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func request() Request {
	return Request{
		SystemPrompt:  "sys",
		ContextBlocks: []string{"[note:x] Subject: S\nbody\n"},
		History:       []llm.Message{{Role: "user", Content: "q"}},
	}
}

func TestGenerateRetriesOnceWithSameInput(t *testing.T) {
	p := &scriptedProvider{hang: 1, answer: "  answer  "}
	g := NewLLMGenerator(p, 20*time.Millisecond, logger.NewNopLogger(), nil)

	out, err := g.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	require.Equal(t, 2, p.calls)
	assert.Equal(t, p.received[0], p.received[1])
}

func TestGenerateSurfacesSecondTimeout(t *testing.T) {
	p := &scriptedProvider{hang: 2}
	g := NewLLMGenerator(p, 10*time.Millisecond, logger.NewNopLogger(), nil)

	_, err := g.Generate(context.Background(), request())
	assert.ErrorIs(t, err, rag.ErrGenerationTimeout)
	assert.Equal(t, 2, p.calls)
}

func TestGenerateDoesNotRetryOtherErrors(t *testing.T) {
	p := &scriptedProvider{err: errors.New("model not found")}
	g := NewLLMGenerator(p, time.Second, logger.NewNopLogger(), nil)

	_, err := g.Generate(context.Background(), request())
	require.Error(t, err)
	assert.NotErrorIs(t, err, rag.ErrGenerationTimeout)
	assert.Equal(t, 1, p.calls)
}

func TestGenerateStopsWhenCallerCancels(t *testing.T) {
	p := &scriptedProvider{hang: 2}
	g := NewLLMGenerator(p, time.Second, logger.NewNopLogger(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.Generate(ctx, request())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, p.calls)
}
