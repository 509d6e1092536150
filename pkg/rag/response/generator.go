package response

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/pkg/llm"
	"notes-rag-be/pkg/rag"
	"notes-rag-be/pkg/rag/prompt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const module = "ResponseGenerator"

// Request is everything a generation call sees. History ends with the
// question being answered.
type Request struct {
	SystemPrompt  string
	ContextBlocks []string
	History       []llm.Message
}

// Generator produces assistant text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// LLMGenerator runs requests against an LLM provider with a per-attempt
// deadline. A timed-out attempt is retried once with the same messages;
// a second timeout yields rag.ErrGenerationTimeout.
type LLMGenerator struct {
	provider  llm.LLMProvider
	timeout   time.Duration
	logger    logger.ILogger
	promptLog logger.ILogger
	tracer    trace.Tracer
}

// NewLLMGenerator builds a generator. promptLog receives full prompts and
// may be the same logger as log.
func NewLLMGenerator(provider llm.LLMProvider, timeout time.Duration, log logger.ILogger, promptLog logger.ILogger) *LLMGenerator {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if promptLog == nil {
		promptLog = log
	}
	return &LLMGenerator{
		provider:  provider,
		timeout:   timeout,
		logger:    log,
		promptLog: promptLog,
		tracer:    otel.Tracer("notes-rag-be/generator"),
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, req Request) (string, error) {
	ctx, span := g.tracer.Start(ctx, "Generator.Generate", trace.WithAttributes(
		attribute.Int("context_blocks", len(req.ContextBlocks)),
		attribute.Int("history", len(req.History)),
	))
	defer span.End()

	messages := prompt.NewContextualBuilder(req.SystemPrompt, req.ContextBlocks, req.History).Build()
	g.promptLog.Info(module, "Prompt", map[string]interface{}{
		"messages": messages,
	})

	for attempt := 1; attempt <= 2; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
		out, err := g.provider.Chat(attemptCtx, messages)
		timedOut := attemptCtx.Err() == context.DeadlineExceeded
		cancel()

		if err == nil {
			span.SetAttributes(attribute.Int("attempts", attempt))
			return strings.TrimSpace(out), nil
		}
		if ctx.Err() != nil {
			span.SetStatus(codes.Error, "cancelled")
			return "", ctx.Err()
		}
		if !timedOut && !isTimeout(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "generation failed")
			return "", fmt.Errorf("generation failed: %w", err)
		}

		g.logger.Warn(module, "Generation timed out", map[string]interface{}{
			"attempt": attempt,
			"timeout": g.timeout.String(),
		})
	}

	span.SetStatus(codes.Error, "timeout")
	return "", rag.ErrGenerationTimeout
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
