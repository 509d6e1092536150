package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("RAG_MIN_SCORE", "")

	cfg := Load()

	assert.Equal(t, 3, cfg.Rag.TopK)
	assert.InDelta(t, 0.3, cfg.Rag.MinScore, 1e-9)
	assert.Equal(t, 1, cfg.Rag.TitleAfterExchanges)
	assert.Equal(t, "pgvector", cfg.Rag.VectorStore)
	assert.Equal(t, "postgres", cfg.Database.Backend)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RAG_TOP_K", "7")
	t.Setenv("RAG_MIN_SCORE", "0.55")
	t.Setenv("RAG_GENERATION_TIMEOUT", "5s")
	t.Setenv("VECTOR_STORE", "qdrant")
	t.Setenv("DB_BACKEND", "memory")

	cfg := Load()

	assert.Equal(t, 7, cfg.Rag.TopK)
	assert.InDelta(t, 0.55, cfg.Rag.MinScore, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.Rag.GenerationTimeout)
	assert.Equal(t, "qdrant", cfg.Rag.VectorStore)
	assert.Equal(t, "memory", cfg.Database.Backend)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RAG_MAX_CONTEXT_LENGTH", "lots")
	t.Setenv("RAG_EMBED_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 6000, cfg.Rag.MaxContextLength)
	assert.Equal(t, 30*time.Second, cfg.Rag.EmbedTimeout)
}

func TestTracingAndMigrateFlags(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLE_RATIO", "0.25")
	t.Setenv("DB_AUTO_MIGRATE", "yes")

	cfg := Load()

	assert.True(t, cfg.Tracing.Enabled)
	assert.InDelta(t, 0.25, cfg.Tracing.SampleRatio, 1e-9)
	// ParseBool rejects "yes", so the default stays.
	assert.False(t, cfg.Database.AutoMigrate)
}
