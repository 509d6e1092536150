package retriever

import (
	"context"
	"testing"
	"time"

	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/internal/repository/memory"
	"notes-rag-be/pkg/keylock"
	"notes-rag-be/pkg/rag"
	"notes-rag-be/pkg/rag/indexer"
	"notes-rag-be/pkg/rag/ragtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	notes     *memory.NoteRepository
	records   *memory.NoteEmbeddingRepository
	embedder  *ragtest.Embedder
	indexer   *indexer.Indexer
	retriever *Retriever
}

func newFixture() *fixture {
	f := &fixture{
		notes:    memory.NewNoteRepository(),
		records:  memory.NewNoteEmbeddingRepository(),
		embedder: ragtest.NewEmbedder("test/v1", 256),
	}
	log := logger.NewNopLogger()
	f.indexer = indexer.New(f.notes, f.records, f.embedder, keylock.NewMemoryLocker(), log, indexer.Options{})
	f.retriever = New(f.records, f.embedder, f.indexer, log, time.Minute)
	return f
}

func (f *fixture) index(t *testing.T, owner uuid.UUID, text string) *entity.Note {
	t.Helper()
	n := &entity.Note{Id: uuid.New(), OwnerId: owner, Text: text, UpdatedAt: time.Now()}
	require.NoError(t, f.notes.Create(context.Background(), n))
	require.NoError(t, f.indexer.Upsert(context.Background(), n))
	return n
}

func hitIds(hits []entity.RetrievalHit) []uuid.UUID {
	ids := make([]uuid.UUID, len(hits))
	for i, h := range hits {
		ids[i] = h.NoteId
	}
	return ids
}

func TestCookingQueryRanksRecipeAbovePhysics(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	n1 := f.index(t, owner, "recipe for pasta")
	n2 := f.index(t, owner, "physics lecture on gravity")

	hits, err := f.retriever.Query(context.Background(), owner, "what did I write about cooking", 2, 0.3)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, []uuid.UUID{n1.Id, n2.Id}, hitIds(hits))
	assert.Equal(t, 1, hits[0].Rank)
	assert.Equal(t, 2, hits[1].Rank)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestQueryNeverCrossesOwners(t *testing.T) {
	f := newFixture()
	alice, bob := uuid.New(), uuid.New()
	f.index(t, alice, "recipe for pasta")
	bobNote := f.index(t, bob, "recipe for pasta")

	for _, q := range []string{"recipe for pasta", "cooking", "gravity"} {
		hits, err := f.retriever.Query(context.Background(), alice, q, 10, 0)
		require.NoError(t, err)
		assert.NotContains(t, hitIds(hits), bobNote.Id)
	}
}

func TestRoundTripSelfSimilarityIsTopHit(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	f.index(t, owner, "physics lecture on gravity")
	target := f.index(t, owner, "grocery list eggs milk bread")

	hits, err := f.retriever.Query(context.Background(), owner, target.Text, 1, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, target.Id, hits[0].NoteId)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestDeletedNoteIsNeverReturned(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()
	n := f.index(t, owner, "recipe for pasta")
	require.NoError(t, f.indexer.Delete(ctx, owner, n.Id))

	hits, err := f.retriever.Query(ctx, owner, "recipe for pasta", 5, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDegenerateQueriesReturnNothing(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	f.index(t, owner, "recipe for pasta")

	tests := []struct {
		name string
		text string
		k    int
	}{
		{"zero k", "pasta", 0},
		{"negative k", "pasta", -3},
		{"blank text", "   ", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := f.retriever.Query(context.Background(), owner, tt.text, tt.k, 0)
			require.NoError(t, err)
			assert.Empty(t, hits)
		})
	}
}

func TestOwnerWithoutNotesGetsEmptyList(t *testing.T) {
	f := newFixture()
	hits, err := f.retriever.Query(context.Background(), uuid.New(), "anything", 3, 0.3)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
	assert.Zero(t, f.embedder.TotalCalls())
}

func TestMinScoreFiltersWeakHits(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	f.index(t, owner, "physics lecture on gravity")

	hits, err := f.retriever.Query(context.Background(), owner, "recipe for pasta", 3, 0.99)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestModelChangeRealignsThenSucceeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()
	n := f.index(t, owner, "recipe for pasta")

	// Warm the cache with the old model.
	_, err := f.retriever.Query(ctx, owner, "recipe for pasta", 1, 0)
	require.NoError(t, err)

	// A note indexed after the upgrade leaves the owner with mixed models.
	f.embedder.SetModel("test/v2", 128)
	f.index(t, owner, "physics lecture on gravity")

	_, err = f.retriever.Query(ctx, owner, "recipe for pasta", 1, 0)
	require.ErrorIs(t, err, rag.ErrModelVersionMismatch)

	sigs, err := f.records.ModelSignatures(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []entity.ModelSignature{{ModelVersion: "test/v2", Dimension: 128}}, sigs)

	hits, err := f.retriever.Query(ctx, owner, "recipe for pasta", 1, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, n.Id, hits[0].NoteId)
}

func TestQueryEmbeddingFailureSurfaces(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	f.index(t, owner, "recipe for pasta")
	f.embedder.FailOn("broken query", ragtest.ErrEmbedderDown)

	_, err := f.retriever.Query(context.Background(), owner, "broken query", 3, 0)
	assert.ErrorIs(t, err, rag.ErrEmbeddingFailure)
}

func TestEqualScoresFollowLatestEditEvenWhenStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	a := &entity.Note{Id: uuid.New(), OwnerId: owner, Text: "recipe for pasta", UpdatedAt: base}
	b := &entity.Note{Id: uuid.New(), OwnerId: owner, Text: "recipe for pasta", UpdatedAt: base.Add(time.Minute)}
	for _, n := range []*entity.Note{a, b} {
		require.NoError(t, f.notes.Create(ctx, n))
		require.NoError(t, f.indexer.Upsert(ctx, n))
	}

	// a is edited last, but its refresh fails and the old vector stays.
	edited := *a
	edited.Text = "recipe for pasta with extra garlic"
	edited.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, f.notes.Update(ctx, &edited))
	f.embedder.FailOn(edited.Text, ragtest.ErrEmbedderDown)
	require.ErrorIs(t, f.indexer.Upsert(ctx, &edited), rag.ErrEmbeddingFailure)

	hits, err := f.retriever.Query(ctx, owner, "recipe for pasta", 2, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.InDelta(t, hits[0].Score, hits[1].Score, 1e-9)
	assert.Equal(t, []uuid.UUID{a.Id, b.Id}, hitIds(hits))
}

func TestQueryWithinOnlyRanksGivenNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()
	pasta := f.index(t, owner, "recipe for pasta")
	sauce := f.index(t, owner, "tomato sauce for dinner")
	f.index(t, owner, "physics lecture on gravity")

	hits, err := f.retriever.QueryWithin(ctx, owner, []uuid.UUID{sauce.Id}, "recipe for pasta", 3, 0)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{sauce.Id}, hitIds(hits))

	none, err := f.retriever.QueryWithin(ctx, owner, nil, "recipe for pasta", 3, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := f.retriever.Query(ctx, owner, "recipe for pasta", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{pasta.Id}, hitIds(all))
}

func TestSimilarExcludesTheNoteItself(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()
	pasta := f.index(t, owner, "recipe for pasta")
	sauce := f.index(t, owner, "tomato sauce for dinner")
	physics := f.index(t, owner, "physics lecture on gravity")
	foreign := f.index(t, uuid.New(), "recipe for pasta")

	hits, err := f.retriever.Similar(ctx, owner, pasta.Id, 5, 0)
	require.NoError(t, err)
	ids := hitIds(hits)
	assert.NotContains(t, ids, pasta.Id)
	assert.NotContains(t, ids, foreign.Id)
	require.Len(t, ids, 2)
	assert.Equal(t, []uuid.UUID{sauce.Id, physics.Id}, ids)

	unknown, err := f.retriever.Similar(ctx, owner, uuid.New(), 5, 0)
	require.NoError(t, err)
	assert.Empty(t, unknown)

	// Another owner's note has no neighbours for this owner.
	crossed, err := f.retriever.Similar(ctx, owner, foreign.Id, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, crossed)
}

func TestFailedReembedDoesNotRealignOnEveryQuery(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()
	pasta := f.index(t, owner, "recipe for pasta")
	f.index(t, owner, "keeps failing")

	f.embedder.SetModel("test/v2", 128)
	f.embedder.FailOn("keeps failing", ragtest.ErrEmbedderDown)

	_, err := f.retriever.Query(ctx, owner, "recipe for pasta", 1, 0)
	require.ErrorIs(t, err, rag.ErrModelVersionMismatch)
	attempts := f.embedder.Calls("keeps failing")

	for i := 0; i < 3; i++ {
		hits, err := f.retriever.Query(ctx, owner, "recipe for pasta", 1, 0)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{pasta.Id}, hitIds(hits))
	}
	assert.Equal(t, attempts, f.embedder.Calls("keeps failing"), "no further realign")
}
