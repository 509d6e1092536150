package memory

import (
	"context"
	"testing"
	"time"

	"notes-rag-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(owner, note uuid.UUID, updated time.Time, vec ...float32) *entity.EmbeddingRecord {
	return &entity.EmbeddingRecord{
		NoteId:        note,
		OwnerId:       owner,
		Vector:        vec,
		ModelVersion:  "test/v1",
		ContentHash:   "h",
		NoteUpdatedAt: updated,
		ComputedAt:    updated,
	}
}

func TestSearchIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteEmbeddingRepository()
	alice, bob := uuid.New(), uuid.New()
	now := time.Now()

	require.NoError(t, repo.Upsert(ctx, record(alice, uuid.New(), now, 1, 0)))
	require.NoError(t, repo.Upsert(ctx, record(bob, uuid.New(), now, 1, 0)))

	hits, err := repo.Search(ctx, alice, []float32{1, 0}, 10, 0, entity.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, alice, hits[0].Record.OwnerId)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestSearchOrderingAndThreshold(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteEmbeddingRepository()
	owner := uuid.New()
	base := time.Now()

	older := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	newer := uuid.MustParse("00000000-0000-0000-0000-000000000003")
	sameTimeLow := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	opposite := uuid.New()

	require.NoError(t, repo.Upsert(ctx, record(owner, older, base, 1, 0)))
	require.NoError(t, repo.Upsert(ctx, record(owner, newer, base.Add(time.Minute), 1, 0)))
	require.NoError(t, repo.Upsert(ctx, record(owner, sameTimeLow, base, 1, 0)))
	require.NoError(t, repo.Upsert(ctx, record(owner, opposite, base, -1, 0)))

	hits, err := repo.Search(ctx, owner, []float32{1, 0}, 10, 0.3, entity.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 3, "opposite vector scores 0 and is filtered")

	assert.Equal(t, newer, hits[0].Record.NoteId)
	assert.Equal(t, sameTimeLow, hits[1].Record.NoteId)
	assert.Equal(t, older, hits[2].Record.NoteId)

	limited, err := repo.Search(ctx, owner, []float32{1, 0}, 1, 0, entity.SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestUpsertReplacesAndDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteEmbeddingRepository()
	owner, note := uuid.New(), uuid.New()

	require.NoError(t, repo.Upsert(ctx, record(owner, note, time.Now(), 1, 0)))
	require.NoError(t, repo.Upsert(ctx, record(owner, note, time.Now(), 0, 1)))

	all, err := repo.FindAllByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []float32{0, 1}, all[0].Vector)

	require.NoError(t, repo.MarkStale(ctx, owner, note, time.Now()))
	got, err := repo.FindByNote(ctx, owner, note)
	require.NoError(t, err)
	assert.True(t, got.Stale)

	require.NoError(t, repo.Delete(ctx, owner, note))
	require.NoError(t, repo.Delete(ctx, owner, note))
	got, err = repo.FindByNote(ctx, owner, note)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestModelSignaturesAreDistinct(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteEmbeddingRepository()
	owner := uuid.New()

	require.NoError(t, repo.Upsert(ctx, record(owner, uuid.New(), time.Now(), 1, 0)))
	require.NoError(t, repo.Upsert(ctx, record(owner, uuid.New(), time.Now(), 0, 1)))
	other := record(owner, uuid.New(), time.Now(), 1, 0, 0)
	other.ModelVersion = "test/v2"
	require.NoError(t, repo.Upsert(ctx, other))

	sigs, err := repo.ModelSignatures(ctx, owner)
	require.NoError(t, err)
	assert.ElementsMatch(t, []entity.ModelSignature{
		{ModelVersion: "test/v1", Dimension: 2},
		{ModelVersion: "test/v2", Dimension: 3},
	}, sigs)
}

func TestMarkStaleAndTouchOnlyMoveNoteTimeForward(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteEmbeddingRepository()
	owner, note := uuid.New(), uuid.New()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, record(owner, note, base, 1, 0)))

	require.NoError(t, repo.Touch(ctx, owner, note, base.Add(time.Hour)))
	got, err := repo.FindByNote(ctx, owner, note)
	require.NoError(t, err)
	assert.False(t, got.Stale)
	assert.True(t, got.NoteUpdatedAt.Equal(base.Add(time.Hour)))

	require.NoError(t, repo.MarkStale(ctx, owner, note, base))
	got, err = repo.FindByNote(ctx, owner, note)
	require.NoError(t, err)
	assert.True(t, got.Stale)
	assert.True(t, got.NoteUpdatedAt.Equal(base.Add(time.Hour)), "older times never win")

	// Missing records are ignored.
	require.NoError(t, repo.MarkStale(ctx, owner, uuid.New(), base))
}

func TestSearchFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteEmbeddingRepository()
	owner := uuid.New()
	now := time.Now()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, repo.Upsert(ctx, record(owner, a, now, 1, 0)))
	require.NoError(t, repo.Upsert(ctx, record(owner, b, now, 1, 0.1)))
	legacy := record(owner, c, now, 1, 0)
	legacy.ModelVersion = "test/v0"
	require.NoError(t, repo.Upsert(ctx, legacy))

	tests := []struct {
		name   string
		filter entity.SearchFilter
		want   []uuid.UUID
	}{
		{"no filter", entity.SearchFilter{}, []uuid.UUID{a, b, c}},
		{"model", entity.SearchFilter{ModelVersion: "test/v1"}, []uuid.UUID{a, b}},
		{"allow list", entity.SearchFilter{NoteIds: []uuid.UUID{b, c}}, []uuid.UUID{b, c}},
		{"empty allow list", entity.SearchFilter{NoteIds: []uuid.UUID{}}, nil},
		{"exclude", entity.SearchFilter{ExcludeNoteIds: []uuid.UUID{a}}, []uuid.UUID{b, c}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := repo.Search(ctx, owner, []float32{1, 0}, 10, 0, tt.filter)
			require.NoError(t, err)
			got := make([]uuid.UUID, 0, len(hits))
			for _, h := range hits {
				got = append(got, h.Record.NoteId)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestModelSignatureStaleOnlyWhenAllRecordsStale(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteEmbeddingRepository()
	owner := uuid.New()
	first, second := uuid.New(), uuid.New()

	require.NoError(t, repo.Upsert(ctx, record(owner, first, time.Now(), 1, 0)))
	require.NoError(t, repo.Upsert(ctx, record(owner, second, time.Now(), 0, 1)))
	require.NoError(t, repo.MarkStale(ctx, owner, first, time.Now()))

	sigs, err := repo.ModelSignatures(ctx, owner)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.False(t, sigs[0].Stale)

	require.NoError(t, repo.MarkStale(ctx, owner, second, time.Now()))
	sigs, err = repo.ModelSignatures(ctx, owner)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.True(t, sigs[0].Stale)
}
