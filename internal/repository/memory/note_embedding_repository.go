package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/repository/contract"
	"notes-rag-be/pkg/embedding"

	"github.com/google/uuid"
)

// NoteEmbeddingRepository is a brute-force cosine store, partitioned by owner.
type NoteEmbeddingRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]map[uuid.UUID]*entity.EmbeddingRecord // owner -> note -> record
}

func NewNoteEmbeddingRepository() *NoteEmbeddingRepository {
	return &NoteEmbeddingRepository{records: make(map[uuid.UUID]map[uuid.UUID]*entity.EmbeddingRecord)}
}

var _ contract.NoteEmbeddingRepository = (*NoteEmbeddingRepository)(nil)

func cloneRecord(rec *entity.EmbeddingRecord) *entity.EmbeddingRecord {
	cp := *rec
	cp.Vector = slices.Clone(rec.Vector)
	return &cp
}

func (r *NoteEmbeddingRepository) Upsert(ctx context.Context, rec *entity.EmbeddingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	partition, ok := r.records[rec.OwnerId]
	if !ok {
		partition = make(map[uuid.UUID]*entity.EmbeddingRecord)
		r.records[rec.OwnerId] = partition
	}
	partition[rec.NoteId] = cloneRecord(rec)
	return nil
}

func (r *NoteEmbeddingRepository) Delete(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records[ownerId], noteId)
	return nil
}

func (r *NoteEmbeddingRepository) MarkStale(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID, noteUpdatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[ownerId][noteId]; ok {
		rec.Stale = true
		if noteUpdatedAt.After(rec.NoteUpdatedAt) {
			rec.NoteUpdatedAt = noteUpdatedAt
		}
	}
	return nil
}

func (r *NoteEmbeddingRepository) Touch(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID, noteUpdatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[ownerId][noteId]; ok && noteUpdatedAt.After(rec.NoteUpdatedAt) {
		rec.NoteUpdatedAt = noteUpdatedAt
	}
	return nil
}

func (r *NoteEmbeddingRepository) FindByNote(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID) (*entity.EmbeddingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[ownerId][noteId]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec), nil
}

func (r *NoteEmbeddingRepository) FindAllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.EmbeddingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.EmbeddingRecord, 0, len(r.records[ownerId]))
	for _, rec := range r.records[ownerId] {
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

func (r *NoteEmbeddingRepository) ModelSignatures(ctx context.Context, ownerId uuid.UUID) ([]entity.ModelSignature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := make([]*entity.EmbeddingRecord, 0, len(r.records[ownerId]))
	for _, rec := range r.records[ownerId] {
		recs = append(recs, rec)
	}
	return entity.Signatures(recs, (*entity.EmbeddingRecord).Dimension), nil
}

func (r *NoteEmbeddingRepository) Search(ctx context.Context, ownerId uuid.UUID, vector []float32, limit int, minScore float64, filter entity.SearchFilter) ([]*entity.ScoredRecord, error) {
	if limit <= 0 || len(vector) == 0 {
		return []*entity.ScoredRecord{}, nil
	}

	r.mu.RLock()
	scored := make([]*entity.ScoredRecord, 0, len(r.records[ownerId]))
	for _, rec := range r.records[ownerId] {
		if rec.Dimension() != len(vector) || !filter.Matches(rec) {
			continue
		}
		score := embedding.NormalizedScore(embedding.CosineSimilarity(vector, rec.Vector))
		if score < minScore {
			continue
		}
		scored = append(scored, &entity.ScoredRecord{Record: cloneRecord(rec), Score: score})
	}
	r.mu.RUnlock()

	slices.SortFunc(scored, entity.CompareScored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}
