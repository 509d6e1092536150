package mapper

import (
	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type NoteEmbeddingMapper struct{}

func NewNoteEmbeddingMapper() *NoteEmbeddingMapper {
	return &NoteEmbeddingMapper{}
}

func (m *NoteEmbeddingMapper) ToEntity(e *model.NoteEmbedding) *entity.EmbeddingRecord {
	if e == nil {
		return nil
	}

	return &entity.EmbeddingRecord{
		NoteId:        e.NoteId,
		OwnerId:       e.OwnerId,
		Vector:        e.Embedding.Slice(),
		ModelVersion:  e.ModelVersion,
		ContentHash:   e.ContentHash,
		NoteUpdatedAt: e.NoteUpdatedAt,
		ComputedAt:    e.ComputedAt,
		Stale:         e.Stale,
	}
}

func (m *NoteEmbeddingMapper) ToModel(e *entity.EmbeddingRecord) *model.NoteEmbedding {
	if e == nil {
		return nil
	}

	return &model.NoteEmbedding{
		NoteId:        e.NoteId,
		OwnerId:       e.OwnerId,
		Embedding:     pgvector.NewVector(e.Vector),
		ModelVersion:  e.ModelVersion,
		Dimension:     e.Dimension(),
		ContentHash:   e.ContentHash,
		NoteUpdatedAt: e.NoteUpdatedAt,
		ComputedAt:    e.ComputedAt,
		Stale:         e.Stale,
	}
}

func (m *NoteEmbeddingMapper) ToEntities(rows []*model.NoteEmbedding) []*entity.EmbeddingRecord {
	entities := make([]*entity.EmbeddingRecord, len(rows))
	for i, r := range rows {
		entities[i] = m.ToEntity(r)
	}
	return entities
}

func (m *NoteEmbeddingMapper) ToScored(rows []*model.NoteEmbeddingScored) []*entity.ScoredRecord {
	scored := make([]*entity.ScoredRecord, len(rows))
	for i, r := range rows {
		scored[i] = &entity.ScoredRecord{
			Record: m.ToEntity(&r.NoteEmbedding),
			Score:  r.Score,
		}
	}
	return scored
}
