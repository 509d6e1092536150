package contract

import (
	"context"
	"time"

	"notes-rag-be/internal/entity"

	"github.com/google/uuid"
)

// NoteEmbeddingRepository is the owner-partitioned vector store. It holds at
// most one record per note id. Returned records may lack Vector;
// ModelSignatures is the source of truth for dimensions.
type NoteEmbeddingRepository interface {
	// Upsert writes or replaces the record for rec.NoteId.
	Upsert(ctx context.Context, rec *entity.EmbeddingRecord) error
	// Delete removes the record; deleting a missing record is not an error.
	Delete(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID) error
	// MarkStale flags an existing record and moves its note time forward to
	// noteUpdatedAt. Missing records are ignored.
	MarkStale(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID, noteUpdatedAt time.Time) error
	// Touch moves the record's note time forward without flagging it.
	Touch(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID, noteUpdatedAt time.Time) error
	FindByNote(ctx context.Context, ownerId uuid.UUID, noteId uuid.UUID) (*entity.EmbeddingRecord, error)
	FindAllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.EmbeddingRecord, error)
	// ModelSignatures returns the distinct (model, dimension) pairs indexed for
	// the owner, each flagged Stale when all of its records are stale.
	ModelSignatures(ctx context.Context, ownerId uuid.UUID) ([]entity.ModelSignature, error)
	// Search ranks the owner's records against vector. Results are ordered by
	// score desc, note updatedAt desc, note id asc, and exclude scores below minScore
	// and records the filter rejects.
	Search(ctx context.Context, ownerId uuid.UUID, vector []float32, limit int, minScore float64, filter entity.SearchFilter) ([]*entity.ScoredRecord, error)
}
