package contract

import (
	"context"

	"notes-rag-be/internal/entity"

	"github.com/google/uuid"
)

// NoteRepository is the authoritative note store. Every lookup is scoped by
// owner; a note belonging to someone else is reported as absent (nil, nil).
type NoteRepository interface {
	Create(ctx context.Context, note *entity.Note) error
	Update(ctx context.Context, note *entity.Note) error
	Delete(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error
	FindByID(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) (*entity.Note, error)
	FindAllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.Note, error)
	FindAllBySubject(ctx context.Context, ownerId uuid.UUID, subjectId uuid.UUID) ([]*entity.Note, error)
}
