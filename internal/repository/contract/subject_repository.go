package contract

import (
	"context"

	"notes-rag-be/internal/entity"

	"github.com/google/uuid"
)

type SubjectRepository interface {
	Create(ctx context.Context, subject *entity.Subject) error
	FindByID(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) (*entity.Subject, error)
	FindAllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.Subject, error)
}
