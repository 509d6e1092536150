package contract

import (
	"context"

	"notes-rag-be/internal/entity"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	FindByID(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) (*entity.ChatSession, error)
	FindAllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.ChatSession, error)
	Delete(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error

	// LockTitle sets the title only while the session is unlocked and reports
	// whether it did.
	LockTitle(ctx context.Context, id uuid.UUID, title string) (bool, error)
	ResetTitle(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error

	// AppendMessages stores all messages or none.
	AppendMessages(ctx context.Context, sessionId uuid.UUID, messages ...*entity.ChatMessage) error
	// FindMessages returns the session log in append order.
	FindMessages(ctx context.Context, sessionId uuid.UUID) ([]*entity.ChatMessage, error)
}
