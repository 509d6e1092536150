package implementation

import (
	"context"
	"errors"
	"time"

	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/mapper"
	"notes-rag-be/internal/model"
	"notes-rag-be/internal/repository/contract"
	"notes-rag-be/internal/repository/scope"
	"notes-rag-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatSessionRepository(db *gorm.DB) contract.ChatSessionRepository {
	return &ChatSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatSessionRepositoryImpl) Create(ctx context.Context, session *entity.ChatSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *ChatSessionRepositoryImpl) FindByID(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) (*entity.ChatSession, error) {
	var m model.ChatSession
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByID{ID: id},
		specification.OwnedBy{OwnerID: ownerId},
	)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}

func (r *ChatSessionRepositoryImpl) FindAllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.ChatSession, error) {
	var models []*model.ChatSession
	query := applySpecifications(r.db.WithContext(ctx),
		specification.OwnedBy{OwnerID: ownerId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.SessionsToEntities(models), nil
}

func (r *ChatSessionRepositoryImpl) Delete(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := applySpecifications(tx,
			specification.ByID{ID: id},
			specification.OwnedBy{OwnerID: ownerId},
		).Delete(&model.ChatSession{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return applySpecifications(tx, specification.ByChatSessionID{ChatSessionID: id}).
			Delete(&model.ChatMessage{}).Error
	})
}

func (r *ChatSessionRepositoryImpl) LockTitle(ctx context.Context, id uuid.UUID, title string) (bool, error) {
	res := applySpecifications(r.db.WithContext(ctx).Model(&model.ChatSession{}),
		specification.ByID{ID: id},
		specification.TitleUnlocked{},
	).Updates(map[string]interface{}{
		"title":      title,
		"locked":     true,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ChatSessionRepositoryImpl) ResetTitle(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error {
	return applySpecifications(r.db.WithContext(ctx).Model(&model.ChatSession{}),
		specification.ByID{ID: id},
		specification.OwnedBy{OwnerID: ownerId},
	).Updates(map[string]interface{}{
		"title":      gorm.Expr("NULL"),
		"locked":     false,
		"updated_at": time.Now(),
	}).Error
}

// AppendMessages relies on the (chat_session_id, position) unique index to
// reject interleaved writers from other instances.
func (r *ChatSessionRepositoryImpl) AppendMessages(ctx context.Context, sessionId uuid.UUID, messages ...*entity.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	models := make([]*model.ChatMessage, len(messages))
	for i, msg := range messages {
		msg.ChatSessionId = sessionId
		models[i] = r.mapper.MessageToModel(msg)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models).Error; err != nil {
			return err
		}
		for i, m := range models {
			messages[i].Id = m.Id
		}
		last := models[len(models)-1].CreatedAt
		return applySpecifications(tx.Model(&model.ChatSession{}), specification.ByID{ID: sessionId}).
			Update("updated_at", last).Error
	})
}

func (r *ChatSessionRepositoryImpl) FindMessages(ctx context.Context, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	var models []*model.ChatMessage
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByChatSessionID{ChatSessionID: sessionId},
	).Scopes(scope.OrderByPositionAsc)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.MessagesToEntities(models), nil
}
