package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

// TitleUnlocked matches sessions whose title may still be derived.
type TitleUnlocked struct{}

func (s TitleUnlocked) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("locked = ?", false)
}
