package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatMessage struct {
	Id            uuid.UUID                      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID                      `gorm:"type:uuid;not null;uniqueIndex:idx_chat_messages_position"`
	Position      int                            `gorm:"not null;uniqueIndex:idx_chat_messages_position"`
	Role          string                         `gorm:"type:varchar(50);not null"`
	Content       string                         `gorm:"type:text;not null"`
	CitedNoteIds  datatypes.JSONSlice[uuid.UUID] `gorm:"type:jsonb"`
	CreatedAt     time.Time                      `gorm:"not null"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
