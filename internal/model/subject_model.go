package model

import (
	"time"

	"github.com/google/uuid"
)

type Subject struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerId   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subjects_owner_name"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_subjects_owner_name"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Subject) TableName() string {
	return "subjects"
}
