package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// NoteEmbedding keeps one row per note. The vector column has no fixed
// dimension so a model switch does not need a schema change.
type NoteEmbedding struct {
	NoteId        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerId       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Embedding     pgvector.Vector `gorm:"type:vector;not null"`
	ModelVersion  string          `gorm:"type:varchar(100);not null"`
	Dimension     int             `gorm:"not null"`
	ContentHash   string          `gorm:"type:char(64);not null"`
	NoteUpdatedAt time.Time       `gorm:"not null"`
	ComputedAt    time.Time       `gorm:"not null"`
	Stale         bool            `gorm:"not null;default:false"`
}

func (NoteEmbedding) TableName() string {
	return "note_embeddings"
}

// NoteEmbeddingScored is the projection returned by similarity search.
type NoteEmbeddingScored struct {
	NoteEmbedding
	Score float64
}
