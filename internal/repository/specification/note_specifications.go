package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmbeddingOfNote selects the embedding row of one note.
type EmbeddingOfNote struct {
	NoteID uuid.UUID
}

func (s EmbeddingOfNote) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("note_id = ?", s.NoteID)
}

// InSubject selects notes filed under one subject.
type InSubject struct {
	SubjectID uuid.UUID
}

func (s InSubject) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("subject_id = ?", s.SubjectID)
}

// EmbeddingsOfNotes keeps only embedding rows of the given notes.
type EmbeddingsOfNotes struct {
	NoteIDs []uuid.UUID
}

func (s EmbeddingsOfNotes) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("note_id IN ?", s.NoteIDs)
}

// EmbeddingsExcept drops embedding rows of the given notes.
type EmbeddingsExcept struct {
	NoteIDs []uuid.UUID
}

func (s EmbeddingsExcept) Apply(db *gorm.DB) *gorm.DB {
	if len(s.NoteIDs) == 0 {
		return db
	}
	return db.Where("note_id NOT IN ?", s.NoteIDs)
}
