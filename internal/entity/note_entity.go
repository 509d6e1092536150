package entity

import (
	"time"

	"github.com/google/uuid"
)

type Note struct {
	Id        uuid.UUID
	OwnerId   uuid.UUID
	SubjectId *uuid.UUID
	Title     string
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NoteView is a note resolved together with its subject name, as consumed by
// the context builder.
type NoteView struct {
	Note        *Note
	SubjectName string
}
