package entity

import (
	"time"

	"github.com/google/uuid"
)

type Subject struct {
	Id        uuid.UUID
	OwnerId   uuid.UUID
	Name      string
	CreatedAt time.Time
}

// SubjectSuggestion is advisory output for the note-creation flow.
type SubjectSuggestion struct {
	NoteId     uuid.UUID `json:"note_id"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
}
