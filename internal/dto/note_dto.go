package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateNoteRequest struct {
	Title     string     `json:"title" validate:"required,max=255"`
	Content   string     `json:"content"`
	SubjectId *uuid.UUID `json:"subject_id"`
}

type CreateNoteResponse struct {
	Id uuid.UUID `json:"id"`
	// SuggestedSubject is only filled when the note was created without a subject.
	SuggestedSubject *SubjectSuggestionResponse `json:"suggested_subject,omitempty"`
}

// CreateNoteFromImageResponse reports the OCR outcome. NeedsManualEdit is set
// when extraction failed or produced low confidence text.
type CreateNoteFromImageResponse struct {
	Id               uuid.UUID                  `json:"id"`
	Title            string                     `json:"title"`
	Content          string                     `json:"content"`
	Confidence       float64                    `json:"confidence"`
	NeedsManualEdit  bool                       `json:"needs_manual_edit"`
	SuggestedSubject *SubjectSuggestionResponse `json:"suggested_subject,omitempty"`
}

type ShowNoteResponse struct {
	Id          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	SubjectId   *uuid.UUID `json:"subject_id"`
	SubjectName string     `json:"subject_name"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type UpdateNoteRequest struct {
	Id        uuid.UUID
	Title     string     `json:"title" validate:"required,max=255"`
	Content   string     `json:"content"`
	SubjectId *uuid.UUID `json:"subject_id"`
}

type UpdateNoteResponse struct {
	Id        uuid.UUID `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SuggestSubjectRequest struct {
	Content string `json:"content" validate:"required"`
}

type SubjectSuggestionResponse struct {
	Label      string     `json:"label"`
	SubjectId  *uuid.UUID `json:"subject_id,omitempty"`
	Confidence float64    `json:"confidence"`
}

type SemanticSearchResponse struct {
	Id             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Excerpt        string    `json:"excerpt"`
	SubjectName    string    `json:"subject_name"`
	UpdatedAt      time.Time `json:"updated_at"`
	Rank           int       `json:"rank"`
	RelevanceScore float64   `json:"relevance_score"` // 0.0-1.0
}

// PublishEmbedNoteMessage is the watermill payload asking the consumer to
// (re)index a note.
type PublishEmbedNoteMessage struct {
	NoteId  uuid.UUID `json:"note_id"`
	OwnerId uuid.UUID `json:"owner_id"`
}
