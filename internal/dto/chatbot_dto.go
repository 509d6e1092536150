package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type SessionResponse struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Locked    bool      `json:"title_locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CitationDTO struct {
	NoteId uuid.UUID `json:"note_id"`
	Title  string    `json:"title"`
}

type ChatMessageResponse struct {
	Id        uuid.UUID     `json:"id"`
	Role      string        `json:"role"`
	Chat      string        `json:"chat"`
	CreatedAt time.Time     `json:"created_at"`
	Citations []CitationDTO `json:"citations"`
}

// SendChatRequest starts a new session when ChatSessionId is empty.
type SendChatRequest struct {
	ChatSessionId *uuid.UUID `json:"chat_session_id"`
	Chat          string     `json:"chat" validate:"required,max=4000"`
}

type SendChatResponse struct {
	ChatSessionId    uuid.UUID            `json:"chat_session_id"`
	ChatSessionTitle string               `json:"title"`
	Sent             *ChatMessageResponse `json:"sent"`
	Reply            *ChatMessageResponse `json:"reply"`
	NoSources        bool                 `json:"no_sources"`
}

type SuggestedQuestionsResponse struct {
	Questions []string `json:"questions"`
}

type ReconcileResponse struct {
	Scanned   int `json:"scanned"`
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
	Removed   int `json:"removed"`
}
