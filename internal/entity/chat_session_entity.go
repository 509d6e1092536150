package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id        uuid.UUID
	OwnerId   uuid.UUID
	Title     *string
	Locked    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// State reports where the session is in its lifecycle given how many
// messages it holds.
func (s *ChatSession) State(messageCount int) string {
	switch {
	case s.Locked:
		return ChatSessionStateTitled
	case messageCount > 0:
		return ChatSessionStateActive
	default:
		return ChatSessionStateNew
	}
}

const (
	ChatSessionStateNew    = "new"
	ChatSessionStateActive = "active"
	ChatSessionStateTitled = "titled"
)
