package events

import "time"

// Event defines the contract for all domain events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "NOTE_INDEXED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	// NoteIndexed is published after an embedding record is committed.
	NoteIndexed = "NOTE_INDEXED"
	// ChatTitled is published when a chat session receives its title.
	ChatTitled = "CHAT_TITLED"
	// ReconcileRequested asks the index worker to reconcile one owner.
	ReconcileRequested = "RECONCILE_REQUESTED"
)

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// StringField reads a string value from the payload, "" when absent.
func StringField(e Event, key string) string {
	if v, ok := e.Payload()[key].(string); ok {
		return v
	}
	return ""
}

func NewNoteIndexed(ownerId, noteId, modelVersion string) BaseEvent {
	return BaseEvent{
		Type: NoteIndexed,
		Data: map[string]interface{}{
			"owner_id":      ownerId,
			"note_id":       noteId,
			"model_version": modelVersion,
		},
		OccurredAt: time.Now(),
	}
}

func NewChatTitled(ownerId, sessionId, title string) BaseEvent {
	return BaseEvent{
		Type: ChatTitled,
		Data: map[string]interface{}{
			"owner_id":   ownerId,
			"session_id": sessionId,
			"title":      title,
		},
		OccurredAt: time.Now(),
	}
}

func NewReconcileRequested(ownerId, modelVersion string) BaseEvent {
	return BaseEvent{
		Type: ReconcileRequested,
		Data: map[string]interface{}{
			"owner_id":      ownerId,
			"model_version": modelVersion,
		},
		OccurredAt: time.Now(),
	}
}
