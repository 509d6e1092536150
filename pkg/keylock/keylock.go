// Package keylock provides per-key critical sections. Operations on different
// keys never block each other.
package keylock

import "context"

// Locker acquires an exclusive lock for a key. The returned unlock func is
// idempotent.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// NoteKey scopes a lock to a single note of a single owner.
func NoteKey(ownerId, noteId string) string {
	return "note:" + ownerId + ":" + noteId
}

// SessionKey scopes a lock to a chat session.
func SessionKey(sessionId string) string {
	return "chat:" + sessionId
}
