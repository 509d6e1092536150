package memory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ErrPositionTaken mirrors the unique (session, position) index of the SQL store.
var ErrPositionTaken = errors.New("message position already taken")

type ChatSessionRepository struct {
	mu       sync.Mutex
	sessions *cache.Cache
	messages map[uuid.UUID][]*entity.ChatMessage
}

func NewChatSessionRepository() *ChatSessionRepository {
	return &ChatSessionRepository{
		sessions: cache.New(cache.NoExpiration, 0),
		messages: make(map[uuid.UUID][]*entity.ChatMessage),
	}
}

var _ contract.ChatSessionRepository = (*ChatSessionRepository)(nil)

func cloneMessage(m *entity.ChatMessage) *entity.ChatMessage {
	cp := *m
	cp.CitedNoteIds = slices.Clone(m.CitedNoteIds)
	return &cp
}

func (r *ChatSessionRepository) session(id uuid.UUID) (*entity.ChatSession, bool) {
	if x, found := r.sessions.Get(id.String()); found {
		return x.(*entity.ChatSession), true
	}
	return nil, false
}

func (r *ChatSessionRepository) Create(ctx context.Context, session *entity.ChatSession) error {
	if session.Id == uuid.Nil {
		session.Id = uuid.New()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = session.CreatedAt

	cp := *session
	r.sessions.Set(session.Id.String(), &cp, cache.NoExpiration)
	return nil
}

func (r *ChatSessionRepository) FindByID(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) (*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.session(id)
	if !ok || s.OwnerId != ownerId {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *ChatSessionRepository) FindAllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entity.ChatSession, 0)
	for _, item := range r.sessions.Items() {
		s := item.Object.(*entity.ChatSession)
		if s.OwnerId == ownerId {
			cp := *s
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *entity.ChatSession) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

func (r *ChatSessionRepository) Delete(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.session(id); ok && s.OwnerId == ownerId {
		r.sessions.Delete(id.String())
		delete(r.messages, id)
	}
	return nil
}

func (r *ChatSessionRepository) LockTitle(ctx context.Context, id uuid.UUID, title string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.session(id)
	if !ok || s.Locked {
		return false, nil
	}
	t := title
	s.Title = &t
	s.Locked = true
	s.UpdatedAt = time.Now()
	return true, nil
}

func (r *ChatSessionRepository) ResetTitle(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.session(id); ok && s.OwnerId == ownerId {
		s.Title = nil
		s.Locked = false
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (r *ChatSessionRepository) AppendMessages(ctx context.Context, sessionId uuid.UUID, messages ...*entity.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.messages[sessionId]
	for i, msg := range messages {
		if msg.Position != len(existing)+i {
			return ErrPositionTaken
		}
	}

	for _, msg := range messages {
		msg.ChatSessionId = sessionId
		if msg.Id == uuid.Nil {
			msg.Id = uuid.New()
		}
		existing = append(existing, cloneMessage(msg))
	}
	r.messages[sessionId] = existing

	if s, ok := r.session(sessionId); ok {
		s.UpdatedAt = messages[len(messages)-1].CreatedAt
	}
	return nil
}

func (r *ChatSessionRepository) FindMessages(ctx context.Context, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.messages[sessionId]
	out := make([]*entity.ChatMessage, len(log))
	for i, m := range log {
		out[i] = cloneMessage(m)
	}
	return out, nil
}
