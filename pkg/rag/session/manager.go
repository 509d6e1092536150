// Package session keeps chat sessions: an append-only message log per
// session, a title derived once, and per-message note citations.
package session

import (
	"context"
	"fmt"
	"slices"
	"time"

	"notes-rag-be/internal/constant"
	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/internal/repository/contract"
	"notes-rag-be/pkg/keylock"
	"notes-rag-be/pkg/rag"
	"notes-rag-be/pkg/rag/prompt"
	"notes-rag-be/pkg/rag/response"

	"github.com/google/uuid"
)

const module = "SessionManager"

type Options struct {
	// TitleAfterExchanges is how many user/assistant pairs must exist before
	// a title is derived.
	TitleAfterExchanges int
}

// ExchangeInput is one answered question. A zero SessionId starts a new
// session.
type ExchangeInput struct {
	OwnerId      uuid.UUID
	SessionId    uuid.UUID
	Question     string
	Answer       string
	CitedNoteIds []uuid.UUID
}

// Exchange is the committed result of AppendExchange.
type Exchange struct {
	Session   *entity.ChatSession
	User      *entity.ChatMessage
	Assistant *entity.ChatMessage
	Exchanges int
	Titled    bool // this call set the title
}

type Manager struct {
	sessions  contract.ChatSessionRepository
	locker    keylock.Locker
	generator response.Generator
	logger    logger.ILogger
	opts      Options
	now       func() time.Time
}

func NewManager(
	sessions contract.ChatSessionRepository,
	locker keylock.Locker,
	generator response.Generator,
	log logger.ILogger,
	opts Options,
) *Manager {
	if opts.TitleAfterExchanges <= 0 {
		opts.TitleAfterExchanges = 1
	}
	return &Manager{
		sessions:  sessions,
		locker:    locker,
		generator: generator,
		logger:    log,
		opts:      opts,
		now:       time.Now,
	}
}

func (m *Manager) Create(ctx context.Context, ownerId uuid.UUID) (*entity.ChatSession, error) {
	now := m.now().UTC().Truncate(time.Microsecond)
	session := &entity.ChatSession{
		Id:        uuid.New(),
		OwnerId:   ownerId,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}
	return session, nil
}

// Get returns the owner's session or rag.ErrSessionNotFound.
func (m *Manager) Get(ctx context.Context, ownerId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := m.sessions.FindByID(ctx, ownerId, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, rag.ErrSessionNotFound
	}
	return session, nil
}

func (m *Manager) List(ctx context.Context, ownerId uuid.UUID) ([]*entity.ChatSession, error) {
	return m.sessions.FindAllByOwner(ctx, ownerId)
}

// History returns the session log in append order.
func (m *Manager) History(ctx context.Context, ownerId, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	if _, err := m.Get(ctx, ownerId, sessionId); err != nil {
		return nil, err
	}
	return m.sessions.FindMessages(ctx, sessionId)
}

func (m *Manager) Delete(ctx context.Context, ownerId, sessionId uuid.UUID) error {
	if _, err := m.Get(ctx, ownerId, sessionId); err != nil {
		return err
	}

	unlock, err := m.locker.Lock(ctx, keylock.SessionKey(sessionId.String()))
	if err != nil {
		return fmt.Errorf("failed to acquire session lock: %w", err)
	}
	defer unlock()

	return m.sessions.Delete(ctx, ownerId, sessionId)
}

// ResetTitle clears the title so the next exchange derives a new one.
func (m *Manager) ResetTitle(ctx context.Context, ownerId, sessionId uuid.UUID) error {
	if _, err := m.Get(ctx, ownerId, sessionId); err != nil {
		return err
	}
	return m.sessions.ResetTitle(ctx, ownerId, sessionId)
}

// AppendExchange commits a user/assistant pair atomically under the session
// lock, then derives the title outside the lock when one is due.
func (m *Manager) AppendExchange(ctx context.Context, in ExchangeInput) (*Exchange, error) {
	var (
		session *entity.ChatSession
		err     error
	)
	if in.SessionId == uuid.Nil {
		session, err = m.Create(ctx, in.OwnerId)
	} else {
		session, err = m.Get(ctx, in.OwnerId, in.SessionId)
	}
	if err != nil {
		return nil, err
	}

	ex, firstQuestion, err := m.commit(ctx, session, in)
	if err != nil {
		if in.SessionId == uuid.Nil {
			_ = m.sessions.Delete(context.WithoutCancel(ctx), in.OwnerId, session.Id)
		}
		return nil, err
	}

	if !session.Locked && ex.Exchanges >= m.opts.TitleAfterExchanges {
		// The exchange is already committed; finish titling even if the caller left.
		m.deriveTitle(context.WithoutCancel(ctx), ex, firstQuestion)
	}
	return ex, nil
}

func (m *Manager) commit(ctx context.Context, session *entity.ChatSession, in ExchangeInput) (*Exchange, string, error) {
	unlock, err := m.locker.Lock(ctx, keylock.SessionKey(session.Id.String()))
	if err != nil {
		return nil, "", fmt.Errorf("failed to acquire session lock: %w", err)
	}
	defer unlock()

	log, err := m.sessions.FindMessages(ctx, session.Id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load chat messages: %w", err)
	}

	// Timestamps are kept at microsecond precision to survive the database
	// round trip and strictly increase within the session.
	at := m.now().UTC().Truncate(time.Microsecond)
	if n := len(log); n > 0 && !at.After(log[n-1].CreatedAt) {
		at = log[n-1].CreatedAt.Add(time.Microsecond)
	}

	user := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Position:      len(log),
		Role:          constant.ChatMessageRoleUser,
		Content:       in.Question,
		CitedNoteIds:  []uuid.UUID{},
		CreatedAt:     at,
	}
	assistant := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Position:      len(log) + 1,
		Role:          constant.ChatMessageRoleAssistant,
		Content:       in.Answer,
		CitedNoteIds:  uniqueIds(in.CitedNoteIds),
		CreatedAt:     at.Add(time.Microsecond),
	}

	if err := m.sessions.AppendMessages(ctx, session.Id, user, assistant); err != nil {
		return nil, "", fmt.Errorf("failed to append chat exchange: %w", err)
	}

	exchanges := 1
	firstQuestion := in.Question
	for _, msg := range log {
		if msg.Role == constant.ChatMessageRoleAssistant {
			exchanges++
		}
	}
	for _, msg := range log {
		if msg.Role == constant.ChatMessageRoleUser {
			firstQuestion = msg.Content
			break
		}
	}

	session.UpdatedAt = assistant.CreatedAt
	return &Exchange{
		Session:   session,
		User:      user,
		Assistant: assistant,
		Exchanges: exchanges,
	}, firstQuestion, nil
}

func (m *Manager) deriveTitle(ctx context.Context, ex *Exchange, question string) {
	title := ""
	if m.generator != nil {
		raw, err := m.generator.Generate(ctx, response.Request{
			SystemPrompt: constant.TitleSystemPromptV1,
			History:      prompt.TitleHistory(question),
		})
		if err != nil {
			m.logger.Warn(module, "Title generation failed, using fallback", map[string]interface{}{
				"session_id": ex.Session.Id.String(),
				"error":      err.Error(),
			})
		} else {
			title = CleanTitle(raw)
		}
	}
	if title == "" {
		title = FallbackTitle(question)
	}

	locked, err := m.sessions.LockTitle(ctx, ex.Session.Id, title)
	if err != nil {
		m.logger.Error(module, "Failed to store session title", map[string]interface{}{
			"session_id": ex.Session.Id.String(),
			"error":      err.Error(),
		})
		return
	}
	if !locked {
		// Another exchange titled the session first.
		if current, err := m.sessions.FindByID(ctx, ex.Session.OwnerId, ex.Session.Id); err == nil && current != nil {
			ex.Session = current
		}
		return
	}

	ex.Session.Title = &title
	ex.Session.Locked = true
	ex.Titled = true
	m.logger.Info(module, "Session titled", map[string]interface{}{
		"session_id": ex.Session.Id.String(),
		"title":      title,
	})
}

func uniqueIds(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
