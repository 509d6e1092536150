package service

import (
	"context"
	"fmt"
	"strings"

	"notes-rag-be/internal/constant"
	"notes-rag-be/internal/dto"
	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/internal/repository/contract"
	"notes-rag-be/pkg/events"
	"notes-rag-be/pkg/llm"
	ragcontext "notes-rag-be/pkg/rag/context"
	"notes-rag-be/pkg/rag/history"
	"notes-rag-be/pkg/rag/response"
	"notes-rag-be/pkg/rag/session"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const chatbotModule = "ChatbotService"

const maxSuggestedQuestions = 5

type IChatbotService interface {
	CreateSession(ctx context.Context, ownerId uuid.UUID) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, ownerId uuid.UUID) ([]*dto.SessionResponse, error)
	GetChatHistory(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) ([]*dto.ChatMessageResponse, error)
	SendChat(ctx context.Context, ownerId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	DeleteSession(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) error
	ResetTitle(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) error
	SuggestedQuestions(ctx context.Context, ownerId uuid.UUID) (*dto.SuggestedQuestionsResponse, error)
}

// EventPublisher is satisfied by the NATS publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ChatSettings struct {
	TopK             int
	MinScore         float64
	MaxContextLength int
	HistoryWindow    int
}

type chatbotService struct {
	sessions  *session.Manager
	searcher  NoteSearcher
	builder   *ragcontext.Builder
	lookup    ragcontext.NoteLookup
	generator response.Generator
	subjects  contract.SubjectRepository
	notes     contract.NoteRepository
	events    EventPublisher
	logger    logger.ILogger
	settings  ChatSettings
	tracer    trace.Tracer
}

func NewChatbotService(
	sessions *session.Manager,
	searcher NoteSearcher,
	builder *ragcontext.Builder,
	lookup ragcontext.NoteLookup,
	generator response.Generator,
	subjects contract.SubjectRepository,
	notes contract.NoteRepository,
	eventPublisher EventPublisher,
	log logger.ILogger,
	settings ChatSettings,
) IChatbotService {
	return &chatbotService{
		sessions:  sessions,
		searcher:  searcher,
		builder:   builder,
		lookup:    lookup,
		generator: generator,
		subjects:  subjects,
		notes:     notes,
		events:    eventPublisher,
		logger:    log,
		settings:  settings,
		tracer:    otel.Tracer("notes-rag-be/chatbot"),
	}
}

func (s *chatbotService) CreateSession(ctx context.Context, ownerId uuid.UUID) (*dto.CreateSessionResponse, error) {
	chatSession, err := s.sessions.Create(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	return &dto.CreateSessionResponse{Id: chatSession.Id}, nil
}

func (s *chatbotService) GetAllSessions(ctx context.Context, ownerId uuid.UUID) ([]*dto.SessionResponse, error) {
	sessions, err := s.sessions.List(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.SessionResponse, 0, len(sessions))
	for _, cs := range sessions {
		res = append(res, toSessionResponse(cs))
	}
	return res, nil
}

func (s *chatbotService) GetChatHistory(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) ([]*dto.ChatMessageResponse, error) {
	messages, err := s.sessions.History(ctx, ownerId, sessionId)
	if err != nil {
		return nil, err
	}

	titles := make(map[uuid.UUID]string)
	res := make([]*dto.ChatMessageResponse, 0, len(messages))
	for _, msg := range messages {
		res = append(res, s.toMessageResponse(ctx, ownerId, msg, titles))
	}
	return res, nil
}

// SendChat answers one question. Retrieval, generation, and cancellation
// failures leave the session untouched; only a fully answered exchange is
// appended.
func (s *chatbotService) SendChat(ctx context.Context, ownerId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	ctx, span := s.tracer.Start(ctx, "Chatbot.SendChat", trace.WithAttributes(
		attribute.String("owner_id", ownerId.String()),
	))
	defer span.End()

	sessionId := uuid.Nil
	var window []llm.Message
	if req.ChatSessionId != nil && *req.ChatSessionId != uuid.Nil {
		sessionId = *req.ChatSessionId
		past, err := s.sessions.History(ctx, ownerId, sessionId)
		if err != nil {
			return nil, err
		}
		window = history.Window(past, s.settings.HistoryWindow)
	}

	hits, err := s.retrieve(ctx, ownerId, req.Chat)
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}

	assembled, err := s.builder.Assemble(ctx, ownerId, hits, s.lookup, s.settings.MaxContextLength)
	if err != nil {
		return nil, fmt.Errorf("assemble context: %w", err)
	}
	noSources := len(assembled.IncludedNoteIds) == 0
	span.SetAttributes(
		attribute.Int("hits", len(hits)),
		attribute.Int("included", len(assembled.IncludedNoteIds)),
	)

	systemPrompt := constant.RagSystemPromptV1
	if noSources {
		systemPrompt = constant.NoSourcesSystemPromptV1
	}

	answer, err := s.generator.Generate(ctx, response.Request{
		SystemPrompt:  systemPrompt,
		ContextBlocks: assembled.Blocks,
		History:       append(window, llm.Message{Role: constant.ChatMessageRoleUser, Content: req.Chat}),
	})
	if err != nil {
		return nil, err
	}
	if noSources {
		answer = constant.NoNotesFoundMessage + "\n\n" + answer
	}

	if err := ctx.Err(); err != nil {
		s.logger.Info(chatbotModule, "Question abandoned before commit", map[string]interface{}{
			"owner_id": ownerId.String(),
		})
		return nil, err
	}

	ex, err := s.sessions.AppendExchange(ctx, session.ExchangeInput{
		OwnerId:      ownerId,
		SessionId:    sessionId,
		Question:     req.Chat,
		Answer:       answer,
		CitedNoteIds: assembled.IncludedNoteIds,
	})
	if err != nil {
		return nil, err
	}

	if ex.Titled {
		s.publish(ctx, events.NewChatTitled(ownerId.String(), ex.Session.Id.String(), *ex.Session.Title))
	}

	titles := make(map[uuid.UUID]string)
	res := &dto.SendChatResponse{
		ChatSessionId: ex.Session.Id,
		Sent:          s.toMessageResponse(ctx, ownerId, ex.User, titles),
		Reply:         s.toMessageResponse(ctx, ownerId, ex.Assistant, titles),
		NoSources:     noSources,
	}
	if ex.Session.Title != nil {
		res.ChatSessionTitle = *ex.Session.Title
	}
	return res, nil
}

// retrieve narrows the search to one subject's notes when the question
// names that subject. An empty scoped result falls back to all notes.
func (s *chatbotService) retrieve(ctx context.Context, ownerId uuid.UUID, question string) ([]entity.RetrievalHit, error) {
	subject := s.detectSubject(ctx, ownerId, question)
	if subject != nil {
		notes, err := s.notes.FindAllBySubject(ctx, ownerId, subject.Id)
		if err != nil {
			return nil, err
		}
		if len(notes) > 0 {
			ids := make([]uuid.UUID, 0, len(notes))
			for _, n := range notes {
				ids = append(ids, n.Id)
			}
			hits, err := s.searcher.QueryWithin(ctx, ownerId, ids, question, s.settings.TopK, s.settings.MinScore)
			if err != nil {
				return nil, err
			}
			if len(hits) > 0 {
				s.logger.Info(chatbotModule, "Question scoped to subject", map[string]interface{}{
					"owner_id": ownerId.String(),
					"subject":  subject.Name,
					"hits":     len(hits),
				})
				return hits, nil
			}
		}
	}
	return s.searcher.Query(ctx, ownerId, question, s.settings.TopK, s.settings.MinScore)
}

// detectSubject returns the owner's subject whose name appears in the
// question, preferring the longest name. Lookup failures mean no scope.
func (s *chatbotService) detectSubject(ctx context.Context, ownerId uuid.UUID, question string) *entity.Subject {
	if s.notes == nil {
		return nil
	}
	subjects, err := s.subjects.FindAllByOwner(ctx, ownerId)
	if err != nil {
		s.logger.Warn(chatbotModule, "Subject lookup failed", map[string]interface{}{
			"owner_id": ownerId.String(),
			"error":    err.Error(),
		})
		return nil
	}
	return matchSubject(question, subjects)
}

func matchSubject(question string, subjects []*entity.Subject) *entity.Subject {
	q := strings.ToLower(question)
	var best *entity.Subject
	for _, subject := range subjects {
		name := strings.ToLower(strings.TrimSpace(subject.Name))
		if name == "" || !strings.Contains(q, name) {
			continue
		}
		if best == nil || len(name) > len(strings.TrimSpace(best.Name)) {
			best = subject
		}
	}
	return best
}

func (s *chatbotService) DeleteSession(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) error {
	return s.sessions.Delete(ctx, ownerId, sessionId)
}

func (s *chatbotService) ResetTitle(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) error {
	return s.sessions.ResetTitle(ctx, ownerId, sessionId)
}

// SuggestedQuestions mixes subject-specific prompts for up to two subjects
// with generic ones, at most five in total.
func (s *chatbotService) SuggestedQuestions(ctx context.Context, ownerId uuid.UUID) (*dto.SuggestedQuestionsResponse, error) {
	subjects, err := s.subjects.FindAllByOwner(ctx, ownerId)
	if err != nil {
		return nil, err
	}

	questions := make([]string, 0, maxSuggestedQuestions)
	for i, subject := range subjects {
		if i == 2 {
			break
		}
		questions = append(questions, fmt.Sprintf("What have I learned about %s?", subject.Name))
	}
	if len(subjects) > 1 {
		questions = append(questions, fmt.Sprintf("Compare my notes on %s and %s", subjects[0].Name, subjects[1].Name))
	}
	for _, q := range constant.GenericSuggestedQuestions {
		if len(questions) == maxSuggestedQuestions {
			break
		}
		questions = append(questions, q)
	}
	return &dto.SuggestedQuestionsResponse{Questions: questions}, nil
}

func (s *chatbotService) publish(ctx context.Context, evt events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn(chatbotModule, "Failed to publish event", map[string]interface{}{
			"event": evt.EventType(),
			"error": err.Error(),
		})
	}
}

// toMessageResponse resolves citation titles, caching them in titles. A
// cited note deleted since is shown without a title.
func (s *chatbotService) toMessageResponse(ctx context.Context, ownerId uuid.UUID, msg *entity.ChatMessage, titles map[uuid.UUID]string) *dto.ChatMessageResponse {
	citations := make([]dto.CitationDTO, 0, len(msg.CitedNoteIds))
	for _, noteId := range msg.CitedNoteIds {
		title, ok := titles[noteId]
		if !ok {
			if view, err := s.lookup.Resolve(ctx, ownerId, noteId); err == nil && view != nil {
				title = view.Note.Title
			}
			titles[noteId] = title
		}
		citations = append(citations, dto.CitationDTO{NoteId: noteId, Title: title})
	}

	return &dto.ChatMessageResponse{
		Id:        msg.Id,
		Role:      msg.Role,
		Chat:      msg.Content,
		CreatedAt: msg.CreatedAt,
		Citations: citations,
	}
}

func toSessionResponse(cs *entity.ChatSession) *dto.SessionResponse {
	title := constant.FallbackChatTitle
	if cs.Title != nil {
		title = *cs.Title
	}
	return &dto.SessionResponse{
		Id:        cs.Id,
		Title:     title,
		Locked:    cs.Locked,
		CreatedAt: cs.CreatedAt,
		UpdatedAt: cs.UpdatedAt,
	}
}
