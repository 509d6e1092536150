package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"notes-rag-be/internal/constant"
	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/internal/repository/memory"
	"notes-rag-be/pkg/classifier"
	"notes-rag-be/pkg/events"
	"notes-rag-be/pkg/keylock"
	"notes-rag-be/pkg/ocr"
	"notes-rag-be/pkg/rag/classify"
	ragcontext "notes-rag-be/pkg/rag/context"
	"notes-rag-be/pkg/rag/indexer"
	"notes-rag-be/pkg/rag/ragtest"
	"notes-rag-be/pkg/rag/response"
	"notes-rag-be/pkg/rag/retriever"
	"notes-rag-be/pkg/rag/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *capturePublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

type captureEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *captureEvents) Publish(ctx context.Context, evt events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *captureEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.EventType())
	}
	return out
}

// scriptedGenerator answers questions with answer and titles with title.
type scriptedGenerator struct {
	mu       sync.Mutex
	answer   string
	title    string
	err      error
	requests []response.Request
}

func (g *scriptedGenerator) Generate(ctx context.Context, req response.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return "", g.err
	}
	if req.SystemPrompt == constant.TitleSystemPromptV1 {
		return g.title, nil
	}
	return g.answer, nil
}

func (g *scriptedGenerator) answerRequests() []response.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []response.Request
	for _, r := range g.requests {
		if r.SystemPrompt != constant.TitleSystemPromptV1 {
			out = append(out, r)
		}
	}
	return out
}

type fixedExtractor struct {
	extraction *ocr.Extraction
	err        error
}

func (e *fixedExtractor) ExtractText(ctx context.Context, image []byte) (*ocr.Extraction, error) {
	return e.extraction, e.err
}

type fixedLabel struct {
	result *classifier.Result
}

func (c *fixedLabel) Classify(ctx context.Context, text string, labels []string) (*classifier.Result, error) {
	return c.result, nil
}

type fixture struct {
	notes     *memory.NoteRepository
	subjects  *memory.SubjectRepository
	records   *memory.NoteEmbeddingRepository
	chats     *memory.ChatSessionRepository
	embedder  *ragtest.Embedder
	indexer   *indexer.Indexer
	publisher *capturePublisher
	events    *captureEvents
	generator *scriptedGenerator
	extractor *fixedExtractor
	label     *fixedLabel

	notesSvc INoteService
	chatSvc  IChatbotService
}

func newFixture() *fixture {
	log := logger.NewNopLogger()
	f := &fixture{
		notes:     memory.NewNoteRepository(),
		subjects:  memory.NewSubjectRepository(),
		records:   memory.NewNoteEmbeddingRepository(),
		chats:     memory.NewChatSessionRepository(),
		embedder:  ragtest.NewEmbedder("test/v1", 256),
		publisher: &capturePublisher{},
		events:    &captureEvents{},
		generator: &scriptedGenerator{answer: "Boil the pasta for ten minutes.", title: "Pasta Cooking"},
		extractor: &fixedExtractor{},
		label:     &fixedLabel{},
	}
	locker := keylock.NewMemoryLocker()
	f.indexer = indexer.New(f.notes, f.records, f.embedder, locker, log, indexer.Options{
		OnCommit: NoteIndexedNotifier(f.events, log),
	})
	ret := retriever.New(f.records, f.embedder, f.indexer, log, time.Minute)
	lookup := ragcontext.NewStoreLookup(f.notes, f.subjects)

	f.notesSvc = NewNoteService(
		f.notes, f.subjects, f.publisher, f.indexer, ret,
		classify.NewAdvisor(f.label, log), f.extractor, log, 0.3,
	)
	f.chatSvc = NewChatbotService(
		session.NewManager(f.chats, locker, f.generator, log, session.Options{}),
		ret, ragcontext.NewBuilder(log), lookup, f.generator, f.subjects, f.notes, f.events, log,
		ChatSettings{TopK: 3, MinScore: 0.55, MaxContextLength: 6000},
	)
	return f
}

// indexSubjectNote stores and indexes a note filed under subjectId.
func (f *fixture) indexSubjectNote(t *testing.T, owner, subjectId uuid.UUID, title, text string) *entity.Note {
	t.Helper()
	n := &entity.Note{Id: uuid.New(), OwnerId: owner, SubjectId: &subjectId, Title: title, Text: text, UpdatedAt: time.Now().UTC()}
	require.NoError(t, f.notes.Create(context.Background(), n))
	require.NoError(t, f.indexer.Upsert(context.Background(), n))
	return n
}

// indexNote stores and indexes a note directly.
func (f *fixture) indexNote(t *testing.T, owner uuid.UUID, title, text string) *entity.Note {
	t.Helper()
	n := &entity.Note{Id: uuid.New(), OwnerId: owner, Title: title, Text: text, UpdatedAt: time.Now().UTC()}
	require.NoError(t, f.notes.Create(context.Background(), n))
	require.NoError(t, f.indexer.Upsert(context.Background(), n))
	return n
}
