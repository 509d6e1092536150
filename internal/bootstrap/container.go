package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"notes-rag-be/internal/config"
	"notes-rag-be/internal/controller"
	"notes-rag-be/internal/handler"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/internal/repository/contract"
	"notes-rag-be/internal/repository/implementation"
	"notes-rag-be/internal/repository/memory"
	"notes-rag-be/internal/repository/qdrant"
	"notes-rag-be/internal/service"
	"notes-rag-be/internal/websocket"
	"notes-rag-be/pkg/classifier"
	"notes-rag-be/pkg/embedding"
	"notes-rag-be/pkg/embedding/jina"
	"notes-rag-be/pkg/keylock"
	"notes-rag-be/pkg/llm/factory"
	"notes-rag-be/pkg/llm/ollama"
	"notes-rag-be/pkg/ocr"
	"notes-rag-be/pkg/rag/classify"
	ragcontext "notes-rag-be/pkg/rag/context"
	"notes-rag-be/pkg/rag/indexer"
	"notes-rag-be/pkg/rag/response"
	"notes-rag-be/pkg/rag/retriever"
	"notes-rag-be/pkg/rag/session"

	pktNats "notes-rag-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const module = "Bootstrap"

type Container struct {
	// Controllers
	NoteController    controller.INoteController
	SubjectController controller.ISubjectController
	ChatbotController controller.IChatbotController
	IndexController   controller.IIndexController

	LiveHandler *handler.LiveHandler

	// Background services, started by main
	ConsumerService service.IConsumerService
	IndexService    service.IIndexService
	LiveService     service.ILiveService
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []func() error
}

// NewContainer wires every component. Optional infrastructure (NATS, Redis,
// Qdrant) degrades with a warning; misconfiguration is returned as an error.
func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	c := &Container{}

	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	promptLogger := logger.NewIsolatedLogger("logs/prompt.log")
	c.Logger = sysLogger

	notes, subjects, chats, err := newStores(db, cfg, sysLogger)
	if err != nil {
		return nil, err
	}

	records, err := c.newEmbeddingStore(db, cfg, sysLogger)
	if err != nil {
		return nil, err
	}

	// 2. Event bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, pubSub.Close)

	// Interfaces stay nil when NATS is down.
	var eventPublisher service.EventPublisher
	var eventSubscriber service.EventSubscriber
	if natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger); err != nil {
		sysLogger.Warn(module, "NATS publisher unavailable", map[string]interface{}{"error": err.Error()})
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
	}
	if natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger); err != nil {
		sysLogger.Warn(module, "NATS subscriber unavailable", map[string]interface{}{"error": err.Error()})
	} else {
		eventSubscriber = natsSub
		c.closers = append(c.closers, func() error { natsSub.Close(); return nil })
	}

	// 3. AI providers
	var embeddingProvider embedding.EmbeddingProvider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	case "jina":
		embeddingProvider = jina.NewJinaProvider(cfg.Keys.Jina)
	case "gemini":
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Ai.EmbeddingProvider)
	}
	sysLogger.Info(module, "Embedding provider ready", map[string]interface{}{"provider": cfg.Ai.EmbeddingProvider})

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		return nil, err
	}
	sysLogger.Info(module, "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	// Text extraction always goes through the local vision model.
	extractor := ocr.NewVisionExtractor(ollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OCRModel), cfg.Ai.OCRModel)

	rdb := c.newRedis(cfg, sysLogger)
	locker, err := newLocker(cfg, rdb)
	if err != nil {
		return nil, err
	}

	// 4. RAG core
	idx := indexer.New(notes, records, embeddingProvider, locker, sysLogger, indexer.Options{
		EmbedTimeout: cfg.Rag.EmbedTimeout,
		Concurrency:  cfg.Rag.ReconcileConcurrency,
		OnCommit:     service.NoteIndexedNotifier(eventPublisher, sysLogger),
	})
	ret := retriever.New(records, embeddingProvider, idx, sysLogger, cfg.Rag.QueryCacheTTL)
	builder := ragcontext.NewBuilder(sysLogger)
	lookup := ragcontext.NewStoreLookup(notes, subjects)
	generator := response.NewLLMGenerator(llmProvider, cfg.Rag.GenerationTimeout, sysLogger, promptLogger)
	sessions := session.NewManager(chats, locker, generator, sysLogger, session.Options{
		TitleAfterExchanges: cfg.Rag.TitleAfterExchanges,
	})
	advisor := classify.NewAdvisor(classifier.NewLLMClassifier(llmProvider), sysLogger)

	// 5. Services
	publisherService := service.NewPublisherService(cfg.App.EmbedTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.EmbedTopic, notes, idx, sysLogger)
	c.IndexService = service.NewIndexService(idx, eventPublisher, eventSubscriber, sysLogger)

	liveLogger := logger.NewIsolatedLogger("logs/live.log")
	c.WebSocketHub = websocket.NewHub(rdb, liveLogger)
	c.LiveService = service.NewLiveService(eventSubscriber, c.WebSocketHub, liveLogger)
	c.LiveHandler = handler.NewLiveHandler(c.WebSocketHub, liveLogger)

	noteService := service.NewNoteService(
		notes,
		subjects,
		publisherService,
		idx,
		ret,
		advisor,
		extractor,
		sysLogger,
		cfg.Rag.MinScore,
	)
	subjectService := service.NewSubjectService(subjects)
	chatbotService := service.NewChatbotService(
		sessions,
		ret,
		builder,
		lookup,
		generator,
		subjects,
		notes,
		eventPublisher,
		sysLogger,
		service.ChatSettings{
			TopK:             cfg.Rag.TopK,
			MinScore:         cfg.Rag.MinScore,
			MaxContextLength: cfg.Rag.MaxContextLength,
		},
	)

	// 6. Controllers
	c.NoteController = controller.NewNoteController(noteService)
	c.SubjectController = controller.NewSubjectController(subjectService)
	c.ChatbotController = controller.NewChatbotController(chatbotService)
	c.IndexController = controller.NewIndexController(c.IndexService)

	return c, nil
}

// newStores picks the note, subject and chat repositories. The memory
// backend keeps everything in process and needs no database.
func newStores(db *gorm.DB, cfg *config.Config, log logger.ILogger) (contract.NoteRepository, contract.SubjectRepository, contract.ChatSessionRepository, error) {
	switch cfg.Database.Backend {
	case "postgres":
		if db == nil {
			return nil, nil, nil, fmt.Errorf("database backend postgres requires a connection")
		}
		return implementation.NewNoteRepository(db),
			implementation.NewSubjectRepository(db),
			implementation.NewChatSessionRepository(db),
			nil
	case "memory":
		log.Warn(module, "In-memory database backend, notes and chats are lost on restart", nil)
		return memory.NewNoteRepository(), memory.NewSubjectRepository(), memory.NewChatSessionRepository(), nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported database backend: %s", cfg.Database.Backend)
	}
}

func (c *Container) newEmbeddingStore(db *gorm.DB, cfg *config.Config, log logger.ILogger) (contract.NoteEmbeddingRepository, error) {
	switch cfg.Rag.VectorStore {
	case "pgvector":
		if db == nil {
			return nil, fmt.Errorf("vector store pgvector requires the postgres backend")
		}
		return implementation.NewNoteEmbeddingRepository(db), nil
	case "qdrant":
		repo, err := qdrant.NewNoteEmbeddingRepository(cfg.Rag.QdrantURL, cfg.Rag.QdrantCollection)
		if err != nil {
			return nil, fmt.Errorf("qdrant: %w", err)
		}
		c.closers = append(c.closers, repo.Close)
		return repo, nil
	case "memory":
		log.Warn(module, "In-memory vector store, embeddings are lost on restart", nil)
		return memory.NewNoteEmbeddingRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.Rag.VectorStore)
	}
}

// newRedis returns nil when Redis is unreachable; live updates then stay
// local to this instance.
func (c *Container) newRedis(cfg *config.Config, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn(module, "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn(module, "Redis unavailable", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	c.closers = append(c.closers, rdb.Close)
	return rdb
}

func newLocker(cfg *config.Config, rdb *redis.Client) (keylock.Locker, error) {
	switch cfg.Rag.LockBackend {
	case "memory":
		return keylock.NewMemoryLocker(), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("lock backend redis requires a reachable REDIS_URL")
		}
		return keylock.NewRedisLocker(rdb, 0), nil
	default:
		return nil, fmt.Errorf("unsupported lock backend: %s", cfg.Rag.LockBackend)
	}
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Printf("[WARN] close: %v", err)
		}
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}
