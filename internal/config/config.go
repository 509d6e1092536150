package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Rag      RagConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	EmbedTopic         string // watermill topic for note embedding jobs
}

type DatabaseConfig struct {
	Backend     string // "postgres" or "memory"
	Connection  string
	AutoMigrate bool
}

type APIKeys struct {
	GoogleGemini string
	Jina         string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama", "gemini" or "jina"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama"
	LLMModel          string // e.g. "llama3"
	OCRModel          string // vision model used for text extraction
}

type RagConfig struct {
	TopK                 int
	MinScore             float64
	MaxContextLength     int
	TitleAfterExchanges  int
	EmbedTimeout         time.Duration
	GenerationTimeout    time.Duration
	ReconcileConcurrency int
	QueryCacheTTL        time.Duration

	VectorStore      string // "pgvector", "qdrant" or "memory"
	QdrantURL        string
	QdrantCollection string
	LockBackend      string // "memory" or "redis"
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string // OTLP/HTTP collector, host:port
	ServiceName string
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			EmbedTopic:         getEnv("EMBED_NOTE_CONTENT_TOPIC_NAME", "EMBED_NOTE_CONTENT"),
		},
		Database: DatabaseConfig{
			Backend:     getEnv("DB_BACKEND", "postgres"),
			Connection:  getEnv("DB_CONNECTION_STRING", ""),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			OCRModel:          getEnv("OCR_MODEL", "llava"),
		},
		Rag: RagConfig{
			TopK:                 getEnvAsInt("RAG_TOP_K", 3),
			MinScore:             getEnvAsFloat("RAG_MIN_SCORE", 0.3),
			MaxContextLength:     getEnvAsInt("RAG_MAX_CONTEXT_LENGTH", 6000),
			TitleAfterExchanges:  getEnvAsInt("RAG_TITLE_AFTER_EXCHANGES", 1),
			EmbedTimeout:         getEnvAsDuration("RAG_EMBED_TIMEOUT", 30*time.Second),
			GenerationTimeout:    getEnvAsDuration("RAG_GENERATION_TIMEOUT", 120*time.Second),
			ReconcileConcurrency: getEnvAsInt("RAG_RECONCILE_CONCURRENCY", 4),
			QueryCacheTTL:        getEnvAsDuration("RAG_QUERY_CACHE_TTL", 10*time.Minute),
			VectorStore:          getEnv("VECTOR_STORE", "pgvector"),
			QdrantURL:            getEnv("QDRANT_URL", "http://localhost:6334"),
			QdrantCollection:     getEnv("QDRANT_COLLECTION", "note_embeddings"),
			LockBackend:          getEnv("LOCK_BACKEND", "memory"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "notes-rag-be"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
