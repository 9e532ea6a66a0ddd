package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Knowledge KnowledgeConfig
	Session   SessionConfig
	Ai        AIConfig
	Otel      OtelConfig
	Bus       BusConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	HubLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	AdminJwtSecret     string
	BodyLimit          int
}

type DatabaseConfig struct {
	// Connection, when set, makes the knowledge_chunks table the snapshot source.
	Connection string
}

type KnowledgeConfig struct {
	SnapshotDir   string
	RefreshCron   string
	DataCheckCron string
	Watch         bool
	TopK          int
}

type SessionConfig struct {
	Backend string // "memory" or "redis"
	TTL     time.Duration
	Prefix  string
}

type AIConfig struct {
	EmbeddingProvider   string // "local", "ollama" or "openai"
	EmbeddingModel      string
	EmbeddingDimension  int
	EmbeddingMaxRetries int
	EmbeddingTimeout    time.Duration
	LLMProvider         string // "anthropic", "openai" or "ollama"
	LLMModel            string
	LLMTemperature      float64
	LLMMaxTokens        int
	LLMTimeout          time.Duration
	AnthropicAPIKey     string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	OllamaBaseURL       string
}

type OtelConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

type BusConfig struct {
	NatsEnabled  bool
	RefreshTopic string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "5000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			HubLogFilePath:     getEnv("HUB_LOG_FILE_PATH", "logs/hub.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			AdminJwtSecret:     getEnv("ADMIN_JWT_SECRET", ""),
			BodyLimit:          getEnvAsInt("BODY_LIMIT_BYTES", 1024*1024),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Knowledge: KnowledgeConfig{
			SnapshotDir:   getEnv("KNOWLEDGE_SNAPSHOT_DIR", "data"),
			RefreshCron:   getEnv("KNOWLEDGE_REFRESH_CRON", "0 3 * * 1"),
			DataCheckCron: getEnv("KNOWLEDGE_DATA_CHECK_CRON", "@every 5m"),
			Watch:         getEnvAsBool("KNOWLEDGE_WATCH", false),
			TopK:          getEnvAsInt("KNOWLEDGE_TOP_K", 8),
		},
		Session: SessionConfig{
			Backend: getEnv("SESSION_BACKEND", "memory"),
			TTL:     getEnvAsDuration("SESSION_TTL", 0),
			Prefix:  getEnv("SESSION_REDIS_PREFIX", "nau"),
		},
		Ai: AIConfig{
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "local"),
			EmbeddingModel:      getEnv("EMBEDDING_MODEL", ""),
			EmbeddingDimension:  getEnvAsInt("EMBEDDING_DIMENSION", 384),
			EmbeddingMaxRetries: getEnvAsInt("EMBEDDING_MAX_RETRIES", 2),
			EmbeddingTimeout:    getEnvAsDuration("EMBEDDING_TIMEOUT", 10*time.Second),
			LLMProvider:         getEnv("LLM_PROVIDER", "anthropic"),
			LLMModel:            getEnv("LLM_MODEL", "claude-3-7-sonnet-20250219"),
			LLMTemperature:      getEnvAsFloat("LLM_TEMPERATURE", 0),
			LLMMaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 1000),
			LLMTimeout:          getEnvAsDuration("AI_TIMEOUT", 30*time.Second),
			AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
			OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Otel: OtelConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "nau-assistant"),
		},
		Bus: BusConfig{
			NatsEnabled:  getEnvAsBool("NATS_ENABLED", false),
			RefreshTopic: getEnv("INDEX_REFRESH_TOPIC_NAME", "INDEX_REFRESH"),
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
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
