package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	Port     string
	Version  string
	LogLevel string

	AdminAPIKey string // Guards destructive admin endpoints (clear, ingest trigger)

	StoreBackend     string // Vector store backend: qdrant, pgvector or memory
	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantUseTLS     bool
	QdrantCollection string
	DatabaseURL      string // PostgreSQL with pgvector, used when StoreBackend is pgvector
	AnalyticsURL     string // Database for query analytics, empty disables analytics

	LLMBackend          string  // Chat backend: ollama (local) or openai (cloud)
	OllamaURL           string  // Ollama endpoint, speaks the OpenAI wire format under /v1
	OllamaModel         string  // Chat model served by Ollama
	OpenAIKey           string  // Enables the OpenAI platform as fallback (or primary)
	LLMTemperature      float64 // Sampling temperature, clamped to [0, 1]
	EmbeddingModel      string
	EmbeddingDimensions int

	SearchLimit       int      // Candidates retrieved per vector search
	MaxSources        int      // Source attributions returned per answer
	EmailLookbackDays int      // How far back ingestion reaches
	MailFolders       []string // Mailbox folders considered during ingestion

	GoogleCredentialsFile string // OAuth client secret for Gmail and Calendar access
	GoogleTokenFile       string // Cached OAuth token, refreshed automatically

	SendGridAPIKey string // SendGrid API key for sharing answers by email
	ShareFromEmail string // Verified sender address for shared answers

	CacheTTLSeconds int // TTL for cached summary and tasks responses

	IngestJobNamespace string // Kubernetes namespace for background ingestion jobs
	IngestJobImage     string // Image for background ingestion jobs, empty disables the trigger
}

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:     getEnv("PORT", "8080"),
		Version:  getEnv("VERSION", "1.0.0"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		StoreBackend:     getEnv("STORE_BACKEND", "qdrant"),
		QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:       getEnvInt("QDRANT_PORT", 6334),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantUseTLS:     getEnvBool("QDRANT_USE_TLS", false),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "emails"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		AnalyticsURL:     os.Getenv("ANALYTICS_DATABASE_URL"),

		LLMBackend:          getEnv("LLM_BACKEND", "ollama"),
		OllamaURL:           getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:         getEnv("OLLAMA_MODEL", "llama3.2:3b"),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		LLMTemperature:      getEnvFloat("LLM_TEMPERATURE", 0.3),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 768),

		SearchLimit:       getEnvInt("SEARCH_LIMIT", 10),
		MaxSources:        getEnvInt("MAX_SOURCES", 10),
		EmailLookbackDays: getEnvInt("EMAIL_LOOKBACK_DAYS", 365),
		MailFolders:       splitList(getEnv("MAIL_FOLDERS", "Inbox,Sent Items")),

		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		GoogleTokenFile:       getEnv("GOOGLE_TOKEN_FILE", "token.json"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		ShareFromEmail: getEnv("SHARE_FROM_EMAIL", "assistant@inboxai.app"),

		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 300),

		IngestJobNamespace: getEnv("INGEST_JOB_NAMESPACE", "default"),
		IngestJobImage:     os.Getenv("INGEST_JOB_IMAGE"),
	}

	return config
}

// UseOllama reports whether Ollama is the primary chat backend.
func (c *Config) UseOllama() bool {
	return c.LLMBackend == "ollama" && c.OllamaURL != ""
}

// HasOpenAIFallback reports whether the OpenAI platform is available.
func (c *Config) HasOpenAIFallback() bool {
	return c.OpenAIKey != ""
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as boolean with a default fallback
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as float with a default fallback
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	// Configure zerolog to output JSON without newlines
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Create logger with JSON output to stdout
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "inboxai").
		Str("version", c.Version).
		Logger()

	// Set log level based on configuration
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}
