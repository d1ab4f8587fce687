package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Vectorizer / answer generation
	UseOpenAI    bool
	OpenAIAPIKey string
	EmbedModel   string
	ChatModel    string

	// Paths
	DataDir string
	KBDir   string
	DBPath  string

	// Optional Qdrant mirror for similarity search
	QdrantURL        string
	QdrantCollection string

	// Retrieval tuning. The bonus magnitude and score floor are
	// heuristic constants calibrated for the club corpus; they are
	// configuration rather than code so they can be adjusted without
	// touching the algorithm.
	RerankBonus float32
	MinScore    float32
	TopK        int

	// Chunker tuning
	ChunkSize    int
	ChunkOverlap int

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a .env at the project root (where go.mod is)
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		UseOpenAI:        getBoolEnv("USE_OPENAI", false),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		EmbedModel:       getEnv("EMBED_MODEL", "text-embedding-3-small"),
		ChatModel:        getEnv("CHAT_MODEL", "gpt-4o-mini"),
		DataDir:          getEnv("DATA_DIR", "data"),
		KBDir:            getEnv("KB_DIR", "kb"),
		QdrantURL:        os.Getenv("QDRANT_URL"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "askerfotball"),
		APIPort:          getEnv("API_PORT", "9000"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}
	cfg.DBPath = filepath.Join(cfg.DataDir, "index.db")

	var err error
	if cfg.RerankBonus, err = getFloatEnv("RERANK_BONUS", 0.15); err != nil {
		return nil, err
	}
	if cfg.MinScore, err = getFloatEnv("MIN_SCORE", 0.15); err != nil {
		return nil, err
	}
	if cfg.TopK, err = getIntEnv("TOP_K", 6); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = getIntEnv("CHUNK_SIZE", 700); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getIntEnv("CHUNK_OVERLAP", 120); err != nil {
		return nil, err
	}

	switch strings.ToLower(getEnv("LOG_LEVEL", "info")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	// A remote mode without a credential is a configuration error at
	// startup, never a query-time surprise.
	if cfg.UseOpenAI && cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("USE_OPENAI is enabled but OPENAI_API_KEY is not set")
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("TOP_K must be greater than 0")
	}

	// Create the data directory so the index store can write its file.
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// Mode returns the vectorizer mode implied by the configuration.
func (c *Config) Mode() string {
	if c.UseOpenAI {
		return "openai"
	}
	return "tfidf"
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv reads a boolean flag. "1", "true", "yes" and "on" count as
// true, case-insensitively; anything else is false.
func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func getFloatEnv(key string, defaultValue float32) (float32, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return float32(f), nil
}
