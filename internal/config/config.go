package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Vector index backends.
const (
	BackendQdrant  = "qdrant"
	BackendChromem = "chromem"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModelName   string
	LLMTemperature float64
	LLMMaxTokens   int

	EmbeddingBaseURL   string
	EmbeddingModelName string
	VectorSize         int

	VectorBackend    string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	ChromemPath      string // empty keeps the chromem index in memory

	DBPath      string // empty disables durable conversation history
	RecordsPath string // JSONL file for ingestion
	APIPort     string

	TopK                  int
	ContextResults        int
	RecencyWindow         int
	MaxHistory            int
	MaxSessions           int
	SessionIdleTTL        time.Duration
	AnswerMode            string
	AutoTemplateMinScore  float64
	AutoTemplateMinMargin float64
	RecencyFallback       string
	PreferLanguageRecords bool
	EmbedTimeout          time.Duration
	SearchTimeout         time.Duration
	GenerateTimeout       time.Duration
	HeuristicsPath        string
	TemplatesPath         string

	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	llmBaseURL := getEnv("LLM_BASE_URL", "https://api.openai.com/v1")

	cfg := &Config{
		LLMBaseURL:         llmBaseURL,
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		LLMModelName:       getEnv("LLM_MODEL", "gpt-4o"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", llmBaseURL),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", BackendQdrant)),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:       getEnv("QDRANT_API_KEY", ""),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "pmc-records"),
		ChromemPath:        getEnv("CHROMEM_PATH", ""),
		DBPath:             getEnv("DB_PATH", "./data/pmcbot.db"),
		RecordsPath:        getEnv("RECORDS_PATH", ""),
		APIPort:            getEnv("API_PORT", "8000"),
		AnswerMode:         strings.ToLower(getEnv("ANSWER_MODE", "generative")),
		RecencyFallback:    strings.ToLower(getEnv("RECENCY_FALLBACK", "refuse")),
		HeuristicsPath:     getEnv("HEURISTICS_PATH", ""),
		TemplatesPath:      getEnv("TEMPLATES_PATH", ""),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	// VECTOR_SIZE must match the embedding model's output size; changing it
	// requires recreating the collection.
	vectorSizeStr := getEnv("VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("VECTOR_SIZE must be greater than 0")
	}
	cfg.VectorSize = vectorSize

	if cfg.LLMAPIKey == "" && !isLocalURL(cfg.LLMBaseURL) {
		return nil, fmt.Errorf("LLM_API_KEY is required unless LLM_BASE_URL points at a local server")
	}

	ints := []struct {
		key  string
		def  int
		dest *int
	}{
		{"LLM_MAX_TOKENS", 1024, &cfg.LLMMaxTokens},
		{"TOP_K", 15, &cfg.TopK},
		{"CONTEXT_RESULTS", 8, &cfg.ContextResults},
		{"RECENCY_WINDOW", 10, &cfg.RecencyWindow},
		{"MAX_HISTORY", 5, &cfg.MaxHistory},
		{"MAX_SESSIONS", 10000, &cfg.MaxSessions},
	}
	for _, p := range ints {
		v, err := getPositiveInt(p.key, p.def)
		if err != nil {
			return nil, err
		}
		*p.dest = v
	}

	floats := []struct {
		key  string
		def  float64
		dest *float64
	}{
		{"LLM_TEMPERATURE", 0.2, &cfg.LLMTemperature},
		{"AUTO_TEMPLATE_MIN_SCORE", 0.75, &cfg.AutoTemplateMinScore},
		{"AUTO_TEMPLATE_MIN_MARGIN", 0.05, &cfg.AutoTemplateMinMargin},
	}
	for _, p := range floats {
		v, err := getFloat(p.key, p.def)
		if err != nil {
			return nil, err
		}
		*p.dest = v
	}

	if cfg.EmbedTimeout, err = getDuration("EMBED_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SearchTimeout, err = getDuration("SEARCH_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.GenerateTimeout, err = getDuration("GENERATE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTTL, err = getDuration("SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	if cfg.PreferLanguageRecords, err = getBool("PREFER_LANGUAGE_RECORDS", false); err != nil {
		return nil, err
	}

	if cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.DBPath != "" {
		dataDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.VectorBackend {
	case BackendQdrant, BackendChromem:
	default:
		return fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", BackendQdrant, BackendChromem, c.VectorBackend)
	}
	switch c.AnswerMode {
	case "generative", "templated", "auto":
	default:
		return fmt.Errorf("ANSWER_MODE must be generative, templated or auto, got %q", c.AnswerMode)
	}
	switch c.RecencyFallback {
	case "refuse", "broaden":
	default:
		return fmt.Errorf("RECENCY_FALLBACK must be refuse or broaden, got %q", c.RecencyFallback)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.ContextResults > c.TopK {
		return fmt.Errorf("CONTEXT_RESULTS (%d) must not exceed TOP_K (%d)", c.ContextResults, c.TopK)
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2")
	}
	return nil
}

// isLocalURL reports whether raw points at a loopback host, where an
// OpenAI-compatible server usually runs without a key.
func isLocalURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1", "host.docker.internal":
		return true
	}
	return false
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	return level, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 10s: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return v, nil
}
