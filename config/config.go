package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type EmbeddingsConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type LLMConfig struct {
	Provider string
	Model    string
}

type Config struct {
	PostgresDSN string
	RedisAddr   string
	RedisDB     int

	Embeddings EmbeddingsConfig
	LLM        LLMConfig

	OllamaHost          string
	OllamaFallbackModel string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	ListenAddr     string
	AllowedOrigins []string
}

// Load reads configuration from the environment. A local .env file, when
// present, is merged in first without overriding already-exported variables.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		PostgresDSN: getEnv("POSTGRES_DSN", "postgres://localhost:5432/lecture-rag?sslmode=disable"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		Embeddings: EmbeddingsConfig{
			Provider:  getEnv("EMBEDDINGS_PROVIDER", ProviderOpenAI),
			Model:     getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small"),
			Dimension: getEnvInt("EMBEDDINGS_DIMENSION", 1536),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", ProviderOpenAI),
			Model:    getEnv("LLM_MODEL", "gpt-4o-mini"),
		},
		OllamaHost:          getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaFallbackModel: getEnv("OLLAMA_FALLBACK_MODEL", "all-minilm"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		ListenAddr:          getEnv("LISTEN_ADDR", ":8080"),
		AllowedOrigins:      splitList(getEnv("FRONTEND_ORIGIN", "http://localhost:3000")),
	}
}

// Validate reports missing credentials for the selected providers before any
// work is attempted.
func (c Config) Validate() error {
	if c.Embeddings.Provider == ProviderOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("openai embeddings provider selected but OPENAI_API_KEY not set")
	}
	if c.LLM.Provider == ProviderOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("openai llm provider selected but OPENAI_API_KEY not set")
	}
	if c.Embeddings.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embeddings.Dimension)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
