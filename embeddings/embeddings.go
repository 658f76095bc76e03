// Package embeddings maps text to fixed-length vectors, with an ordered
// fallback across providers when the primary is unreachable.
package embeddings

import (
	"context"
	"fmt"
	"log"

	"github.com/lecturecompanion/rag-engine/config"
)

// maxEmbedChars is the silent truncation limit applied before submitting text
// to a provider. Truncation is byte-exact so repeated identical input yields
// identical embeddings.
const maxEmbedChars = 8000

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Truncate caps text at the provider submission limit.
func Truncate(text string) string {
	if len(text) > maxEmbedChars {
		return text[:maxEmbedChars]
	}
	return text
}

// Strategy pairs a provider with a name used in fallback logs.
type Strategy struct {
	Name     string
	Embedder Embedder
}

// Fallback tries each strategy in order for the entire request. Providers are
// never mixed within one call: the first strategy that embeds the whole batch
// wins, and only when every strategy fails does the error propagate.
type Fallback struct {
	strategies []Strategy
	logger     *log.Logger
}

func NewFallback(logger *log.Logger, strategies ...Strategy) *Fallback {
	if logger == nil {
		logger = log.Default()
	}
	return &Fallback{strategies: strategies, logger: logger}
}

func (f *Fallback) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for _, strategy := range f.strategies {
		vectors, err := strategy.Embedder.Embed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		f.logger.Printf("embedding provider %s failed (%d texts): %v", strategy.Name, len(texts), err)
	}
	if lastErr == nil {
		return nil, fmt.Errorf("no embedding strategies configured")
	}
	return nil, fmt.Errorf("all embedding providers failed: %w", lastErr)
}

func (f *Fallback) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 vector, got %d", len(vectors))
	}
	return vectors[0], nil
}

var _ Embedder = (*Fallback)(nil)

// NewEmbedder wires the configured primary provider with the local Ollama
// fallback.
func NewEmbedder(cfg config.Config, logger *log.Logger) (Embedder, error) {
	local := NewOllamaEmbedder(Options{
		Model:      cfg.OllamaFallbackModel,
		OllamaHost: cfg.OllamaHost,
	})

	switch cfg.Embeddings.Provider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		primary := NewOpenAIEmbedder(Options{
			Model:         cfg.Embeddings.Model,
			Dimension:     cfg.Embeddings.Dimension,
			OpenAIAPIKey:  cfg.OpenAIAPIKey,
			OpenAIBaseURL: cfg.OpenAIBaseURL,
		})
		return NewFallback(logger,
			Strategy{Name: "openai", Embedder: primary},
			Strategy{Name: "ollama", Embedder: local},
		), nil
	case config.ProviderOllama:
		return NewFallback(logger, Strategy{Name: "ollama", Embedder: local}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embeddings.Provider)
	}
}

// Options carries provider construction settings.
type Options struct {
	Model     string
	Dimension int

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}
