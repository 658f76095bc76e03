package embeddings_test

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/lecturecompanion/rag-engine/embeddings"
)

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
	texts  []string
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	s.texts = texts
	if s.err != nil {
		return nil, s.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = s.vector
	}
	return vectors, nil
}

func (s *stubEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

var _ embeddings.Embedder = (*stubEmbedder)(nil)

func TestTruncate(t *testing.T) {
	short := "short text"
	if embeddings.Truncate(short) != short {
		t.Fatal("short text must pass through unchanged")
	}

	long := strings.Repeat("a", 9000)
	truncated := embeddings.Truncate(long)
	if len(truncated) != 8000 {
		t.Fatalf("expected 8000 chars, got %d", len(truncated))
	}
	if embeddings.Truncate(long) != truncated {
		t.Fatal("truncation must be reproducible")
	}
}

func TestFallbackUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &stubEmbedder{vector: []float32{1, 2}}
	secondary := &stubEmbedder{vector: []float32{9, 9}}

	fallback := embeddings.NewFallback(log.New(io.Discard, "", 0),
		embeddings.Strategy{Name: "primary", Embedder: primary},
		embeddings.Strategy{Name: "secondary", Embedder: secondary},
	)

	vectors, err := fallback.Embed(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if secondary.calls != 0 {
		t.Fatal("secondary must not be called when primary succeeds")
	}
}

func TestFallbackSwitchesWholeRequest(t *testing.T) {
	primary := &stubEmbedder{err: errors.New("quota exceeded")}
	secondary := &stubEmbedder{vector: []float32{3, 4}}

	fallback := embeddings.NewFallback(log.New(io.Discard, "", 0),
		embeddings.Strategy{Name: "primary", Embedder: primary},
		embeddings.Strategy{Name: "secondary", Embedder: secondary},
	)

	texts := []string{"one", "two", "three"}
	vectors, err := fallback.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	if secondary.calls != 1 || len(secondary.texts) != len(texts) {
		t.Fatal("secondary must receive the entire request")
	}
}

func TestFallbackPropagatesWhenAllFail(t *testing.T) {
	primary := &stubEmbedder{err: errors.New("primary down")}
	secondary := &stubEmbedder{err: errors.New("secondary down")}

	fallback := embeddings.NewFallback(log.New(io.Discard, "", 0),
		embeddings.Strategy{Name: "primary", Embedder: primary},
		embeddings.Strategy{Name: "secondary", Embedder: secondary},
	)

	_, err := fallback.Embed(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}
	if !strings.Contains(err.Error(), "all embedding providers failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFallbackEmbedOne(t *testing.T) {
	primary := &stubEmbedder{vector: []float32{5}}
	fallback := embeddings.NewFallback(log.New(io.Discard, "", 0),
		embeddings.Strategy{Name: "primary", Embedder: primary},
	)

	vector, err := fallback.EmbedOne(context.Background(), "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector) != 1 || vector[0] != 5 {
		t.Fatalf("unexpected vector %v", vector)
	}
}
