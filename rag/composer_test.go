package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lecturecompanion/rag-engine/llm"
	"github.com/lecturecompanion/rag-engine/rag"
)

type captureLLM struct {
	answer   string
	err      error
	messages []llm.Message
}

func (c *captureLLM) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	c.messages = messages
	if c.err != nil {
		return "", c.err
	}
	return c.answer, nil
}

var _ llm.Client = (*captureLLM)(nil)

func TestComposeGroupsSummaryBeforeTranscript(t *testing.T) {
	generator := &captureLLM{answer: "grounded answer"}

	selected := []rag.RankedChunk{
		{ChunkID: "t1", SourceType: rag.SourceTextChunk, Text: "transcript detail one"},
		{ChunkID: "s1", SourceType: rag.SourceSummaryEN, Text: "summary overview one"},
		{ChunkID: "t2", SourceType: rag.SourceTextChunk, Text: "transcript detail two"},
	}

	answer, err := rag.Compose(context.Background(), generator, "What was covered?", selected)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "grounded answer" {
		t.Fatalf("unexpected answer %q", answer)
	}

	if len(generator.messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(generator.messages))
	}
	if generator.messages[0].Role != llm.RoleSystem {
		t.Fatalf("expected system message first, got role %q", generator.messages[0].Role)
	}

	user := generator.messages[1].Content
	if !strings.Contains(user, "What was covered?") {
		t.Fatal("prompt missing the question")
	}

	overviewAt := strings.Index(user, "High-level overview")
	detailAt := strings.Index(user, "Detailed information")
	if overviewAt == -1 || detailAt == -1 {
		t.Fatal("prompt missing section labels")
	}
	if overviewAt > detailAt {
		t.Fatal("summary section must precede transcript section")
	}

	// Transcript chunks keep their rank order.
	if strings.Index(user, "transcript detail one") > strings.Index(user, "transcript detail two") {
		t.Fatal("transcript chunk order not preserved")
	}
}

func TestComposeTranscriptOnlySkipsOverviewLabel(t *testing.T) {
	generator := &captureLLM{answer: "ok"}

	selected := []rag.RankedChunk{
		{ChunkID: "t1", SourceType: rag.SourceTextChunk, Text: "only transcript detail"},
	}

	if _, err := rag.Compose(context.Background(), generator, "Question?", selected); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := generator.messages[1].Content
	if strings.Contains(user, "High-level overview") {
		t.Fatal("overview label should be absent without summary chunks")
	}
	if !strings.Contains(user, "Detail 1:") {
		t.Fatal("detail label missing")
	}
}

func TestComposePropagatesGenerationError(t *testing.T) {
	generator := &captureLLM{err: errors.New("provider down")}

	_, err := rag.Compose(context.Background(), generator, "Question?", []rag.RankedChunk{
		{ChunkID: "t1", SourceType: rag.SourceTextChunk, Text: "text"},
	})
	if err == nil {
		t.Fatal("expected error from generation provider")
	}
}
