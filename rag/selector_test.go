package rag_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/lecturecompanion/rag-engine/rag"
)

func rankedChunk(id, sourceType string, score float64) rag.RankedChunk {
	return rag.RankedChunk{ChunkID: id, SourceType: sourceType, Score: score, Text: id}
}

func TestSelectDiverseBalancesSources(t *testing.T) {
	var ranked []rag.RankedChunk
	for i := 0; i < 5; i++ {
		ranked = append(ranked, rankedChunk(fmt.Sprintf("sum_%d", i), rag.SourceSummaryEN, 1.0-float64(i)*0.01))
	}
	for i := 0; i < 5; i++ {
		ranked = append(ranked, rankedChunk(fmt.Sprintf("txt_%d", i), rag.SourceTextChunk, 0.5-float64(i)*0.01))
	}

	selected := rag.SelectDiverse(ranked)
	if len(selected) != 5 {
		t.Fatalf("expected 5 selected chunks, got %d", len(selected))
	}

	summaries, transcripts := 0, 0
	for _, chunk := range selected {
		if strings.Contains(chunk.SourceType, "summary") {
			summaries++
		} else {
			transcripts++
		}
	}
	if summaries > 2 {
		t.Fatalf("expected at most 2 summary chunks, got %d", summaries)
	}
	if transcripts > 4 {
		t.Fatalf("expected at most 4 transcript chunks, got %d", transcripts)
	}
}

func TestSelectDiversePreservesRankOrder(t *testing.T) {
	ranked := []rag.RankedChunk{
		rankedChunk("t1", rag.SourceTextChunk, 0.9),
		rankedChunk("s1", rag.SourceSummaryEN, 0.8),
		rankedChunk("t2", rag.SourceTextChunk, 0.7),
		rankedChunk("s2", rag.SourceSummaryMM, 0.6),
		rankedChunk("t3", rag.SourceTextChunk, 0.5),
	}

	selected := rag.SelectDiverse(ranked)
	want := []string{"t1", "s1", "t2", "s2", "t3"}
	for i, chunk := range selected {
		if chunk.ChunkID != want[i] {
			t.Fatalf("position %d: expected %q, got %q", i, want[i], chunk.ChunkID)
		}
	}
}

func TestSelectDiverseSecondPassFills(t *testing.T) {
	var ranked []rag.RankedChunk
	for i := 0; i < 6; i++ {
		ranked = append(ranked, rankedChunk(fmt.Sprintf("sum_%d", i), rag.SourceSummaryEN, 1.0-float64(i)*0.01))
	}

	selected := rag.SelectDiverse(ranked)
	if len(selected) != 5 {
		t.Fatalf("expected second pass to fill to 5, got %d", len(selected))
	}
	// No duplicates across passes.
	seen := map[string]struct{}{}
	for _, chunk := range selected {
		if _, dup := seen[chunk.ChunkID]; dup {
			t.Fatalf("duplicate chunk %q selected", chunk.ChunkID)
		}
		seen[chunk.ChunkID] = struct{}{}
	}
}

func TestSelectDiverseShortList(t *testing.T) {
	ranked := []rag.RankedChunk{
		rankedChunk("t1", rag.SourceTextChunk, 0.9),
		rankedChunk("t2", rag.SourceTextChunk, 0.8),
	}

	selected := rag.SelectDiverse(ranked)
	if len(selected) != 2 {
		t.Fatalf("expected all available chunks, got %d", len(selected))
	}
}
