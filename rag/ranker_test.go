package rag_test

import (
	"math"
	"testing"

	"github.com/lecturecompanion/rag-engine/rag"
)

func TestKeywordScore(t *testing.T) {
	score := rag.KeywordScore("what is photosynthesis", "photosynthesis is the process plants use")
	// "is" and "photosynthesis" overlap out of 3 question words.
	want := 2.0 / 3.0
	if math.Abs(score-want) > 1e-9 {
		t.Fatalf("expected %f, got %f", want, score)
	}

	if rag.KeywordScore("", "anything") != 0 {
		t.Fatal("expected zero score for empty question")
	}
	if rag.KeywordScore("nothing matches", "completely different words") != 0 {
		t.Fatal("expected zero score for no overlap")
	}
}

func TestIsTechnicalQuestion(t *testing.T) {
	if !rag.IsTechnicalQuestion("How do you derive the formula?") {
		t.Fatal("expected technical classification")
	}
	if rag.IsTechnicalQuestion("Tell me about the lecture topic.") {
		t.Fatal("expected non-technical classification")
	}
}

func TestRankWeightSelection(t *testing.T) {
	neighbors := []rag.Neighbor{
		{Chunk: rag.StoredChunk{ID: "c1", Text: "chunk one"}, Distance: 0.2},
	}
	keywordScores := map[string]float64{"c1": 0.5}

	// Technical question: 0.3*0.5 + 0.7*0.8 = 0.71
	ranked := rag.Rank("How do you derive the formula?", neighbors, keywordScores)
	if math.Abs(ranked[0].Score-0.71) > 1e-9 {
		t.Fatalf("technical weights: expected 0.71, got %f", ranked[0].Score)
	}

	// Non-technical question: 0.4*0.5 + 0.6*0.8 = 0.68
	ranked = rag.Rank("Tell me about the lecture.", neighbors, keywordScores)
	if math.Abs(ranked[0].Score-0.68) > 1e-9 {
		t.Fatalf("default weights: expected 0.68, got %f", ranked[0].Score)
	}
}

func TestRankBoosts(t *testing.T) {
	neighbors := []rag.Neighbor{
		{Chunk: rag.StoredChunk{ID: "plain", Text: "plain", SourceType: rag.SourceTextChunk}, Distance: 0.5},
		{Chunk: rag.StoredChunk{ID: "summary", Text: "summary", SourceType: rag.SourceSummaryEN}, Distance: 0.5},
		{Chunk: rag.StoredChunk{ID: "technical", Text: "technical", SourceType: rag.SourceTextChunk, IsTechnical: true}, Distance: 0.5},
	}
	scores := map[string]float64{}

	ranked := rag.Rank("How does this work?", neighbors, scores)

	byID := make(map[string]float64, len(ranked))
	for _, chunk := range ranked {
		byID[chunk.ChunkID] = chunk.Score
	}

	base := 0.7 * 0.5
	if math.Abs(byID["plain"]-base) > 1e-9 {
		t.Fatalf("plain chunk: expected %f, got %f", base, byID["plain"])
	}
	if math.Abs(byID["summary"]-base*1.15) > 1e-9 {
		t.Fatalf("summary boost: expected %f, got %f", base*1.15, byID["summary"])
	}
	if math.Abs(byID["technical"]-base*1.10) > 1e-9 {
		t.Fatalf("technical boost: expected %f, got %f", base*1.10, byID["technical"])
	}
}

func TestRankTechnicalBoostRequiresTechnicalQuestion(t *testing.T) {
	neighbors := []rag.Neighbor{
		{Chunk: rag.StoredChunk{ID: "technical", Text: "technical", SourceType: rag.SourceTextChunk, IsTechnical: true}, Distance: 0.5},
	}

	ranked := rag.Rank("Tell me about this chunk.", neighbors, nil)
	want := 0.6 * 0.5
	if math.Abs(ranked[0].Score-want) > 1e-9 {
		t.Fatalf("expected no technical boost for non-technical question: want %f, got %f", want, ranked[0].Score)
	}
}

func TestRankOrderingAndTies(t *testing.T) {
	neighbors := []rag.Neighbor{
		{Chunk: rag.StoredChunk{ID: "a", Text: "a"}, Distance: 0.4},
		{Chunk: rag.StoredChunk{ID: "b", Text: "b"}, Distance: 0.4},
		{Chunk: rag.StoredChunk{ID: "c", Text: "c"}, Distance: 0.1},
	}

	ranked := rag.Rank("Tell me something.", neighbors, nil)
	if ranked[0].ChunkID != "c" {
		t.Fatalf("expected closest chunk first, got %q", ranked[0].ChunkID)
	}
	// Equal scores keep nearest-neighbor order.
	if ranked[1].ChunkID != "a" || ranked[2].ChunkID != "b" {
		t.Fatalf("tie order not preserved: got %q, %q", ranked[1].ChunkID, ranked[2].ChunkID)
	}
}
