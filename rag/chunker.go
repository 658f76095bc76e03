package rag

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	sentenceWindow  = 7
	sentenceOverlap = 3
)

var (
	sentenceBoundary = regexp.MustCompile(`([.!?])\s+`)
	technicalTerms   = regexp.MustCompile(`(?i)\b(equation|formula|theorem|proof|calculate|derive|solve|method|technique|algorithm|step)\b`)
)

// BuildChunks turns a transcript, its optional timestamped segments, and
// optional summaries into the full chunk set for one index generation.
// The result is a pure function of its input: chunk IDs, text, and order are
// reproducible for identical input.
func BuildChunks(input Input) []Chunk {
	var chunks []Chunk
	if len(input.Segments) > 1 {
		chunks = chunkSegments(input.Segments)
	} else {
		chunks = chunkText(input.TranscriptText)
	}

	if input.SummaryEN != "" {
		chunks = append(chunks, chunkSummary(input.SummaryEN, SourceSummaryEN)...)
	}
	if input.SummaryMM != "" {
		chunks = append(chunks, chunkSummary(input.SummaryMM, SourceSummaryMM)...)
	}

	return chunks
}

// chunkSegments emits one chunk per ASR segment, verbatim, keeping timing.
func chunkSegments(segments []Segment) []Chunk {
	chunks := make([]Chunk, 0, len(segments))
	for i, seg := range segments {
		chunks = append(chunks, Chunk{
			ID:         fmt.Sprintf("seg_%d", i),
			Text:       seg.Text,
			StartTime:  seg.Start,
			EndTime:    seg.End,
			SourceType: SourceASRSegment,
		})
	}
	return chunks
}

// chunkText splits plain text into sentences and forms overlapping windows of
// sentenceWindow sentences advancing by sentenceWindow-sentenceOverlap, so
// every sentence lands in at least one chunk and adjacent chunks share
// context. Chunk IDs carry the window's starting sentence index.
func chunkText(text string) []Chunk {
	sentences := splitSentences(text)

	var chunks []Chunk
	step := sentenceWindow - sentenceOverlap
	for i := 0; i < len(sentences); i += step {
		end := i + sentenceWindow
		if end > len(sentences) {
			end = len(sentences)
		}
		chunkText := strings.Join(sentences[i:end], " ")
		if strings.TrimSpace(chunkText) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			ID:          fmt.Sprintf("text_%d", i),
			Text:        chunkText,
			SourceType:  SourceTextChunk,
			IsTechnical: technicalTerms.MatchString(chunkText),
		})
	}
	return chunks
}

// chunkSummary runs the sentence-window algorithm over a summary and
// namespaces the chunk IDs so they cannot collide with transcript chunks.
func chunkSummary(summary, sourceType string) []Chunk {
	chunks := chunkText(summary)
	for i := range chunks {
		chunks[i].ID = sourceType + "_" + chunks[i].ID
		chunks[i].SourceType = sourceType
		chunks[i].IsTechnical = false
	}
	return chunks
}

// splitSentences breaks text on sentence-terminating punctuation followed by
// whitespace, keeping the punctuation attached to the left sentence.
func splitSentences(text string) []string {
	marked := sentenceBoundary.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}
