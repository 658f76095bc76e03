// Package rag implements the retrieval-augmented answering engine: chunking,
// hybrid keyword/semantic ranking, diversity selection, and grounded answer
// composition over a single indexed lecture transcript.
package rag

// Chunk source types. Timestamped ASR segments keep their timing; everything
// else goes through sentence-window chunking.
const (
	SourceASRSegment = "asr_segment"
	SourceTextChunk  = "text_chunk"
	SourceSummaryEN  = "summary_en"
	SourceSummaryMM  = "summary_mm"
)

// Segment is one timestamped piece of a transcript as delivered by a caption
// or ASR source. Start and End are nil for un-timestamped sources.
type Segment struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Text  string   `json:"text"`
}

// Chunk is the atomic retrieval unit. Immutable once created; IDs are unique
// within one index generation.
type Chunk struct {
	ID          string
	Text        string
	StartTime   *float64
	EndTime     *float64
	SourceType  string
	IsTechnical bool
}

// RankedChunk is the per-query scoring view of a chunk. Produced fresh on
// every query, never persisted outside the answer cache.
type RankedChunk struct {
	ChunkID     string   `json:"chunk_id"`
	Score       float64  `json:"score"`
	Text        string   `json:"text"`
	TextPreview string   `json:"text_preview"`
	StartTime   *float64 `json:"start_time"`
	EndTime     *float64 `json:"end_time"`
	SourceType  string   `json:"source_type"`
}

// Input carries everything a transcript source hands to Index.
type Input struct {
	TranscriptText string
	Segments       []Segment
	SummaryEN      string
	SummaryMM      string
}

type IndexResult struct {
	IndexedChunks int    `json:"indexed_chunks"`
	Status        string `json:"status"`
}

type QueryOptions struct {
	TopK             int
	KeywordThreshold float64
}

type QueryResult struct {
	Answer    string        `json:"answer"`
	TopChunks []RankedChunk `json:"top_chunks"`
	ElapsedMS float64       `json:"elapsed_ms"`
	FromCache bool          `json:"from_cache"`
}

type SampleChunk struct {
	ChunkID     string `json:"chunk_id"`
	TextPreview string `json:"text_preview"`
	SourceType  string `json:"source_type"`
}

type StatsResult struct {
	Indexed      bool          `json:"indexed"`
	ChunkCount   int           `json:"chunk_count"`
	SampleChunks []SampleChunk `json:"sample_chunks,omitempty"`
}

type ClearResult struct {
	Success bool `json:"success"`
}

const previewLength = 200

func preview(text string) string {
	if len(text) > previewLength {
		return text[:previewLength] + "..."
	}
	return text
}
