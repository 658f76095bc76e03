package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lecturecompanion/rag-engine/embeddings"
	"github.com/lecturecompanion/rag-engine/llm"
)

const (
	DefaultTopK             = 10
	DefaultKeywordThreshold = 0.15

	// Combined-score floor for the relevance gate.
	minCombinedScore = 0.3

	answerCacheKind = "rag_answer"
)

// Sentinel conditions the orchestrator recovers from locally.
var (
	ErrNotIndexed = errors.New("no transcript indexed")
	ErrNoChunks   = errors.New("no chunks generated from transcript")
)

const (
	notIndexedAnswer = "Please index a transcript first before asking questions."
	refusalEnglish   = "I can only answer questions based on this transcript. I couldn't find relevant information to answer your question."
	refusalBurmese   = "ဤမှတ်တမ်းအပေါ် အခြေခံ၍သာ မေးခွန်းများကို ဖြေဆိုနိုင်ပါသည်။ သင့်မေးခွန်းအတွက် သက်ဆိုင်သောအချက်အလက်များ ရှာမတွေ့ပါ။"
)

// StoredChunk is a chunk as read back from the vector index.
type StoredChunk struct {
	ID          string
	Text        string
	SourceType  string
	StartTime   *float64
	EndTime     *float64
	IsTechnical bool
}

// IndexStats describes the current index generation.
type IndexStats struct {
	Indexed    bool
	ChunkCount int
}

// VectorIndex is the persistent store of one index generation. Replace swaps
// the whole generation; Nearest and All return ErrNotIndexed when no
// generation exists.
type VectorIndex interface {
	Replace(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Nearest(ctx context.Context, vector []float32, k int) ([]Neighbor, error)
	All(ctx context.Context) ([]StoredChunk, error)
	Stats(ctx context.Context) (IndexStats, error)
	Clear(ctx context.Context) error
}

// AnswerCache memoizes query results. Get reports a hit explicitly; callers
// never infer cache status from timing.
type AnswerCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Service sequences chunking, embedding, ranking, selection, and generation
// for the index and query operations, and owns the relevance gate.
type Service struct {
	index     VectorIndex
	embedder  embeddings.Embedder
	generator llm.Client
	cache     AnswerCache
	logger    *log.Logger
}

func NewService(index VectorIndex, embedder embeddings.Embedder, generator llm.Client, cache AnswerCache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		index:     index,
		embedder:  embedder,
		generator: generator,
		cache:     cache,
		logger:    logger,
	}
}

// Index builds a fresh index generation from the transcript, replacing any
// prior generation wholesale. The replace is not transactional: a concurrent
// Query may observe a partially replaced index while Index is in flight.
func (s *Service) Index(ctx context.Context, input Input) (IndexResult, error) {
	if s.embedder == nil {
		return IndexResult{}, fmt.Errorf("embedder is not configured")
	}
	if s.index == nil {
		return IndexResult{}, fmt.Errorf("vector index is not configured")
	}

	chunks := BuildChunks(input)
	if len(chunks) == 0 {
		return IndexResult{}, ErrNoChunks
	}
	s.logger.Printf("indexing %d chunks (%d segments, summaries en=%t mm=%t)",
		len(chunks), len(input.Segments), input.SummaryEN != "", input.SummaryMM != "")

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return IndexResult{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return IndexResult{}, fmt.Errorf("embedding count mismatch: have %d chunks, %d vectors", len(chunks), len(vectors))
	}

	if err := s.index.Replace(ctx, chunks, vectors); err != nil {
		return IndexResult{}, fmt.Errorf("replace index: %w", err)
	}

	return IndexResult{IndexedChunks: len(chunks), Status: "success"}, nil
}

// Query answers a question from the indexed transcript. The answer cache is
// consulted before any ranking work; unanswerable questions get a fixed
// bilingual refusal instead of a generation call.
func (s *Service) Query(ctx context.Context, question string, opts QueryOptions) (QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return QueryResult{}, fmt.Errorf("question cannot be empty")
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	threshold := opts.KeywordThreshold
	if threshold <= 0 {
		threshold = DefaultKeywordThreshold
	}

	cacheKey := CacheKey(answerCacheKind, question)
	if cached, ok := s.cacheGet(ctx, cacheKey); ok {
		return QueryResult{Answer: cached.Answer, TopChunks: cached.TopChunks, ElapsedMS: 0, FromCache: true}, nil
	}

	start := time.Now()

	allChunks, err := s.index.All(ctx)
	if errors.Is(err, ErrNotIndexed) {
		return QueryResult{Answer: notIndexedAnswer, TopChunks: []RankedChunk{}, ElapsedMS: elapsedMS(start)}, nil
	}
	if err != nil {
		return QueryResult{}, fmt.Errorf("scan index: %w", err)
	}

	keywordScores := make(map[string]float64, len(allChunks))
	maxKeyword := 0.0
	for _, chunk := range allChunks {
		score := KeywordScore(question, chunk.Text)
		keywordScores[chunk.ID] = score
		if score > maxKeyword {
			maxKeyword = score
		}
	}

	vector, err := s.embedder.EmbedOne(ctx, embeddings.Truncate(question))
	if err != nil {
		return QueryResult{}, fmt.Errorf("embed question: %w", err)
	}

	k := topK
	if k > len(allChunks) {
		k = len(allChunks)
	}
	neighbors, err := s.index.Nearest(ctx, vector, k)
	if err != nil {
		return QueryResult{}, fmt.Errorf("vector search: %w", err)
	}

	ranked := Rank(question, neighbors, keywordScores)
	topChunks := SelectDiverse(ranked)

	if maxKeyword < threshold && (len(topChunks) == 0 || topChunks[0].Score < minCombinedScore) {
		answer := refusalEnglish
		if containsBurmese(question) {
			answer = refusalBurmese
		}
		s.cacheSet(ctx, cacheKey, cachedAnswer{Answer: answer, TopChunks: topChunks})
		return QueryResult{Answer: answer, TopChunks: topChunks, ElapsedMS: elapsedMS(start)}, nil
	}

	answer, err := Compose(ctx, s.generator, question, topChunks)
	if err != nil {
		return QueryResult{}, err
	}

	s.cacheSet(ctx, cacheKey, cachedAnswer{Answer: answer, TopChunks: topChunks})
	return QueryResult{Answer: answer, TopChunks: topChunks, ElapsedMS: elapsedMS(start)}, nil
}

// Stats reports whether an index exists, its chunk count, and a sample of
// stored chunks for diagnostics.
func (s *Service) Stats(ctx context.Context) (StatsResult, error) {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return StatsResult{}, fmt.Errorf("index stats: %w", err)
	}
	if !stats.Indexed {
		return StatsResult{Indexed: false, ChunkCount: 0}, nil
	}

	result := StatsResult{Indexed: true, ChunkCount: stats.ChunkCount}
	chunks, err := s.index.All(ctx)
	if err != nil {
		if errors.Is(err, ErrNotIndexed) {
			return StatsResult{Indexed: false, ChunkCount: 0}, nil
		}
		return StatsResult{}, fmt.Errorf("sample chunks: %w", err)
	}
	for i := 0; i < len(chunks) && i < 5; i++ {
		result.SampleChunks = append(result.SampleChunks, SampleChunk{
			ChunkID:     chunks[i].ID,
			TextPreview: preview(chunks[i].Text),
			SourceType:  chunks[i].SourceType,
		})
	}
	return result, nil
}

// Clear deletes the current index generation. Clearing an absent index is
// reported as an unsuccessful clear, not an error.
func (s *Service) Clear(ctx context.Context) (ClearResult, error) {
	err := s.index.Clear(ctx)
	if errors.Is(err, ErrNotIndexed) {
		return ClearResult{Success: false}, nil
	}
	if err != nil {
		return ClearResult{}, fmt.Errorf("clear index: %w", err)
	}
	return ClearResult{Success: true}, nil
}

type cachedAnswer struct {
	Answer    string        `json:"answer"`
	TopChunks []RankedChunk `json:"top_chunks"`
}

// CacheKey derives a stable cache key from the operation kind and the
// whitespace-normalized, lower-cased input text.
func CacheKey(kind, input string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(input), " "))
	sum := sha256.Sum256([]byte(normalized))
	return kind + ":" + hex.EncodeToString(sum[:])
}

func (s *Service) cacheGet(ctx context.Context, key string) (cachedAnswer, bool) {
	if s.cache == nil {
		return cachedAnswer{}, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Printf("cache get %s: %v", key, err)
		return cachedAnswer{}, false
	}
	if !ok {
		return cachedAnswer{}, false
	}
	var cached cachedAnswer
	if err := json.Unmarshal(data, &cached); err != nil {
		s.logger.Printf("cache decode %s: %v", key, err)
		return cachedAnswer{}, false
	}
	return cached, true
}

func (s *Service) cacheSet(ctx context.Context, key string, value cachedAnswer) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Printf("cache encode %s: %v", key, err)
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.Printf("cache set %s: %v", key, err)
	}
}

// containsBurmese reports whether text contains any rune in the Burmese
// Unicode block (U+1000..U+109F).
func containsBurmese(text string) bool {
	for _, r := range text {
		if r >= 0x1000 && r <= 0x109F {
			return true
		}
	}
	return false
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
