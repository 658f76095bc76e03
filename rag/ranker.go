package rag

import (
	"regexp"
	"sort"
	"strings"
)

// Ranking weights: technical questions lean harder on semantic similarity.
const (
	technicalKeywordWeight  = 0.3
	technicalSemanticWeight = 0.7
	defaultKeywordWeight    = 0.4
	defaultSemanticWeight   = 0.6

	summaryBoost   = 1.15
	technicalBoost = 1.10
)

var technicalQuestion = regexp.MustCompile(`(?i)\b(how|why|what|explain|calculate|solve|derive|prove|show|formula|equation|method|technique|step)\b`)

// KeywordScore is the Jaccard-style overlap between the question's words and
// the chunk's words, normalized by the question's word count. Tokenization is
// lower-cased whitespace splitting.
func KeywordScore(question, text string) float64 {
	questionWords := wordSet(question)
	if len(questionWords) == 0 {
		return 0
	}

	chunkWords := wordSet(text)
	overlap := 0
	for word := range questionWords {
		if _, ok := chunkWords[word]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(questionWords))
}

// IsTechnicalQuestion reports whether the question matches the technical and
// procedural vocabulary that shifts ranking weight toward semantic similarity.
func IsTechnicalQuestion(question string) bool {
	return technicalQuestion.MatchString(question)
}

// Neighbor is a nearest-neighbor candidate as returned by the vector index,
// ordered by ascending cosine distance.
type Neighbor struct {
	Chunk    StoredChunk
	Distance float64
}

// Rank combines keyword overlap and semantic similarity into one descending
// ordering over the nearest-neighbor candidates. keywordScores maps chunk ID
// to its own overlap score over the full index. Ties keep the candidates'
// nearest-neighbor order.
func Rank(question string, neighbors []Neighbor, keywordScores map[string]float64) []RankedChunk {
	keywordWeight, semanticWeight := defaultKeywordWeight, defaultSemanticWeight
	technical := IsTechnicalQuestion(question)
	if technical {
		keywordWeight, semanticWeight = technicalKeywordWeight, technicalSemanticWeight
	}

	ranked := make([]RankedChunk, 0, len(neighbors))
	for _, n := range neighbors {
		semantic := 1.0 - n.Distance
		score := keywordWeight*keywordScores[n.Chunk.ID] + semanticWeight*semantic

		if strings.Contains(n.Chunk.SourceType, "summary") {
			score *= summaryBoost
		}
		if technical && n.Chunk.IsTechnical {
			score *= technicalBoost
		}

		ranked = append(ranked, RankedChunk{
			ChunkID:     n.Chunk.ID,
			Score:       score,
			Text:        n.Chunk.Text,
			TextPreview: preview(n.Chunk.Text),
			StartTime:   n.Chunk.StartTime,
			EndTime:     n.Chunk.EndTime,
			SourceType:  n.Chunk.SourceType,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}
