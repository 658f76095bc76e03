package rag

import "strings"

// Selection caps: at most 5 chunks feed the answer, balanced between
// organized summary content and raw transcript content.
const (
	selectLimit   = 5
	maxSummary    = 2
	maxTranscript = 4
)

// SelectDiverse walks the ranked list once, admitting at most maxSummary
// summary chunks and maxTranscript transcript chunks. If the balanced pass
// admits fewer than selectLimit chunks, a second pass fills the remainder
// with the best not-yet-chosen chunks regardless of type. Relative ranking
// order is preserved.
func SelectDiverse(ranked []RankedChunk) []RankedChunk {
	selected := make([]RankedChunk, 0, selectLimit)
	chosen := make(map[string]struct{}, selectLimit)
	summaryCount, transcriptCount := 0, 0

	for _, chunk := range ranked {
		if len(selected) >= selectLimit {
			break
		}
		if strings.Contains(chunk.SourceType, "summary") {
			if summaryCount < maxSummary {
				selected = append(selected, chunk)
				chosen[chunk.ChunkID] = struct{}{}
				summaryCount++
			}
		} else if transcriptCount < maxTranscript {
			selected = append(selected, chunk)
			chosen[chunk.ChunkID] = struct{}{}
			transcriptCount++
		}
	}

	if len(selected) < selectLimit {
		for _, chunk := range ranked {
			if len(selected) >= selectLimit {
				break
			}
			if _, ok := chosen[chunk.ChunkID]; ok {
				continue
			}
			selected = append(selected, chunk)
			chosen[chunk.ChunkID] = struct{}{}
		}
	}

	return selected
}
