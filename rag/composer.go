package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/lecturecompanion/rag-engine/llm"
)

const groundingPrompt = `You are a helpful educational assistant answering questions based ONLY on the provided transcript snippets.

IMPORTANT RULES:
1. ONLY use information from the provided snippets
2. DO NOT add any outside knowledge or assumptions
3. If the answer is not in the snippets, say "I don't have enough information in this transcript to answer that question."
4. Answer in the SAME LANGUAGE as the question. If the question is in Burmese, answer in Burmese. If in English, answer in English.
5. Use clear, natural formatting:
   - Use numbered lists (1., 2., 3.) for multiple points
   - Use bullet points (- or •) for sub-items
   - Use **bold** for emphasis on key terms, formulas, or important concepts
   - Use proper paragraph breaks for readability
6. Be concise and clear in B1-B2 level language
7. Preserve technical terms as-is without translation or modification
8. For equations and mathematical content:
   - Explain step-by-step when describing calculations
   - Include the equation or formula exactly as mentioned (use bold for formulas)
   - Explain what each variable or term represents
   - If showing an example, walk through the logic clearly
9. When explaining techniques or methods:
   - State the technique name clearly in **bold**
   - Explain the purpose or when to use it
   - Break down the steps involved
   - Provide context from the snippets
10. If snippets contain both summary and detailed content, synthesize them coherently`

// Compose assembles the grounded prompt from the selected chunks and runs a
// single non-streaming completion. Summary chunks lead the context as a
// high-level overview, transcript chunks follow as detail; each group keeps
// its rank order.
func Compose(ctx context.Context, generator llm.Client, question string, selected []RankedChunk) (string, error) {
	var summaryChunks, transcriptChunks []RankedChunk
	for _, chunk := range selected {
		if strings.Contains(chunk.SourceType, "summary") {
			summaryChunks = append(summaryChunks, chunk)
		} else {
			transcriptChunks = append(transcriptChunks, chunk)
		}
	}

	var parts []string
	if len(summaryChunks) > 0 {
		parts = append(parts, "High-level overview (from organized summary):")
		for i, chunk := range summaryChunks {
			parts = append(parts, fmt.Sprintf("Overview %d:\n%s", i+1, chunk.Text))
		}
	}
	if len(transcriptChunks) > 0 {
		if len(summaryChunks) > 0 {
			parts = append(parts, "\nDetailed information (from transcript):")
		}
		for i, chunk := range transcriptChunks {
			parts = append(parts, fmt.Sprintf("Detail %d:\n%s", i+1, chunk.Text))
		}
	}
	contextBlock := strings.Join(parts, "\n\n")

	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nRelevant content from transcript:\n")
	sb.WriteString(contextBlock)
	sb.WriteString("\n\nAnswer (remember to be clear and structured, especially for equations and techniques):")

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: groundingPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	}

	answer, err := generator.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}
