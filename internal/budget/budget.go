// Package budget provides token budget estimation and context trimming for
// answer generation. Because askdocs supports multiple LLM backends with
// different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (prose). This deliberately
// under-estimates token counts to leave headroom for model-specific overhead.
package budget

import (
	"github.com/askdocs/askdocs-go/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English prose; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default budget for retrieved context in
	// the answer prompt. Conservative enough to fit within 8k-context models
	// while leaving room for the question and the output.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// FitResults keeps retrieval results, in order, until the estimated token
// budget is exhausted. Results arrive sorted by relevance, so the dropped
// tail is always the least relevant. The first result is kept even when it
// alone exceeds the budget, so the answer is never generated from nothing.
func FitResults(results []rag.Result, maxTokens int) []rag.Result {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	total := 0
	for i, r := range results {
		// Per-section overhead for the header line FormatContext adds.
		cost := 4 + Estimate(r.Document.Name) + Estimate(r.Chunk.Text)
		if total+cost > maxTokens && i > 0 {
			return results[:i]
		}
		total += cost
	}
	return results
}
