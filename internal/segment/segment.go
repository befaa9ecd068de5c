// Package segment splits raw extracted text into bounded, overlapping chunks
// suitable for embedding. Splitting prefers paragraph boundaries; paragraphs
// longer than the chunk size are sliced into fixed windows that share a
// configurable overlap. The package is pure — no I/O, no state.
package segment

import "strings"

// Default chunking parameters, tuned for embedding models with a few
// thousand tokens of context.
const (
	// DefaultMaxSize is the default maximum number of characters per chunk.
	DefaultMaxSize = 1000
	// DefaultOverlap is the default number of characters shared between
	// consecutive windows of an oversized paragraph.
	DefaultOverlap = 200
)

// Segment splits text into an ordered sequence of non-empty chunks of at most
// maxSize characters. A text that already fits in maxSize is returned as a
// single chunk, unmodified. Longer texts are split on newline paragraph
// boundaries; adjacent paragraphs are packed together while they fit, and a
// paragraph longer than maxSize is sliced into windows that advance by
// maxSize-overlap characters.
//
// The window always advances by at least one character, and the number of
// slicing iterations is bounded, so Segment terminates for every input —
// including overlap >= maxSize. The chunk's position in the returned slice is
// its ordinal.
func Segment(text string, maxSize, overlap int) []string {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if len(text) == 0 {
		return nil
	}
	if len(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, para := range strings.Split(text, "\n") {
		switch {
		case len(para) > maxSize:
			// Oversized paragraph: emit what we have, then slice it.
			flush()
			chunks = append(chunks, slice(para, maxSize, overlap)...)

		case current.Len()+len(para)+1 > maxSize:
			flush()
			current.WriteString(para)

		default:
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(para)
		}
	}
	flush()

	return chunks
}

// slice cuts an oversized paragraph into windows of maxSize characters. Each
// window starts overlap characters before the previous one ended, so the
// effective stride is maxSize-overlap, clamped to at least 1 to guarantee
// forward progress for pathological overlap settings. Iterations are bounded;
// if the bound is ever exceeded the remainder is emitted as one final chunk.
func slice(text string, maxSize, overlap int) []string {
	stride := maxSize - overlap
	if stride < 1 {
		stride = 1
	}

	// Generous bound: a healthy loop needs len/stride+1 windows.
	maxIter := 2*(len(text)/stride) + 2

	var chunks []string
	start := 0
	for i := 0; start < len(text); i++ {
		if i >= maxIter {
			chunks = append(chunks, text[start:])
			break
		}
		end := start + maxSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		chunks = append(chunks, text[start:end])
		start += stride
	}
	return chunks
}

// EstimateTokens returns a cheap whitespace-based token count approximation
// for a chunk of text. It is stored alongside each chunk so callers can
// budget prompt context without re-tokenising.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}
