package segment

import (
	"strings"
	"testing"
)

func TestSegment_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 50)
	chunks := Segment(text, 1000, 200)
	if len(chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("short text must be returned unmodified")
	}
}

func TestSegment_EmptyText(t *testing.T) {
	t.Parallel()

	if chunks := Segment("", 1000, 200); chunks != nil {
		t.Errorf("want nil for empty input, got %d chunks", len(chunks))
	}
}

func TestSegment_OversizedParagraphWindows(t *testing.T) {
	t.Parallel()

	// 2500 chars with no newlines: windows start at 0, 800, 1600.
	text := strings.Repeat("x", 2500)
	chunks := Segment(text, 1000, 200)

	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 1000 || len(chunks[1]) != 1000 {
		t.Errorf("want first two chunks of 1000 chars, got %d and %d", len(chunks[0]), len(chunks[1]))
	}
	if len(chunks[2]) != 900 {
		t.Errorf("want final chunk of 900 chars, got %d", len(chunks[2]))
	}
}

func TestSegment_WindowOffsets(t *testing.T) {
	t.Parallel()

	// Distinct runes let us verify exact window offsets.
	var sb strings.Builder
	for i := 0; i < 2500; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	text := sb.String()

	chunks := Segment(text, 1000, 200)
	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != text[0:1000] {
		t.Errorf("chunk 0 is not text[0:1000]")
	}
	if chunks[1] != text[800:1800] {
		t.Errorf("chunk 1 is not text[800:1800]")
	}
	if chunks[2] != text[1600:] {
		t.Errorf("chunk 2 is not text[1600:]")
	}
}

func TestSegment_ParagraphPacking(t *testing.T) {
	t.Parallel()

	paras := []string{
		strings.Repeat("a", 400),
		strings.Repeat("b", 400),
		strings.Repeat("c", 400),
	}
	text := strings.Join(paras, "\n")

	chunks := Segment(text, 1000, 200)
	if len(chunks) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(chunks))
	}
	// First chunk holds the first two paragraphs joined by the newline.
	if chunks[0] != paras[0]+"\n"+paras[1] {
		t.Errorf("chunk 0 should pack the first two paragraphs")
	}
	if chunks[1] != paras[2] {
		t.Errorf("chunk 1 should hold the third paragraph")
	}
}

func TestSegment_PathologicalOverlapTerminates(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("z", 500)

	tests := []struct {
		name    string
		maxSize int
		overlap int
	}{
		{name: "overlap equals size", maxSize: 100, overlap: 100},
		{name: "overlap exceeds size", maxSize: 100, overlap: 250},
		{name: "size one", maxSize: 1, overlap: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			chunks := Segment(text, tt.maxSize, tt.overlap)
			if len(chunks) == 0 {
				t.Fatalf("want non-empty result")
			}
			for i, c := range chunks {
				if c == "" {
					t.Fatalf("chunk %d is empty", i)
				}
			}
			// The final chunk must reach the end of the input.
			last := chunks[len(chunks)-1]
			if !strings.HasSuffix(text, last) {
				t.Errorf("last chunk does not cover the tail of the input")
			}
		})
	}
}

func TestSegment_NoEmptyChunks(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word ", 100) + "\n\n\n" + strings.Repeat("tail ", 300)
	for _, c := range Segment(text, 200, 50) {
		if c == "" {
			t.Fatal("empty chunk produced")
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "one", want: 1},
		{text: "two  words", want: 2},
		{text: "a b\nc\td ", want: 4},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
