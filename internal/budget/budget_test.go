package budget

import (
	"strings"
	"testing"

	"github.com/askdocs/askdocs-go/internal/rag"
	"github.com/askdocs/askdocs-go/internal/store"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func makeResult(name string, textLen int) rag.Result {
	return rag.Result{
		Chunk:    store.Chunk{Text: strings.Repeat("x", textLen)},
		Document: store.Document{Name: name},
	}
}

func Test_FitResults_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	results := []rag.Result{
		makeResult("a.md", 100),
		makeResult("b.md", 100),
	}
	got := FitResults(results, DefaultMaxContextTokens)
	if len(got) != 2 {
		t.Errorf("want 2 results, got %d", len(got))
	}
}

func Test_FitResults_DropsLeastRelevantTail(t *testing.T) {
	t.Parallel()
	// Each result costs 4 overhead + 1 (name) + 100 (400-char text) = 105.
	results := []rag.Result{
		makeResult("a.md", 400),
		makeResult("b.md", 400),
		makeResult("c.md", 400),
	}
	got := FitResults(results, 250)
	if len(got) != 2 {
		t.Fatalf("want 2 results within budget, got %d", len(got))
	}
	if got[0].Document.Name != "a.md" || got[1].Document.Name != "b.md" {
		t.Error("trim must keep the head of the relevance-ordered list")
	}
}

func Test_FitResults_FirstResultAlwaysKept(t *testing.T) {
	t.Parallel()
	results := []rag.Result{makeResult("huge.md", 100000)}
	got := FitResults(results, 100)
	if len(got) != 1 {
		t.Fatalf("want oversized first result kept, got %d results", len(got))
	}
}

func Test_FitResults_ZeroBudgetUsesDefault(t *testing.T) {
	t.Parallel()
	results := []rag.Result{
		makeResult("a.md", 100),
		makeResult("b.md", 100),
	}
	got := FitResults(results, 0)
	if len(got) != 2 {
		t.Errorf("want 2 results with default budget, got %d", len(got))
	}
}

func Test_FitResults_Empty(t *testing.T) {
	t.Parallel()
	if got := FitResults(nil, 100); len(got) != 0 {
		t.Errorf("want empty, got %d", len(got))
	}
}
