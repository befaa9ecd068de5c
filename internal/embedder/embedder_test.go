package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestOllamaEmbedder_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %s, want /api/embed", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("model = %s, want nomic-embed-text", req.Model)
		}
		out := ollamaEmbedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range req.Input {
			out.Embeddings[i] = []float32{float32(i), 1}
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})
	got, err := emb.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Embed() returned %d vectors, want 2", len(got))
	}
	if got[1][0] != 1 {
		t.Errorf("got[1][0] = %v, want 1", got[1][0])
	}
}

func TestOllamaEmbedder_EmbedServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Error: "model not found"})
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "missing"})
	if _, err := emb.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("Embed() expected error from failing server")
	}
}

func TestOllamaEmbedder_EmbedEmptyBatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty batch must not hit the server")
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})
	got, err := emb.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Embed() returned %d vectors, want 0", len(got))
	}
}

func TestOpenAIEmbedder_EmbedSortsByIndex(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", got)
		}
		// Return data deliberately out of order.
		w.Write([]byte(`{"data":[` +
			`{"embedding":[2,2],"index":1},` +
			`{"embedding":[1,1],"index":0}` +
			`]}`))
	}))
	defer srv.Close()

	emb := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "text-embedding-3-small",
	})
	got, err := emb.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if got[0][0] != 1 || got[1][0] != 2 {
		t.Fatalf("Embed() did not reorder by index: %v", got)
	}
}

func TestOpenAIEmbedder_EmbedCountMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"embedding":[1],"index":0}]}`))
	}))
	defer srv.Close()

	emb := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	if _, err := emb.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("Embed() expected error for embedding count mismatch")
	}
}

func TestNew_BackendSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default is ollama", cfg: Config{}},
		{name: "explicit ollama", cfg: Config{Backend: "ollama"}},
		{name: "openai with key", cfg: Config{Backend: "openai", APIKey: "sk-test"}},
		{name: "openai without key", cfg: Config{Backend: "openai"}, wantErr: true},
		{name: "azure without endpoint", cfg: Config{Backend: "azure", APIKey: "k"}, wantErr: true},
		{name: "azure complete", cfg: Config{Backend: "azure", APIKey: "k", Endpoint: "https://res.openai.azure.com"}},
		{name: "unknown backend", cfg: Config{Backend: "bedrock"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type countingEmbedder struct {
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	return make([][]float32, len(texts)), nil
}

func TestRateLimited_ThrottlesCalls(t *testing.T) {
	t.Parallel()

	inner := &countingEmbedder{}
	// 20 rps, burst 1: three calls need at least ~100ms.
	limited := NewRateLimited(inner, 20, 1)

	start := time.Now()
	for range 3 {
		if _, err := limited.Embed(context.Background(), []string{"x"}); err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
	}
	elapsed := time.Since(start)

	if inner.calls.Load() != 3 {
		t.Fatalf("inner calls = %d, want 3", inner.calls.Load())
	}
	if elapsed < 90*time.Millisecond {
		t.Fatalf("three calls completed in %v, expected throttling to ~100ms", elapsed)
	}
}

func TestRateLimited_CancelledContext(t *testing.T) {
	t.Parallel()

	limited := NewRateLimited(&countingEmbedder{}, 0.001, 1)
	// Drain the single burst token.
	if _, err := limited.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := limited.Embed(ctx, []string{"y"}); err == nil {
		t.Fatal("Embed() expected error from cancelled context")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "ollama needs nothing", cfg: Config{Backend: "ollama"}},
		{name: "openai missing key", cfg: Config{Backend: "openai"}, wantErr: true},
		{name: "openai with key", cfg: Config{Backend: "openai", APIKey: "sk-x"}},
		{name: "chat model warns but passes", cfg: Config{Backend: "ollama", Model: "llama3.1"}},
		{name: "unknown backend", cfg: Config{Backend: "vertex"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLooksLikeChatModel(t *testing.T) {
	t.Parallel()

	chat := []string{"gpt-4o", "llama3.1:8b", "Mistral-7B", "claude-opus"}
	for _, m := range chat {
		if !looksLikeChatModel(m) {
			t.Errorf("looksLikeChatModel(%q) = false, want true", m)
		}
	}
	embedding := []string{"nomic-embed-text", "text-embedding-3-small", "bge-m3"}
	for _, m := range embedding {
		if looksLikeChatModel(m) {
			t.Errorf("looksLikeChatModel(%q) = true, want false", m)
		}
	}
}
