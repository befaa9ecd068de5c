package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "askdocs.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad_AppliesYAMLToEnv(t *testing.T) {
	t.Setenv("ASKDOCS_DOCS_DIR", "")
	t.Setenv("CHUNK_MAX_SIZE", "")
	t.Setenv("EMBEDDING_PROVIDER", "")
	os.Unsetenv("ASKDOCS_DOCS_DIR")
	os.Unsetenv("CHUNK_MAX_SIZE")
	os.Unsetenv("EMBEDDING_PROVIDER")

	path := writeTestConfig(t, `
docs:
  dir: /srv/corpus
chunking:
  max_size: 800
embedding:
  provider: openai
`)

	loaded, err := Load(path, slog.Default())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded != path {
		t.Fatalf("Load() returned path %q, want %q", loaded, path)
	}
	if got := os.Getenv("ASKDOCS_DOCS_DIR"); got != "/srv/corpus" {
		t.Errorf("ASKDOCS_DOCS_DIR = %q, want /srv/corpus", got)
	}
	if got := os.Getenv("CHUNK_MAX_SIZE"); got != "800" {
		t.Errorf("CHUNK_MAX_SIZE = %q, want 800", got)
	}
	if got := os.Getenv("EMBEDDING_PROVIDER"); got != "openai" {
		t.Errorf("EMBEDDING_PROVIDER = %q, want openai", got)
	}
}

func TestLoad_EnvWinsOverYAML(t *testing.T) {
	t.Setenv("ASKDOCS_DOCS_DIR", "/from/env")

	path := writeTestConfig(t, `
docs:
  dir: /from/yaml
`)
	if _, err := Load(path, slog.Default()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := os.Getenv("ASKDOCS_DOCS_DIR"); got != "/from/env" {
		t.Errorf("ASKDOCS_DOCS_DIR = %q, want /from/env (env must win)", got)
	}
}

func TestLoad_MissingExplicitPathIsNotAnError(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), slog.Default())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded != "" {
		t.Fatalf("Load() returned path %q, want empty", loaded)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTestConfig(t, "docs: [unclosed")
	if _, err := Load(path, slog.Default()); err == nil {
		t.Fatal("Load() expected error for invalid YAML")
	}
}

func TestResolve_Defaults(t *testing.T) {
	for _, key := range []string{
		"ASKDOCS_DOCS_DIR", "ASKDOCS_DB_PATH", "ASKDOCS_INDEX_DIR",
		"CHUNK_MAX_SIZE", "CHUNK_OVERLAP", "RETRIEVAL_TOP_K",
		"RETRIEVAL_MAX_DISTANCE", "EMBEDDING_PROVIDER", "MODEL_PROVIDER",
		"EMBEDDING_API_KEY", "OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	s := Resolve()
	if s.DocsDir != "./docs" {
		t.Errorf("DocsDir = %q, want ./docs", s.DocsDir)
	}
	if s.ChunkMaxSize != DefaultChunkMaxSize || s.ChunkOverlap != DefaultChunkOverlap {
		t.Errorf("chunking = %d/%d, want %d/%d", s.ChunkMaxSize, s.ChunkOverlap, DefaultChunkMaxSize, DefaultChunkOverlap)
	}
	if s.TopK != DefaultTopK {
		t.Errorf("TopK = %d, want %d", s.TopK, DefaultTopK)
	}
	if s.MaxDistance != DefaultMaxDistance {
		t.Errorf("MaxDistance = %v, want %v", s.MaxDistance, DefaultMaxDistance)
	}
	if s.EmbeddingProvider != "ollama" {
		t.Errorf("EmbeddingProvider = %q, want ollama", s.EmbeddingProvider)
	}
	if filepath.Base(s.DBPath) != "metadata.db" {
		t.Errorf("DBPath = %q, want .../metadata.db", s.DBPath)
	}
	if filepath.Base(s.IndexDir) != "index" {
		t.Errorf("IndexDir = %q, want .../index", s.IndexDir)
	}
}

func TestResolve_DegenerateOverlapFallsBack(t *testing.T) {
	t.Setenv("CHUNK_MAX_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "150")

	s := Resolve()
	if s.ChunkMaxSize != DefaultChunkMaxSize || s.ChunkOverlap != DefaultChunkOverlap {
		t.Fatalf("chunking = %d/%d, want defaults when overlap >= max size", s.ChunkMaxSize, s.ChunkOverlap)
	}
}

func TestResolve_EmbeddingInheritsChatProvider(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "")
	os.Unsetenv("EMBEDDING_PROVIDER")
	t.Setenv("EMBEDDING_API_KEY", "")
	os.Unsetenv("EMBEDDING_API_KEY")
	t.Setenv("MODEL_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-chat")

	s := Resolve()
	if s.EmbeddingProvider != "openai" {
		t.Errorf("EmbeddingProvider = %q, want openai (inherited)", s.EmbeddingProvider)
	}
	if s.EmbeddingAPIKey != "sk-chat" {
		t.Errorf("EmbeddingAPIKey = %q, want inherited chat key", s.EmbeddingAPIKey)
	}
}

func TestResolve_ExplicitEmbeddingKeyWins(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-chat")
	t.Setenv("EMBEDDING_API_KEY", "sk-embed")

	s := Resolve()
	if s.EmbeddingAPIKey != "sk-embed" {
		t.Errorf("EmbeddingAPIKey = %q, want sk-embed", s.EmbeddingAPIKey)
	}
}
