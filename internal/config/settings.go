package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Built-in defaults applied when neither the YAML file nor the environment
// provides a value.
const (
	DefaultChunkMaxSize = 1000
	DefaultChunkOverlap = 200
	DefaultTopK         = 5
	DefaultMaxDistance  = 1.2
)

// Settings is the fully resolved runtime configuration. It is computed once
// after Load and passed explicitly to the components that need it.
type Settings struct {
	// DocsDir is the directory scanned for documents.
	DocsDir string
	// DBPath is the SQLite metadata database path.
	DBPath string
	// IndexDir is the directory holding the vector index file pair.
	IndexDir string

	// ChunkMaxSize is the maximum chunk size in characters.
	ChunkMaxSize int
	// ChunkOverlap is the overlap for oversized-paragraph windows.
	ChunkOverlap int

	// TopK is the default number of retrieval results.
	TopK int
	// MaxDistance is the retrieval distance cutoff; <= 0 disables it.
	MaxDistance float64

	// EmbeddingProvider selects the embedding backend.
	EmbeddingProvider string
	// EmbeddingModel is the embedding model name.
	EmbeddingModel string
	// EmbeddingDimensions overrides the vector size (0 = backend default).
	EmbeddingDimensions int
	// EmbeddingAPIKey authenticates openai and azure embedding calls.
	EmbeddingAPIKey string
	// EmbeddingEndpoint overrides the backend base URL.
	EmbeddingEndpoint string
	// EmbeddingRPS throttles embed calls during bulk indexing (0 = off).
	EmbeddingRPS float64
}

// Resolve reads the environment (already layered over the YAML file by Load)
// into a Settings value with defaults filled in.
func Resolve() Settings {
	s := Settings{
		DocsDir:             getEnvOrDefault("ASKDOCS_DOCS_DIR", "./docs"),
		DBPath:              os.Getenv("ASKDOCS_DB_PATH"),
		IndexDir:            os.Getenv("ASKDOCS_INDEX_DIR"),
		ChunkMaxSize:        getEnvInt("CHUNK_MAX_SIZE", DefaultChunkMaxSize),
		ChunkOverlap:        getEnvInt("CHUNK_OVERLAP", DefaultChunkOverlap),
		TopK:                getEnvInt("RETRIEVAL_TOP_K", DefaultTopK),
		MaxDistance:         getEnvFloat("RETRIEVAL_MAX_DISTANCE", DefaultMaxDistance),
		EmbeddingProvider:   resolveEmbeddingProvider(),
		EmbeddingModel:      os.Getenv("EMBEDDING_MODEL"),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		EmbeddingAPIKey:     resolveEmbeddingKey(),
		EmbeddingEndpoint:   os.Getenv("EMBEDDING_ENDPOINT"),
		EmbeddingRPS:        getEnvFloat("EMBEDDING_RPS", 0),
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if s.DBPath == "" {
		s.DBPath = filepath.Join(home, ".askdocs", "metadata.db")
	}
	if s.IndexDir == "" {
		s.IndexDir = filepath.Join(home, ".askdocs", "index")
	}

	if s.ChunkOverlap >= s.ChunkMaxSize {
		// A degenerate overlap would stall the sliding window; fall back to
		// the defaults rather than failing a reload mid-run.
		s.ChunkMaxSize = DefaultChunkMaxSize
		s.ChunkOverlap = DefaultChunkOverlap
	}
	return s
}

// resolveEmbeddingProvider falls back to the chat provider when no explicit
// embedding provider is configured, then to ollama.
func resolveEmbeddingProvider() string {
	if v := os.Getenv("EMBEDDING_PROVIDER"); v != "" {
		return v
	}
	return getEnvOrDefault("MODEL_PROVIDER", "ollama")
}

// resolveEmbeddingKey inherits the chat provider's credentials when no
// embedding-specific key is set.
func resolveEmbeddingKey() string {
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		return v
	}
	switch resolveEmbeddingProvider() {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "azure":
		return os.Getenv("AZURE_OPENAI_API_KEY")
	}
	return ""
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat returns the float value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
