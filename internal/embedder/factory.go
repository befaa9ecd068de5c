package embedder

import (
	"fmt"

	"github.com/askdocs/askdocs-go/internal/rag"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	// Other Ollama models may differ — set Config.Dimensions to override.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
)

// Config holds the resolved embedding settings. The config layer fills it
// from the YAML file and environment; this package only constructs from it.
type Config struct {
	// Backend selects the implementation: "ollama", "openai", or "azure".
	Backend string
	// Model is the embedding model name; empty uses the backend default.
	Model string
	// Endpoint is the backend base URL; empty uses the backend default.
	Endpoint string
	// APIKey authenticates openai and azure requests. Ollama needs none.
	APIKey string
	// Dimensions is the requested vector length (0 = model default).
	Dimensions int
	// APIVersion is the Azure OpenAI API version; ignored elsewhere.
	APIVersion string
	// RequestsPerSecond throttles embed calls when > 0.
	RequestsPerSecond float64
	// Burst is the rate limiter burst size; defaults to 1 when throttling.
	Burst int
}

// DefaultDimensions returns the default embedding vector size for the given
// backend name, used to sanity-check index state before the first embed call.
func DefaultDimensions(backend string) int {
	switch backend {
	case "ollama":
		return defaultOllamaDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// New constructs a rag.Embedder for the configured backend. When
// RequestsPerSecond is set the embedder is wrapped in a rate limiter so
// bulk indexing cannot flood the backend.
func New(cfg Config) (rag.Embedder, error) {
	base, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		return NewRateLimited(base, cfg.RequestsPerSecond, burst), nil
	}
	return base, nil
}

func newBackend(cfg Config) (rag.Embedder, error) {
	switch cfg.Backend {
	case "", "ollama":
		host := cfg.Endpoint
		if host == "" {
			host = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOllamaModel
		}
		return NewOllamaEmbedder(&OllamaConfig{
			Host:  host,
			Model: model,
		}), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: openai backend requires an API key")
		}
		baseURL := cfg.Endpoint
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		dims := cfg.Dimensions
		if dims == 0 {
			dims = defaultOpenAIDimensions
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: dims,
		}), nil

	case "azure":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: azure backend requires an API key")
		}
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("embedder: azure backend requires an endpoint")
		}
		apiVersion := cfg.APIVersion
		if apiVersion == "" {
			apiVersion = "2025-04-01-preview"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		dims := cfg.Dimensions
		if dims == 0 {
			dims = defaultOpenAIDimensions
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    cfg.Endpoint + "/openai",
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: dims,
			Azure:      true,
			APIVersion: apiVersion,
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid: ollama, openai, azure)", cfg.Backend)
	}
}
