package embedder

import (
	"fmt"
	"log/slog"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat models
// which are not suitable for embedding. A match triggers a startup warning so
// the operator can spot the misconfiguration before indexing anything.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"phi-",
	"phi3",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
	"vicuna",
	"falcon",
}

// looksLikeChatModel returns true when the model name resembles a known chat
// model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// Validate is a pre-flight check of the embedding configuration. It returns
// an error for configurations that cannot work (missing credentials or
// endpoint) and logs a warning when the model name looks like a chat model,
// so operators get a clear message at startup instead of a cryptic failure
// on the first embed call.
func Validate(cfg Config, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	switch cfg.Backend {
	case "", "ollama":
		// No credentials needed.
	case "openai":
		if cfg.APIKey == "" {
			return fmt.Errorf("embedder: openai backend configured without an API key")
		}
	case "azure":
		if cfg.APIKey == "" {
			return fmt.Errorf("embedder: azure backend configured without an API key")
		}
		if cfg.Endpoint == "" {
			return fmt.Errorf("embedder: azure backend configured without an endpoint")
		}
	default:
		return fmt.Errorf("embedder: unknown backend %q (valid: ollama, openai, azure)", cfg.Backend)
	}

	if cfg.Model != "" && looksLikeChatModel(cfg.Model) {
		log.Warn("embedding model looks like a chat model, not an embedding model",
			slog.String("model", cfg.Model),
			slog.String("hint", "use a dedicated embedding model e.g. nomic-embed-text, text-embedding-3-small"),
		)
	}
	return nil
}
