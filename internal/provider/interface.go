// Package provider selects and constructs the LLM chat model used to answer
// questions over retrieved context. Supported backends: Ollama, OpenAI,
// Azure OpenAI, Google Gemini.
package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	// Model is the model name or deployment ID to use (e.g. "gpt-4o", "llama3").
	Model string

	// BaseURL overrides the default API endpoint (required for Azure).
	BaseURL string

	// APIKey is the authentication credential for the selected provider.
	// Ollama needs none.
	APIKey string

	// AzureDeployment is the Azure OpenAI deployment name (Azure only).
	AzureDeployment string

	// AzureAPIVersion is the Azure OpenAI REST API version (Azure only).
	AzureAPIVersion string

	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// Validate checks that the config carries everything its backend needs, so
// callers get a clear error at startup rather than on the first request.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOllama:
		return nil
	case BackendOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("provider: openai backend requires an API key")
		}
	case BackendAzure:
		if c.APIKey == "" {
			return fmt.Errorf("provider: azure backend requires an API key")
		}
		if c.BaseURL == "" {
			return fmt.Errorf("provider: azure backend requires an endpoint")
		}
		if c.AzureDeployment == "" {
			return fmt.Errorf("provider: azure backend requires a deployment name")
		}
	case BackendGemini:
		if c.APIKey == "" {
			return fmt.Errorf("provider: gemini backend requires an API key")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q (valid: ollama, openai, azure, gemini)", c.Backend)
	}
	return nil
}

// Factory is the interface for constructing a ChatModel from a Config.
// Implementations must be safe to call from multiple goroutines.
type Factory interface {
	// New constructs and returns a ready-to-use ChatModel for the given config.
	New(ctx context.Context, cfg *Config) (model.ToolCallingChatModel, error)
}
