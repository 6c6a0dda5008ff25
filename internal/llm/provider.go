package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/wordrules/internal/model"
)

// ErrOracle wraps every transport or API failure from a provider
var ErrOracle = errors.New("oracle request failed")

// Provider defines the interface for oracle backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Judge sends the rule catalog as system instruction and the word as the user message
	Judge(ctx context.Context, req JudgeRequest) (*JudgeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// JudgeRequest is one oracle call
type JudgeRequest struct {
	// SystemPrompt embeds the rule catalog and the reply format
	SystemPrompt string

	// Word is sent verbatim as the user message
	Word string

	// Model overrides the configured model
	Model string

	// MaxTokens overrides the configured response limit
	MaxTokens int
}

// JudgeResponse is the raw oracle reply
type JudgeResponse struct {
	// Text is the unstructured reply, parsed downstream
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds oracle provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "gemini"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic/Gemini
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout for API requests in seconds; 0 means no per-request deadline
	Timeout int

	// MaxTokens for response generation
	MaxTokens int

	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(m model.LLMConfig) Config {
	return Config{
		Provider:    m.Provider,
		Model:       m.Model,
		APIKey:      m.APIKey,
		BaseURL:     m.BaseURL,
		Timeout:     m.Timeout,
		MaxTokens:   m.MaxTokens,
		Temperature: m.Temperature,
		HTTPProxy:   m.HTTPProxy,
		HTTPSProxy:  m.HTTPSProxy,
		NoProxy:     m.NoProxy,
	}
}

func oracleError(provider string, err error) error {
	return fmt.Errorf("%s: %w: %w", provider, ErrOracle, err)
}

// pick returns the first non-zero value
func pick[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
