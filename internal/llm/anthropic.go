package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const (
	anthropicDefaultModel   = "claude-sonnet-4-5"
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"

	// The Messages API rejects requests without max_tokens
	anthropicDefaultMaxTokens = 8000
)

// AnthropicProvider calls the Anthropic Messages API
type AnthropicProvider struct {
	api    *apiClient
	config Config
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float32            `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// text joins the text blocks of the reply
func (r *anthropicResponse) text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func anthropicErrorMessage(body []byte) string {
	var apiErr struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) != nil || apiErr.Error.Message == "" {
		return ""
	}
	return apiErr.Error.Type + " - " + apiErr.Error.Message
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}

	header := http.Header{}
	header.Set("x-api-key", config.APIKey)
	header.Set("anthropic-version", anthropicAPIVersion)

	return &AnthropicProvider{
		api:    newAPIClient(config, anthropicDefaultBaseURL, header, anthropicErrorMessage),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable sends a minimal message to verify the key and model
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	probe := anthropicRequest{
		Model:     pick(p.config.Model, anthropicDefaultModel),
		MaxTokens: 10,
		Messages:  []anthropicMessage{{Role: "user", Content: "Hi"}},
	}
	if err := p.api.do(ctx, http.MethodPost, "/v1/messages", probe, nil); err != nil {
		slog.Warn("llm: anthropic availability check failed", "error", err)
		return false
	}
	return true
}

// Judge sends the catalog as the system prompt and the word as the only user turn
func (p *AnthropicProvider) Judge(ctx context.Context, req JudgeRequest) (*JudgeResponse, error) {
	model := pick(req.Model, p.config.Model, anthropicDefaultModel)

	var resp anthropicResponse
	err := p.api.do(ctx, http.MethodPost, "/v1/messages", anthropicRequest{
		Model:       model,
		MaxTokens:   pick(req.MaxTokens, p.config.MaxTokens, anthropicDefaultMaxTokens),
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Word}},
		Temperature: p.config.Temperature,
	}, &resp)
	if err != nil {
		return nil, oracleError(p.Name(), err)
	}

	text := resp.text()
	if text == "" {
		return nil, oracleError(p.Name(), fmt.Errorf("no text content in response"))
	}

	return &JudgeResponse{
		Text:       text,
		Model:      pick(resp.Model, model),
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
