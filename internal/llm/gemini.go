package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.5-flash"

// GeminiProvider implements the Provider interface for Google Gemini models
type GeminiProvider struct {
	client *genai.Client
	config Config
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
		// Deadlines come from the Judge context so the SDK client carries none
		HTTPClient: newHTTPClient(Config{HTTPProxy: config.HTTPProxy, HTTPSProxy: config.HTTPSProxy, NoProxy: config.NoProxy}),
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiProvider{client: client, config: config}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks if the provider is properly configured
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.Models.List(ctx, nil); err != nil {
		slog.Warn("llm: Gemini API check failed", "error", err)
		return false
	}
	return true
}

// Judge runs one GenerateContent call with the catalog as system instruction
func (p *GeminiProvider) Judge(ctx context.Context, req JudgeRequest) (*JudgeResponse, error) {
	model := pick(req.Model, p.config.Model, geminiDefaultModel)

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.config.Timeout)*time.Second)
		defer cancel()
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(p.config.Temperature),
	}
	if maxTokens := pick(req.MaxTokens, p.config.MaxTokens); maxTokens > 0 {
		genConfig.MaxOutputTokens = int32(maxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(req.Word), genConfig)
	if err != nil {
		return nil, oracleError(p.Name(), err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, oracleError(p.Name(), fmt.Errorf("empty response"))
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &JudgeResponse{
		Text:       text,
		Model:      pick(resp.ModelVersion, model),
		TokensUsed: tokens,
	}, nil
}
