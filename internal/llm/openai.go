package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const openaiDefaultModel = "gpt-4.1"

// OpenAIProvider calls the chat completions API, or any compatible gateway via BaseURL
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient(config)

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable lists models, the cheapest authenticated call
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.ListModels(ctx); err != nil {
		slog.Warn("llm: openai availability check failed", "error", err)
		return false
	}
	return true
}

// Judge runs one chat completion: catalog as system message, word as user message
func (p *OpenAIProvider) Judge(ctx context.Context, req JudgeRequest) (*JudgeResponse, error) {
	model := pick(req.Model, p.config.Model, openaiDefaultModel)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Word},
		},
		MaxTokens:   pick(req.MaxTokens, p.config.MaxTokens),
		Temperature: p.config.Temperature,
	})
	if err != nil {
		return nil, oracleError(p.Name(), openaiStatusError(err))
	}
	if len(resp.Choices) == 0 {
		return nil, oracleError(p.Name(), fmt.Errorf("no choices in response"))
	}

	return &JudgeResponse{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:      pick(resp.Model, model),
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// openaiStatusError maps SDK API errors onto StatusError, keeping the SDK error in the chain
func openaiStatusError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return fmt.Errorf("%w: %w", &StatusError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return fmt.Errorf("%w: %w", &StatusError{StatusCode: reqErr.HTTPStatusCode, Message: http.StatusText(reqErr.HTTPStatusCode)}, err)
	}
	return err
}
