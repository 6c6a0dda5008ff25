package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

const ollamaDefaultBaseURL = "http://localhost:11434"

// OllamaProvider calls a local Ollama server's generate endpoint
type OllamaProvider struct {
	api    *apiClient
	config Config
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

func ollamaErrorMessage(body []byte) string {
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) != nil {
		return ""
	}
	return apiErr.Error
}

// NewOllamaProvider creates a new Ollama provider; no API key is needed
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	return &OllamaProvider{
		api:    newAPIClient(config, ollamaDefaultBaseURL, nil, ollamaErrorMessage),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable lists local models to check the server is up
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	if err := p.api.do(ctx, http.MethodGet, "/api/tags", nil, nil); err != nil {
		slog.Warn("llm: ollama availability check failed", "base_url", p.api.baseURL, "error", err)
		return false
	}
	return true
}

// Judge runs one non-streaming generation
func (p *OllamaProvider) Judge(ctx context.Context, req JudgeRequest) (*JudgeResponse, error) {
	model := pick(req.Model, p.config.Model)
	if model == "" {
		return nil, errors.New("ollama model must be specified (e.g., qwen2.5:14b, llama3.1:8b)")
	}

	var resp ollamaResponse
	err := p.api.do(ctx, http.MethodPost, "/api/generate", ollamaRequest{
		Model:  model,
		System: req.SystemPrompt,
		Prompt: req.Word,
		Options: ollamaOptions{
			Temperature: p.config.Temperature,
			NumPredict:  pick(req.MaxTokens, p.config.MaxTokens),
		},
	}, &resp)
	if err != nil {
		return nil, oracleError(p.Name(), err)
	}

	text := strings.TrimSpace(resp.Response)

	// Some models report zero counts; estimate at ~4 characters per token
	tokens := resp.PromptEvalCount + resp.EvalCount
	if tokens == 0 {
		tokens = (len(req.SystemPrompt) + len(req.Word) + len(text)) / 4
	}

	return &JudgeResponse{
		Text:       text,
		Model:      pick(resp.Model, model),
		TokensUsed: tokens,
	}, nil
}
