package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/wordrules/internal/util"
)

// StatusError is a non-2xx reply from a provider API
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether the provider asked the caller to back off or try later
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// apiClient is the JSON-over-HTTP plumbing for providers called without an SDK
type apiClient struct {
	baseURL string
	header  http.Header
	http    *http.Client

	// errorMessage pulls the provider's message out of an error body; "" falls back to the raw body
	errorMessage func(body []byte) string
}

func newAPIClient(config Config, defaultBaseURL string, header http.Header, errorMessage func([]byte) string) *apiClient {
	if header == nil {
		header = http.Header{}
	}
	return &apiClient{
		baseURL:      strings.TrimSuffix(pick(config.BaseURL, defaultBaseURL), "/"),
		header:       header,
		http:         newHTTPClient(config),
		errorMessage: errorMessage,
	}
}

// newHTTPClient applies the configured timeout and proxies
func newHTTPClient(config Config) *http.Client {
	return &http.Client{
		Timeout: time.Duration(config.Timeout) * time.Second,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}
}

// do sends in as the JSON body (nil for none) and decodes a 200 reply into out (nil to discard)
func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if c.errorMessage != nil {
			msg = c.errorMessage(data)
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: pick(msg, strings.TrimSpace(string(data)))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
