// Package openai is a minimal client for the chat completions API. It covers
// exactly what bulk collection needs: one synchronous completion per call,
// per-call credentials so shards can use different keys, and error
// classification that separates bad responses from dead keys.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-3.5-turbo"

	// DefaultTimeout bounds a single completion call. Long prompts with big
	// completions can take minutes, so this is deliberately generous.
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the completions client.
type Config struct {
	// BaseURL is the API endpoint (default: https://api.openai.com/v1).
	// Point this at any OpenAI-compatible server.
	BaseURL string

	// Model is the model name sent with each request (default: gpt-3.5-turbo)
	Model string

	// Timeout bounds each completion call (default: 120s, 0 means default)
	Timeout time.Duration

	// Settings are extra request parameters merged into each request body,
	// e.g. temperature or top_p. A max_tokens of -1 means "no cap" and is
	// dropped from the request so the API uses the maximum available.
	Settings map[string]any
}

// Client calls the chat completions endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	settings   map[string]any
}

// NewClient creates a completions client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		settings:   cfg.Settings,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete requests a single chat completion for prompt using apiKey.
// The returned error is either a *RecoverableError (record and move on),
// context cancellation (also recoverable), or fatal for the shard.
func (c *Client) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	body := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}
	for k, v := range c.settings {
		if k == "max_tokens" && isUncapped(v) {
			// -1 means "maximum available": omit the cap entirely.
			continue
		}
		body[k] = v
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", parseAPIError(resp.StatusCode, respBody)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &RecoverableError{Reason: fmt.Sprintf("malformed response body: %v", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &RecoverableError{Reason: "response contained no choices"}
	}

	content := parsed.Choices[0].Message.Content
	if content == "" {
		return "", &RecoverableError{Reason: "response contained empty content"}
	}
	return content, nil
}

// isUncapped reports whether a max_tokens setting is the -1 sentinel.
// The value arrives as int from YAML or float64 from JSON.
func isUncapped(v any) bool {
	switch n := v.(type) {
	case int:
		return n == -1
	case int64:
		return n == -1
	case float64:
		return n == -1
	}
	return false
}

// parseAPIError extracts error details from the API's JSON error format.
func parseAPIError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return &APIError{
			StatusCode: statusCode,
			Type:       errResp.Error.Type,
			Code:       errResp.Error.Code,
			Message:    errResp.Error.Message,
		}
	}

	return &APIError{
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}
