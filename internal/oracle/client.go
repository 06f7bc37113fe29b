// Package oracle decides which intents idle citizens pursue. The decision
// itself comes from an LLM; the engine only sees well-formed intents. All
// calls run on a bounded worker pool so failures and results are observable
// instead of fire-and-forget.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"rialto/internal/config"
	"rialto/internal/model"
)

const (
	messagesURL = "https://api.anthropic.com/v1/messages"
	apiVersion  = "2023-06-01"
)

// Client talks to the Anthropic Messages API. Model, token budget, and the
// per-minute call ceiling come from config; the key from the environment.
type Client struct {
	apiKey string
	cfg    config.Oracle
	url    string
	http   *http.Client

	mu     sync.Mutex
	window time.Time
	calls  int
}

// NewClient creates an API client. Returns nil if apiKey is empty, which
// disables the oracle entirely.
func NewClient(apiKey string, cfg config.Oracle) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey: apiKey,
		cfg:    cfg,
		url:    messagesURL,
		http:   &http.Client{Timeout: cfg.Timeout()},
	}
}

// Enabled reports whether the client can make calls.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// allow enforces the per-minute call ceiling.
func (c *Client) allow() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.After(c.window) {
		c.calls = 0
		c.window = now.Add(time.Minute)
	}
	if c.calls >= c.cfg.RequestsPerMinute {
		return fmt.Errorf("%w: oracle rate limit reached (%d calls/min)",
			model.ErrExternalUnavailable, c.cfg.RequestsPerMinute)
	}
	c.calls++
	return nil
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string     `json:"model"`
	MaxTokens int        `json:"max_tokens"`
	System    string     `json:"system,omitempty"`
	Messages  []chatTurn `json:"messages"`
}

type completionResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends one prompt and returns the response text. Transport and
// upstream failures come back as ErrExternalUnavailable so callers can fold
// them into the engine's error handling.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("%w: oracle client not configured", model.ErrExternalUnavailable)
	}
	if err := c.allow(); err != nil {
		return "", err
	}

	payload, err := json.Marshal(completionRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    system,
		Messages:  []chatTurn{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: oracle call: %v", model.ErrExternalUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read oracle response: %v", model.ErrExternalUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: oracle returned %d: %s",
			model.ErrExternalUnavailable, resp.StatusCode, string(body))
	}

	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("unmarshal oracle response: %w", err)
	}
	if len(out.Content) == 0 {
		return "", fmt.Errorf("%w: oracle returned empty content", model.ErrExternalUnavailable)
	}

	slog.Debug("oracle call",
		"model", c.cfg.Model,
		"input_tokens", out.Usage.InputTokens,
		"output_tokens", out.Usage.OutputTokens,
	)
	return out.Content[0].Text, nil
}
