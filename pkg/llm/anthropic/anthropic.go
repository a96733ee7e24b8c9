// Package anthropic implements llm.Responder using the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jxucoder/vibecode/pkg/llm"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"
	EnvAPIKey      = "ANTHROPIC_API_KEY"
	apiVersion     = "2023-06-01"
)

// Models maps complexity tiers to Anthropic model ids.
var Models = llm.ModelMap{
	Low:    "claude-haiku-4-5",
	Medium: "claude-sonnet-4-5",
	High:   "claude-opus-4-5",
}

// Client implements llm.Responder using the Anthropic Messages API.
type Client struct {
	apiKey    string
	baseURL   string
	maxTokens int
	client    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root, e.g. a test server.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithMaxTokens caps the length of each reply.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// New creates a client for the Anthropic API.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:    apiKey,
		baseURL:   DefaultBaseURL,
		maxTokens: 4096,
		client:    &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromEnv creates a client using the key in ANTHROPIC_API_KEY.
func FromEnv(opts ...Option) (*Client, error) {
	key := os.Getenv(EnvAPIKey)
	if key == "" {
		return nil, fmt.Errorf("reading %s from environment: %w", EnvAPIKey, llm.ErrMissingCredential)
	}
	return New(key, opts...), nil
}

// Respond sends instructions as the system prompt and input as the single
// user message, returning the first text block of the reply.
func (c *Client) Respond(ctx context.Context, complexity llm.Complexity, instructions, input string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("anthropic: %w", llm.ErrMissingCredential)
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	reqBody := map[string]any{
		"model":      Models.Model(complexity),
		"max_tokens": c.maxTokens,
		"system":     instructions,
		"messages": []map[string]string{
			{"role": "user", "content": input},
		},
	}
	err := doJSONRoundTrip(ctx, c.client, http.MethodPost, c.baseURL+"/messages",
		map[string]string{
			"Content-Type":      "application/json",
			"x-api-key":         c.apiKey,
			"anthropic-version": apiVersion,
		},
		reqBody, &result)
	if err != nil {
		return "", fmt.Errorf("anthropic API: %w", err)
	}

	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", &llm.ModelOutputError{Reason: "no text content in response"}
}

func doJSONRoundTrip(
	ctx context.Context,
	client *http.Client,
	method, url string,
	headers map[string]string,
	reqBody any,
	respBody any,
) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return &llm.APIError{Err: fmt.Errorf("encoding request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(jsonBody))
	if err != nil {
		return &llm.APIError{Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &llm.APIError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &llm.APIError{Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &llm.APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return &llm.APIError{Err: fmt.Errorf("parsing response: %w", err)}
	}
	return nil
}
