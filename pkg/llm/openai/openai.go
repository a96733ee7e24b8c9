// Package openai implements llm.Responder using the OpenAI Responses API.
package openai

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
	// DefaultBaseURL is the public OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	// EnvAPIKey is the environment variable holding the bearer token.
	EnvAPIKey = "OPENAI_API_KEY"
)

// Models maps complexity tiers to OpenAI model ids.
var Models = llm.ModelMap{
	Low:    "gpt-5-nano",
	Medium: "gpt-5-mini",
	High:   "gpt-5.2",
}

// Client implements llm.Responder using the OpenAI Responses API.
type Client struct {
	apiKey  string
	baseURL string
	effort  string
	client  *http.Client
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

// WithReasoningEffort sets the reasoning effort sent with every request.
func WithReasoningEffort(effort string) Option {
	return func(c *Client) {
		if effort != "" {
			c.effort = effort
		}
	}
}

// New creates a client for the OpenAI API.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		effort:  "low",
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromEnv creates a client using the key in OPENAI_API_KEY.
func FromEnv(opts ...Option) (*Client, error) {
	key := os.Getenv(EnvAPIKey)
	if key == "" {
		return nil, fmt.Errorf("reading %s from environment: %w", EnvAPIKey, llm.ErrMissingCredential)
	}
	return New(key, opts...), nil
}

// Request is the body posted to /responses.
type Request struct {
	Model        string    `json:"model"`
	Instructions string    `json:"instructions"`
	Input        string    `json:"input"`
	Reasoning    Reasoning `json:"reasoning"`
}

// Reasoning controls how much effort reasoning models spend.
type Reasoning struct {
	Effort string `json:"effort"`
}

// Response is the subset of the Responses API reply vibecode reads.
type Response struct {
	Output []Output `json:"output"`
}

// Output is one item of the response. Only "message" items carry text.
type Output struct {
	Type    string    `json:"type"`
	Content []Content `json:"content,omitempty"`
}

// Content is one block of a message item.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// FirstText returns the text of the first output_text block inside a
// message item. Reasoning items and unknown types are skipped.
func (r *Response) FirstText() (string, bool) {
	for _, out := range r.Output {
		if out.Type != "message" {
			continue
		}
		for _, block := range out.Content {
			if block.Type == "output_text" {
				return block.Text, true
			}
		}
	}
	return "", false
}

// Respond posts one request to /responses and returns the first
// output_text block of the reply verbatim.
func (c *Client) Respond(ctx context.Context, complexity llm.Complexity, instructions, input string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("openai: %w", llm.ErrMissingCredential)
	}

	reqBody := Request{
		Model:        Models.Model(complexity),
		Instructions: instructions,
		Input:        input,
		Reasoning:    Reasoning{Effort: c.effort},
	}
	var result Response
	err := doJSONRoundTrip(ctx, c.client, http.MethodPost, c.baseURL+"/responses",
		map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + c.apiKey,
		},
		reqBody, &result)
	if err != nil {
		return "", fmt.Errorf("openai API: %w", err)
	}

	text, ok := result.FirstText()
	if !ok {
		return "", &llm.ModelOutputError{Reason: "no text found in response"}
	}
	return text, nil
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
