// Package llm defines the Responder interface that vibecode uses to turn a
// prompt into source text, along with the complexity tiers and the error
// taxonomy shared by every provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Responder sends instructions plus input to a model and returns the
// generated text. Implementations make exactly one outbound call per
// Respond and never retry.
type Responder interface {
	Respond(ctx context.Context, c Complexity, instructions, input string) (string, error)
}

// Complexity is a caller-selected hint that picks the model tier.
// The zero value is Low.
type Complexity int

const (
	Low Complexity = iota
	Medium
	High
)

// ParseComplexity accepts "low", "medium" or "high" in any case.
func ParseComplexity(s string) (Complexity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	}
	return Low, fmt.Errorf("unknown complexity %q (want low, medium or high)", s)
}

func (c Complexity) String() string {
	switch c {
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "low"
	}
}

// ModelMap maps every tier to a provider model id.
type ModelMap struct {
	Low    string
	Medium string
	High   string
}

// Model returns the model id for c. Values outside the known tiers fall
// back to Low so the mapping stays total.
func (m ModelMap) Model(c Complexity) string {
	switch c {
	case Medium:
		return m.Medium
	case High:
		return m.High
	default:
		return m.Low
	}
}

// ErrMissingCredential is returned when no API key is configured. It is
// reported before any network call is attempted.
var ErrMissingCredential = errors.New("missing API credential")

// APIError covers transport failures and non-success responses from the
// remote service. StatusCode is 0 when the request never completed.
type APIError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("API usage error: status %d: %s", e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("API usage error: %v", e.Err)
	default:
		return "API usage error"
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// ModelOutputError means the service answered successfully but produced
// no usable text.
type ModelOutputError struct {
	Reason string
}

func (e *ModelOutputError) Error() string {
	return "received invalid output from model: " + e.Reason
}

// IsAPIError reports whether err is, or wraps, an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsModelOutputError reports whether err is, or wraps, a *ModelOutputError.
func IsModelOutputError(err error) bool {
	var outErr *ModelOutputError
	return errors.As(err, &outErr)
}
