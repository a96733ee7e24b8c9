package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jxucoder/vibecode/pkg/llm"
)

func TestRespond(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-ant-test" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != apiVersion {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "claude-opus-4-5" {
			t.Errorf("model = %v", body["model"])
		}
		if body["max_tokens"] != float64(512) {
			t.Errorf("max_tokens = %v", body["max_tokens"])
		}
		if body["system"] != "instructions" {
			t.Errorf("system = %v", body["system"])
		}
		io.WriteString(w, `{"content":[{"type":"thinking","thinking":"hm"},{"type":"text","text":"func() {}"}]}`)
	}))
	defer srv.Close()

	text, err := New("sk-ant-test", WithBaseURL(srv.URL+"/"), WithMaxTokens(512)).Respond(context.Background(), llm.High, "instructions", "input")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if text != "func() {}" {
		t.Errorf("text = %q", text)
	}
}

func TestRespondErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		isAPI   bool
		isModel bool
	}{
		{"server error", http.StatusBadGateway, "bad gateway", true, false},
		{"malformed json", http.StatusOK, "{", true, false},
		{"no text", http.StatusOK, `{"content":[]}`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := New("k", WithBaseURL(srv.URL)).Respond(context.Background(), llm.Low, "i", "x")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := llm.IsAPIError(err); got != tt.isAPI {
				t.Errorf("IsAPIError = %v, want %v (%v)", got, tt.isAPI, err)
			}
			if got := llm.IsModelOutputError(err); got != tt.isModel {
				t.Errorf("IsModelOutputError = %v, want %v (%v)", got, tt.isModel, err)
			}
		})
	}
}

func TestFromEnvMissingKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	if _, err := FromEnv(); !errors.Is(err, llm.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-ant-env")
	c, err := FromEnv(WithBaseURL("http://localhost:1/v1/"))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.apiKey != "sk-ant-env" || c.baseURL != "http://localhost:1/v1" {
		t.Errorf("client = %+v", c)
	}
	if c.maxTokens != 4096 {
		t.Errorf("maxTokens = %d, want default 4096", c.maxTokens)
	}
}

func TestRoundTripEncodingErrorIsAPIError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	var out struct{}
	err := doJSONRoundTrip(context.Background(), srv.Client(), http.MethodPost, srv.URL, nil, make(chan int), &out)
	if !llm.IsAPIError(err) {
		t.Fatalf("err = %v, want *llm.APIError", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}
