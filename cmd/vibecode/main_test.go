package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jxucoder/vibecode/pkg/llm"
	"github.com/jxucoder/vibecode/pkg/splice"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	// Flag variables are package globals; reset them between runs.
	respondComplexity, respondInstructions, respondSplice = "low", "", ""
	generateOutput, generateJobs, logLevel = "", 0, ""

	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// isolate points config and credentials at a clean temp environment.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "VIBECODE_PROVIDER", "VIBECODE_BASE_URL", "VIBECODE_LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	path := filepath.Join(t.TempDir(), "config.env")
	t.Setenv("VIBECODE_CONFIG", path)
	return path
}

func fakeOpenAI(t *testing.T, calls *atomic.Int32, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Model        string `json:"model"`
			Instructions string `json:"instructions"`
			Input        string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		reply, _ := json.Marshal(map[string]any{
			"output": []any{
				map[string]any{"type": "reasoning"},
				map[string]any{"type": "message", "content": []any{
					map[string]any{"type": "output_text", "text": text},
				}},
			},
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRespondPrintsReplyVerbatim(t *testing.T) {
	isolate(t)
	var calls atomic.Int32
	srv := fakeOpenAI(t, &calls, "Pike\n")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VIBECODE_BASE_URL", srv.URL)

	out, err := run(t, "", "respond", "-i", "Repeat the input word", "Pike")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if out != "Pike\n" {
		t.Errorf("stdout = %q, want %q", out, "Pike\n")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRespondReadsStdin(t *testing.T) {
	isolate(t)
	var calls atomic.Int32
	srv := fakeOpenAI(t, &calls, "ok")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VIBECODE_BASE_URL", srv.URL)

	out, err := run(t, "from stdin", "respond", "--complexity", "high")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if out != "ok" {
		t.Errorf("stdout = %q", out)
	}
}

func TestRespondMissingCredentialMakesNoCall(t *testing.T) {
	isolate(t)
	var calls atomic.Int32
	srv := fakeOpenAI(t, &calls, "unused")
	t.Setenv("VIBECODE_BASE_URL", srv.URL)

	_, err := run(t, "", "respond", "hello")
	if !errors.Is(err, llm.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
	if calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", calls.Load())
	}
}

func TestRespondSpliceCheck(t *testing.T) {
	isolate(t)
	var calls atomic.Int32
	srv := fakeOpenAI(t, &calls, "3 * 4")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VIBECODE_BASE_URL", srv.URL)

	out, err := run(t, "", "respond", "--splice", "lit", "Multiply 3 and 4")
	if !splice.IsParseError(err) {
		t.Fatalf("err = %v, want parse error", err)
	}
	if out != "" {
		t.Errorf("malformed code should not be printed, got %q", out)
	}
}

func TestRespondRejectsBadFlags(t *testing.T) {
	isolate(t)
	if _, err := run(t, "", "respond", "--complexity", "extreme", "x"); err == nil {
		t.Error("expected error for unknown complexity")
	}
	if _, err := run(t, "", "respond", "--splice", "struct", "x"); err == nil {
		t.Error("expected error for unknown splice kind")
	}
}

func TestGenerateCommand(t *testing.T) {
	isolate(t)
	var calls atomic.Int32
	srv := fakeOpenAI(t, &calls, "func Twice(n int) int {\n\treturn n * 2\n}")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VIBECODE_BASE_URL", srv.URL)

	dir := t.TempDir()
	in := filepath.Join(dir, "twice.go")
	src := "//go:build vibecode\n\npackage twice\n\n//vibecode:fn\nfunc Twice(n int) int {}\n"
	if err := os.WriteFile(in, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GOFILE", in)
	if _, err := run(t, "", "generate"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "twice_vibecoded.go"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	for _, want := range []string{"//go:build !vibecode", "return n * 2", "DO NOT EDIT"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("output missing %q:\n%s", want, data)
		}
	}
}

func TestGenerateWithoutInput(t *testing.T) {
	isolate(t)
	t.Setenv("GOFILE", "")
	if _, err := run(t, "", "generate"); err == nil || !strings.Contains(err.Error(), "GOFILE") {
		t.Fatalf("err = %v, want GOFILE error", err)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	path := isolate(t)

	out, err := run(t, "", "config", "set", "OPENAI_API_KEY", "sk-abcdefghijklmnop")
	if err != nil {
		t.Fatalf("config set: %v", err)
	}
	if !strings.Contains(out, "sk-a") || strings.Contains(out, "abcdefghijklmnop") {
		t.Errorf("secret should be masked: %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "sk-abcdefghijklmnop") {
		t.Errorf("config file missing key:\n%s", data)
	}

	out, err = run(t, "", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "(from config file)") {
		t.Errorf("show should report the file source:\n%s", out)
	}

	out, err = run(t, "", "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(out) != path {
		t.Errorf("path = %q, want %q", out, path)
	}
}

func TestConfigSetValidatesPrefix(t *testing.T) {
	isolate(t)
	if _, err := run(t, "", "config", "set", "ANTHROPIC_API_KEY", "nope"); err == nil {
		t.Fatal("expected prefix validation error")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"short":             "*****",
		"sk-1234567890abcd": "sk-1*********abcd",
	}
	for in, want := range tests {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
