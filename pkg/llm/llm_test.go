package llm

import (
	"errors"
	"fmt"
	"testing"
)

func TestModelMapIsTotal(t *testing.T) {
	m := ModelMap{Low: "l", Medium: "m", High: "h"}
	cases := map[Complexity]string{
		Low:            "l",
		Medium:         "m",
		High:           "h",
		Complexity(42): "l",
		Complexity(-1): "l",
	}
	for c, want := range cases {
		if got := m.Model(c); got != want {
			t.Errorf("Model(%d) = %q, want %q", c, got, want)
		}
	}
}

func TestParseComplexity(t *testing.T) {
	tests := []struct {
		in      string
		want    Complexity
		wantErr bool
	}{
		{"low", Low, false},
		{"Medium", Medium, false},
		{" HIGH ", High, false},
		{"extreme", Low, true},
		{"", Low, true},
	}
	for _, tt := range tests {
		got, err := ParseComplexity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseComplexity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseComplexity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestComplexityStringRoundTrip(t *testing.T) {
	for _, c := range []Complexity{Low, Medium, High} {
		got, err := ParseComplexity(c.String())
		if err != nil || got != c {
			t.Errorf("ParseComplexity(%q) = %v, %v", c.String(), got, err)
		}
	}
}

func TestErrorKindsAreDistinguishable(t *testing.T) {
	apiErr := fmt.Errorf("openai API: %w", &APIError{StatusCode: 500, Body: "boom"})
	outErr := fmt.Errorf("wrapped: %w", &ModelOutputError{Reason: "empty"})

	if !IsAPIError(apiErr) || IsModelOutputError(apiErr) {
		t.Errorf("APIError misclassified: %v", apiErr)
	}
	if !IsModelOutputError(outErr) || IsAPIError(outErr) {
		t.Errorf("ModelOutputError misclassified: %v", outErr)
	}

	var target *APIError
	if !errors.As(apiErr, &target) || target.StatusCode != 500 {
		t.Errorf("errors.As did not recover status code: %+v", target)
	}
}

func TestAPIErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := &APIError{Err: cause}
	if !errors.Is(err, cause) {
		t.Fatal("APIError should unwrap to its cause")
	}
	if err.Error() != "API usage error: connection refused" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
