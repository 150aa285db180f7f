package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"doc-risk-eval/internal/analysis"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   string
		prefix string
		hints  int
	}{
		{"validation", analysis.ErrNoFile, KindValidation, "Please select a file", 0},
		{"unreachable", &analysis.NetworkError{Endpoint: "http://x", Unreachable: true, Err: errors.New("refused")}, KindNetwork, "Cannot reach the analysis server at http://x", 2},
		{"transport", &analysis.NetworkError{Endpoint: "http://x", Err: context.DeadlineExceeded}, KindNetwork, "Network error: context deadline exceeded", 2},
		{"api", &analysis.APIError{Status: 413, Message: "file too large"}, KindAPI, "API request failed: 413 file too large", 0},
		{"api without body", &analysis.APIError{Status: 503}, KindAPI, "API request failed: 503 Service Unavailable", 0},
		{"parse", &analysis.ParseError{Err: errors.New("unexpected EOF")}, KindParse, "Unexpected response", 0},
		{"wrapped", fmt.Errorf("outer: %w", &analysis.APIError{Status: 400, Message: "bad"}), KindAPI, "API request failed: 400 bad", 0},
		{"unknown", errors.New("boom"), KindUnknown, "Analysis failed: boom", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := Describe(tc.err, "http://localhost:8000")
			if msg.Kind != tc.kind {
				t.Fatalf("expected kind %s got %s", tc.kind, msg.Kind)
			}
			if !strings.HasPrefix(msg.Text, tc.prefix) {
				t.Fatalf("expected %q to start with %q", msg.Text, tc.prefix)
			}
			if len(msg.Hints) != tc.hints {
				t.Fatalf("expected %d hints got %v", tc.hints, msg.Hints)
			}
		})
	}
}
