package view

import (
	"encoding/json"
	"io"

	"doc-risk-eval/internal/analyzer"
)

// Result pairs a submitted path with the state it produced.
type Result struct {
	File      string            `json:"file"`
	RequestID string            `json:"request_id,omitempty"`
	State     analyzer.Snapshot `json:"state"`
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
