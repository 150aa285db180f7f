package analyzer

import (
	"errors"
	"fmt"

	"doc-risk-eval/internal/analysis"
)

// Message is what the error region shows.
type Message struct {
	Kind  string   `json:"kind"`
	Text  string   `json:"text"`
	Hints []string `json:"hints,omitempty"`
}

// Error kinds reported in Message.Kind.
const (
	KindValidation = "validation"
	KindNetwork    = "network"
	KindAPI        = "api"
	KindParse      = "parse"
	KindUnknown    = "unknown"
)

// Describe turns a run error into the user-facing message. endpoint is the
// analysis service origin quoted in troubleshooting hints.
func Describe(err error, endpoint string) Message {
	var (
		validation *analysis.ValidationError
		network    *analysis.NetworkError
		apiErr     *analysis.APIError
		parseErr   *analysis.ParseError
	)
	switch {
	case errors.As(err, &validation):
		return Message{Kind: KindValidation, Text: validation.Reason}
	case errors.As(err, &network):
		text := fmt.Sprintf("Network error: %v", network.Err)
		if network.Unreachable {
			text = fmt.Sprintf("Cannot reach the analysis server at %s: %v", network.Endpoint, network.Err)
		}
		return Message{
			Kind: KindNetwork,
			Text: text,
			Hints: []string{
				fmt.Sprintf("Ensure the API server is running at %s", endpoint),
				"Check if CORS is enabled on the API server",
			},
		}
	case errors.As(err, &apiErr):
		return Message{Kind: KindAPI, Text: apiErr.Error()}
	case errors.As(err, &parseErr):
		return Message{Kind: KindParse, Text: fmt.Sprintf("Unexpected response from the analysis server: %v", parseErr.Err)}
	default:
		return Message{Kind: KindUnknown, Text: fmt.Sprintf("Analysis failed: %v", err)}
	}
}
