package analysis

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTooLarge marks a document rejected for exceeding the upload size limit.
var ErrTooLarge = errors.New("document exceeds the upload size limit")

// ValidationError is returned before any network activity, e.g. when no file
// is selected. Err optionally classifies the failure.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ErrNoFile is the validation failure for an empty selection.
var ErrNoFile = &ValidationError{Reason: "Please select a file to analyze"}

// NetworkError wraps a transport failure talking to the analysis service.
type NetworkError struct {
	Endpoint string
	// Unreachable is set when the service could not be contacted at all
	// (DNS failure, connection refused).
	Unreachable bool
	Err         error
}

func (e *NetworkError) Error() string {
	if e.Unreachable {
		return fmt.Sprintf("cannot reach analysis server at %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("network error calling %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError reports a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API request failed: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("API request failed: %d %s", e.Status, e.Message)
}

// ParseError reports a success response whose body could not be decoded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode analysis response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
