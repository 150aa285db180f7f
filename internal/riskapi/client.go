package riskapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"doc-risk-eval/internal/analysis"
)

// DefaultBaseURL is the origin the analysis service listens on by default.
const DefaultBaseURL = "http://localhost:8000"

// Config drives analysis client behaviour.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Health is the payload of GET /health.
type Health struct {
	Status string `json:"status"`
}

// Client talks to the external document analysis service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient constructs an analysis client, filling in defaults.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = "doc-risk-eval"
	}

	// No cookie jar: requests never carry credentials.
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
	}
}

// BaseURL returns the service origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Analyze uploads the document to POST /analyze and decodes the result.
func (c *Client) Analyze(ctx context.Context, doc analysis.Document) (analysis.Response, error) {
	if c == nil {
		return analysis.Response{}, errors.New("analysis client is nil")
	}
	if !doc.Valid() {
		return analysis.Response{}, analysis.ErrNoFile
	}

	body, contentType, err := buildMultipart(doc)
	if err != nil {
		return analysis.Response{}, err
	}

	endpoint := c.baseURL + "/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return analysis.Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", c.userAgent)
	requestID := RequestIDFromContext(ctx)
	req.Header.Set("X-Request-ID", requestID)

	logrus.WithFields(logrus.Fields{
		"endpoint":   endpoint,
		"file":       doc.Name,
		"request_id": requestID,
	}).Debug("sending document to analysis service")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return analysis.Response{}, &analysis.NetworkError{
			Endpoint:    c.baseURL,
			Unreachable: isUnreachable(err),
			Err:         err,
		}
	}
	defer resp.Body.Close()

	logrus.WithFields(logrus.Fields{
		"status":     resp.StatusCode,
		"request_id": requestID,
	}).Debug("analysis service responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return analysis.Response{}, &analysis.NetworkError{Endpoint: c.baseURL, Err: readErr}
		}
		return analysis.Response{}, &analysis.APIError{
			Status:  resp.StatusCode,
			Message: errorDetail(raw),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return analysis.Response{}, &analysis.NetworkError{Endpoint: c.baseURL, Err: err}
	}
	// Unmarshal rejects trailing data after the JSON value.
	var payload analysis.Response
	if err := json.Unmarshal(raw, &payload); err != nil {
		return analysis.Response{}, &analysis.ParseError{Err: err}
	}
	return payload, nil
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return Health{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", RequestIDFromContext(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Health{}, &analysis.NetworkError{
			Endpoint:    c.baseURL,
			Unreachable: isUnreachable(err),
			Err:         err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Health{}, &analysis.NetworkError{Endpoint: c.baseURL, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return Health{}, &analysis.APIError{Status: resp.StatusCode, Message: errorDetail(raw)}
	}

	var health Health
	if err := json.Unmarshal(raw, &health); err != nil {
		return Health{}, &analysis.ParseError{Err: err}
	}
	return health, nil
}

func buildMultipart(doc analysis.Document) (io.Reader, string, error) {
	src, err := doc.Open()
	if err != nil {
		return nil, "", &analysis.ValidationError{Reason: fmt.Sprintf("cannot read %s: %v", doc.Name, err)}
	}
	defer src.Close()

	// Sniff the part type the way a browser labels a selected file.
	reader := bufio.NewReader(src)
	head, _ := reader.Peek(3072)
	partType := mimetype.Detect(head).String()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(doc.Name)))
	header.Set("Content-Type", partType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, reader); err != nil {
		return nil, "", &analysis.ValidationError{Reason: fmt.Sprintf("cannot read %s: %v", doc.Name, err)}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// errorDetail prefers the JSON "detail" field of an error body and falls back
// to the raw text.
func errorDetail(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return text
	}
	detail, ok := payload["detail"]
	if !ok {
		return text
	}
	var str string
	if err := json.Unmarshal(detail, &str); err == nil {
		return str
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, detail); err != nil {
		return text
	}
	return compact.String()
}

func isUnreachable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

type requestIDKey struct{}

// WithRequestID attaches the id sent as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the attached request id or a fresh one.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
