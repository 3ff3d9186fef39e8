package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// SessionHeader carries the session token on authenticated requests
	SessionHeader = "X-Session-Token"

	// DefaultTimeout applies to quick queries
	DefaultTimeout = 30 * time.Second
	// DefaultLongTimeout applies to uploads, AI processing and exports
	DefaultLongTimeout = 5 * time.Hour

	fallbackMessage = "An error occurred"
)

// ErrCanceled is returned when the caller cancelled the request.
// Errors carrying it also match context.Canceled.
var ErrCanceled = errors.New("request cancelled")

// APIError is the single error shape returned for transport and domain failures
type APIError struct {
	StatusCode  int    // HTTP status, 0 when no response was received
	Message     string // human-readable message
	FromBackend bool   // Message was supplied by the backend
	Err         error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// TokenSource yields the current session token, or "" when there is none
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function to TokenSource
type TokenSourceFunc func() string

func (f TokenSourceFunc) Token() string { return f() }

// Client represents an HTTP client for the product-mastering API
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      TokenSource
	timeout     time.Duration
	longTimeout time.Duration
	log         zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTokenSource sets where the session token is read from on every request
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) { c.tokens = tokens }
}

// WithTimeouts overrides the quick and long-running request timeouts
func WithTimeouts(short, long time.Duration) Option {
	return func(c *Client) {
		if short > 0 {
			c.timeout = short
		}
		if long > 0 {
			c.longTimeout = long
		}
	}
}

// WithLogger sets the logger used for request tracing and API errors
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a new API client
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{},
		timeout:     DefaultTimeout,
		longTimeout: DefaultLongTimeout,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the backend URL this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one call to the backend
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	token       string // explicit token, overrides the token source
	anonymous   bool   // never attach a token
	long        bool   // use the long-running timeout
}

func jsonRequest(method, path string, payload any) (request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	return request{
		method:      method,
		path:        path,
		body:        bytes.NewReader(data),
		contentType: "application/json",
	}, nil
}

// send issues the request and returns the open response; the caller owns the body.
// The returned cancel func must be called once the body is consumed.
func (c *Client) send(ctx context.Context, r request) (*http.Response, context.CancelFunc, error) {
	timeout := c.timeout
	if r.long {
		timeout = c.longTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(reqCtx, r.method, target, r.body)
	if err != nil {
		cancel()
		return nil, nil, c.fail(ctx, r, 0, nil, fmt.Errorf("failed to create request: %w", err))
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req, r)

	c.log.Debug().Str("method", r.method).Str("path", r.path).Msg("API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, nil, c.fail(ctx, r, 0, nil, err)
	}
	return resp, cancel, nil
}

// authorize attaches the session header when a token is available
func (c *Client) authorize(req *http.Request, r request) {
	if r.anonymous {
		return
	}
	token := r.token
	if token == "" && c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		req.Header.Set(SessionHeader, token)
	}
}

// do performs the request and returns the verified response body
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	resp, cancel, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(ctx, r, resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fail(ctx, r, resp.StatusCode, body, fmt.Errorf("request failed (status %d)", resp.StatusCode))
	}

	if err := checkEnvelope(body); err != nil {
		return nil, c.fail(ctx, r, resp.StatusCode, body, err)
	}

	return body, nil
}

// fail normalizes any failure into ErrCanceled or an *APIError
func (c *Client) fail(ctx context.Context, r request, status int, body []byte, cause error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		c.log.Debug().Str("path", r.path).Msg("API request cancelled")
		return fmt.Errorf("%w: %w", ErrCanceled, context.Canceled)
	}

	apiErr := &APIError{StatusCode: status, Err: cause}
	if msg, ok := backendMessage(body); ok {
		apiErr.Message = msg
		apiErr.FromBackend = true
	} else if cause != nil && cause.Error() != "" {
		apiErr.Message = cause.Error()
	} else {
		apiErr.Message = fallbackMessage
	}

	c.log.Warn().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", status).
		Str("message", apiErr.Message).
		Msg("API error")

	return apiErr
}

// errDomain marks a failure reported inside a successful HTTP response
var errDomain = errors.New("backend reported failure")

// checkEnvelope rejects bodies whose envelope reports a failure
func checkEnvelope(body []byte) error {
	fields, ok := envelopeFields(body)
	if !ok {
		return nil
	}
	if raw, has := fields["status"]; has {
		var status string
		if err := json.Unmarshal(raw, &status); err == nil && status != "success" {
			return errDomain
		}
		return nil
	}
	if _, has := fields["error"]; has {
		return errDomain
	}
	return nil
}

// envelopeFields parses a JSON object body into its top-level members
func envelopeFields(body []byte) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// backendMessage extracts the backend's message: message, then detail, then error
func backendMessage(body []byte) (string, bool) {
	fields, ok := envelopeFields(body)
	if !ok {
		return "", false
	}
	for _, key := range []string{"message", "detail", "error"} {
		raw, has := fields[key]
		if !has {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s, true
		}
		// Validation errors arrive as a list of {msg}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
			return items[0].Msg, true
		}
	}
	return "", false
}

// decode unmarshals the body, or one of its members when present
func decode(body []byte, member string, out any) error {
	payload := body
	if member != "" {
		if fields, ok := envelopeFields(body); ok {
			if raw, has := fields[member]; has {
				payload = raw
			}
		}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &APIError{Message: fmt.Sprintf("failed to decode response: %v", err), Err: err}
	}
	return nil
}

// IsDomainError reports whether err is a failure the backend reported inside
// an otherwise successful HTTP response ({"status": "error"})
func IsDomainError(err error) bool {
	return errors.Is(err, errDomain)
}

// IsCanceled reports whether err is the result of caller cancellation
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}
