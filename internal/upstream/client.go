// Package upstream is the HTTP client for the externally hosted C-CAP
// backend API. Every data-bearing operation in the dashboard is a thin call
// through this client: JSON bodies over HTTPS, authenticated with a bearer
// token once one is held. The backend is an opaque collaborator: this
// package implements none of its logic, only its contract.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResponseSize bounds how much of an upstream response body is read
// (4 MB). List endpoints return full collections; anything larger is a
// contract violation.
const maxResponseSize = 4 << 20

// ErrUnauthorized is returned for upstream 401/403 responses: bad
// credentials, an expired token, or insufficient role. Callers treat all
// three the same; the dashboard never distinguishes them to the user.
var ErrUnauthorized = errors.New("upstream rejected credentials")

// StatusError is returned for any other non-2xx upstream response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Message)
}

// MetricsRecorder receives one observation per backend call. Satisfied by
// *metrics.Metrics.
type MetricsRecorder interface {
	IncUpstreamRequest(resource, method string, statusCode int)
	ObserveUpstreamDuration(resource string, seconds float64)
	IncUpstreamError(errorType string)
}

// Client talks to the C-CAP backend API.
type Client struct {
	baseURL string
	http    *http.Client
	metrics MetricsRecorder
}

// New creates a Client for the given base URL. The timeout applies to
// every call; there is no per-request cancellation beyond the caller's
// context.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetMetrics attaches a recorder for per-call observations. Must be called
// before the client is shared across goroutines.
func (c *Client) SetMetrics(m MetricsRecorder) {
	c.metrics = m
}

// do performs one JSON request. A non-empty token is attached as a bearer
// Authorization header. When out is non-nil the 2xx response body is
// decoded into it.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resource := resourceFromPath(path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncUpstreamError("network")
		}
		return fmt.Errorf("calling upstream %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.IncUpstreamRequest(resource, method, resp.StatusCode)
		c.metrics.ObserveUpstreamDuration(resource, time.Since(start).Seconds())
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncUpstreamError("read")
		}
		return fmt.Errorf("reading upstream response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if c.metrics != nil {
			c.metrics.IncUpstreamError("unauthorized")
		}
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		if c.metrics != nil {
			c.metrics.IncUpstreamError("status")
		}
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding upstream response: %w", err)
		}
	}
	return nil
}

// resourceFromPath reduces a request path to its first segment, keeping
// metric label cardinality bounded ("/students/42" becomes "students").
func resourceFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return "root"
	}
	return trimmed
}

// errorMessage extracts a human-readable message from an upstream error
// body. The backend uses {"detail": "..."}; anything else falls back to a
// bounded raw snippet.
func errorMessage(raw []byte) string {
	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != "" {
		return detail.Detail
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
