package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxRetries is the maximum number of retry attempts for 429 responses
	DefaultMaxRetries = 3

	// DefaultBackoff is the initial backoff duration for exponential backoff
	DefaultBackoff = 1 * time.Second

	// DefaultTimeout bounds a single HTTP attempt
	DefaultTimeout = 30 * time.Second
)

// Transport sends a resolved request and returns the decoded response.
// Non-OK statuses are not errors at this level.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to Transport
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Send calls f
func (f TransportFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPTransport sends requests with net/http.
// Automatically injects:
// - X-Correlation-ID: <uuid>
// - Cache-Control from Policy.Cache (no-store, no-cache, reload)
// - Referer from Policy.Referrer (unless about:client or no-referrer)
//
// Handles retries for:
// - 429 Too Many Requests: respect Retry-After, exponential backoff
type HTTPTransport struct {
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

// NewHTTPTransport creates a transport. A zero timeout uses DefaultTimeout
// and a negative maxRetries disables 429 retries.
func NewHTTPTransport(timeout time.Duration, maxRetries int) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &HTTPTransport{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		backoff:    DefaultBackoff,
	}
}

// Send executes the request with retry logic
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	// Generate correlation ID for request tracing
	correlationID := uuid.New().String()

	logger := log.With().
		Str("method", req.Method).
		Str("url", req.URL).
		Str("correlationId", correlationID).
		Logger()

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	return t.doWithRetry(ctx, req, body, contentType, &logger, correlationID, 0)
}

func (t *HTTPTransport) doWithRetry(ctx context.Context, req *Request, body []byte, contentType string, logger *zerolog.Logger, correlationID string, retryCount int) (*Response, error) {
	httpReq, err := newHTTPRequest(ctx, req, body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("X-Correlation-ID", correlationID)

	start := time.Now()
	resp, err := t.clientFor(req.Policy).Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("HTTP request failed")
		return nil, err
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Int("retryCount", retryCount).
		Msg("HTTP request completed")

	if resp.StatusCode == http.StatusTooManyRequests {
		return t.handleRateLimit(ctx, req, body, contentType, resp, logger, correlationID, retryCount)
	}

	return readResponse(resp)
}

// handleRateLimit handles 429 Too Many Requests with exponential backoff
func (t *HTTPTransport) handleRateLimit(ctx context.Context, req *Request, body []byte, contentType string, resp *http.Response, logger *zerolog.Logger, correlationID string, retryCount int) (*Response, error) {
	// Parse Retry-After header (seconds or HTTP-date)
	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))

	if retryCount >= t.maxRetries {
		logger.Warn().Msg("Rate limited - max retries exceeded")
		if t.maxRetries == 0 {
			return readResponse(resp)
		}
		resp.Body.Close()
		return nil, ErrRateLimited{RetryAfter: int(retryAfter.Seconds())}
	}
	resp.Body.Close()

	// Apply exponential backoff if no Retry-After header
	if retryAfter == 0 {
		retryAfter = t.backoff * time.Duration(1<<retryCount)
	}

	logger.Warn().
		Dur("retryAfter", retryAfter).
		Int("retryCount", retryCount).
		Msg("Rate limited - backing off")

	// Wait before retry
	select {
	case <-time.After(retryAfter):
		return t.doWithRetry(ctx, req, body, contentType, logger, correlationID, retryCount+1)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// clientFor applies the redirect policy to a shallow copy of the client
func (t *HTTPTransport) clientFor(p Policy) *http.Client {
	switch p.Redirect {
	case "error":
		hc := *t.httpClient
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return errors.New("redirect not allowed by policy")
		}
		return &hc
	case "manual":
		hc := *t.httpClient
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		return &hc
	default:
		return t.httpClient
	}
}

func newHTTPRequest(ctx context.Context, req *Request, body []byte, contentType string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reader)
	if err != nil {
		return nil, err
	}

	for k, v := range req.Header {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	switch req.Policy.Cache {
	case "no-store":
		httpReq.Header.Set("Cache-Control", "no-store")
	case "no-cache", "reload":
		httpReq.Header.Set("Cache-Control", "no-cache")
	}

	switch req.Policy.Referrer {
	case "", "about:client", "no-referrer":
	default:
		httpReq.Header.Set("Referer", req.Policy.Referrer)
	}

	return httpReq, nil
}

func readResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	data, err := decodeBody(resp.Header, raw)
	if err != nil {
		return nil, err
	}

	return &Response{
		Status: resp.StatusCode,
		OK:     IsOK(resp.StatusCode),
		Header: resp.Header,
		Data:   data,
		Raw:    raw,
	}, nil
}

// parseRetryAfter parses the Retry-After header
// Supports both integer seconds and HTTP-date format
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	// Try parsing as integer (seconds)
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	// Try parsing as HTTP-date
	if t, err := http.ParseTime(value); err == nil {
		duration := time.Until(t)
		if duration > 0 {
			return duration
		}
	}

	// Fallback
	return 0
}
