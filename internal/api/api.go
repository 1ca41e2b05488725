package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"crypto-signal-engine/internal/logger"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client is a small JSON-over-HTTP client used by the remote macro provider.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	useLogging bool
}

func (c *Client) logDebug(ctx context.Context, msg string, args ...any) {
	if c.useLogging {
		logger.Debug(ctx, msg, args...)
	}
}

func (c *Client) logWarn(ctx context.Context, msg string, args ...any) {
	if c.useLogging {
		logger.Warn(ctx, msg, args...)
	}
}

// ClientOption configures the API client
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader sets a default header for all requests
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithLogging enables request logging
func WithLogging(enabled bool) ClientOption {
	return func(c *Client) {
		c.useLogging = enabled
	}
}

// NewClient creates a new API client with the given options
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: map[string]string{"Accept": "application/json"},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// GET performs a GET request. Status codes >= 400 are returned as errors.
func (c *Client) GET(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	c.logDebug(ctx, "HTTP Request", "method", http.MethodGet, "url", url)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logDebug(ctx, "HTTP Response",
		"url", url,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"bodySize", len(body))

	if resp.StatusCode >= 400 {
		c.logWarn(ctx, "HTTP error response", "url", url, "status", resp.StatusCode)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
