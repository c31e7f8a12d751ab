// Package upstream is a bearer-authenticated JSON client for the stable
// management Data API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/al-bashkir/stable-portal/internal/logsanitize"
)

// DefaultTimeout is the per-call timeout when none is configured.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is kept on an APIError.
const maxErrorBody = 64 << 10

// ErrInvalidPath is returned for passthrough paths that leave the /api tree.
var ErrInvalidPath = errors.New("invalid API path")

// Client calls the Data API on behalf of a signed-in user.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. Its Timeout is the per-call
// timeout.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get fetches path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, token, path string, out any) error {
	return c.Do(ctx, http.MethodGet, token, path, nil, out)
}

// Put sends body as JSON to path and decodes the response into out.
func (c *Client) Put(ctx context.Context, token, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, token, path, body, out)
}

// Post sends body as JSON to path and decodes the response into out.
func (c *Client) Post(ctx context.Context, token, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, token, path, body, out)
}

// Do performs one API call with token as the bearer credential.
//
// Transport failures and non-2xx responses are returned as *APIError.
// Numbers in the response are decoded as json.Number when out is an any.
// A nil out discards the response body.
func (c *Client) Do(ctx context.Context, method, token, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("upstream request failed",
			"method", method,
			"path", logsanitize.Sanitize(path),
			"error", err,
		)
		return &APIError{Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("upstream request",
		"method", method,
		"path", logsanitize.Sanitize(path),
		"auth", logsanitize.Header(req.Header.Get("Authorization")),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &APIError{
			Status:  http.StatusBadGateway,
			Message: "Invalid response from API",
			Err:     err,
		}
	}

	return nil
}

// Path joins escaped segments under /api.
func Path(segments ...string) string {
	var b strings.Builder
	b.WriteString("/api")
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// PassthroughPath maps the remainder of an inbound /api/ request to the
// upstream path, keeping the query string. It rejects paths that would
// resolve outside /api.
func PassthroughPath(rest string, query url.Values) (string, error) {
	cleaned := path.Clean("/api/" + rest)
	if cleaned == "/api" || !strings.HasPrefix(cleaned, "/api/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rest)
	}

	if len(query) > 0 {
		cleaned += "?" + query.Encode()
	}
	return cleaned, nil
}

func transportMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "API request timed out"
	}
	return "API unreachable"
}
