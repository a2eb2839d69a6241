// Package apiclient is the single chokepoint for all network I/O. It injects
// auth headers, logs request/response metadata, unwraps the standard {data: T}
// envelope, and implements the single refresh-and-retry cycle on 401.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Esmakirs9082/chat-sub000/internal/constants"
	"github.com/Esmakirs9082/chat-sub000/internal/notify"
)

const (
	// DefaultTimeout bounds every request when no deadline is on the context.
	DefaultTimeout = 30 * time.Second

	refreshPath = "/auth/refresh"
)

// TokenSource is the session view the client needs. The Auth store owns the
// session; the client only reads tokens and replaces them after a refresh.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(accessToken, refreshToken string)
	Clear()
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	notifier   notify.Notifier
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, tokens TokenSource, notifier notify.Notifier, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		tokens:     tokens,
		notifier:   notifier,
		logger:     slog.Default(),
	}
	if c.notifier == nil {
		c.notifier = notify.Discard
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// requestMeta is the per-request metadata bag. The retried flag is scoped to
// one logical request so concurrent requests cannot contaminate each other.
type requestMeta struct {
	id        string
	startedAt time.Time
	retried   bool
	isRefresh bool
}

func newRequestMeta(path string) *requestMeta {
	return &requestMeta{
		id:        uuid.NewString(),
		startedAt: time.Now(),
		isRefresh: path == refreshPath,
	}
}

// Request issues a JSON request and decodes the response into out (which may
// be nil). Any non-2xx response or transport failure returns *APIError.
func (c *Client) Request(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &APIError{Message: fmt.Sprintf("encoding request body: %v", err)}
		}
	}
	return c.do(ctx, method, path, payload, "application/json", out, newRequestMeta(path), nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, contentType string, out any, meta *requestMeta, progress ProgressFunc) error {
	var bodyReader io.Reader
	if payload != nil {
		if progress != nil {
			bodyReader = newProgressReader(payload, progress)
		} else {
			bodyReader = bytes.NewReader(payload)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("building request: %v", err)}
	}
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
		req.ContentLength = int64(len(payload))
	}
	req.Header.Set("X-Request-ID", meta.id)

	token := c.tokens.AccessToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Info("api request",
		"method", method,
		"path", path,
		"request_id", meta.id,
		"authorization", redactAuth(token),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed",
			"method", method,
			"path", path,
			"request_id", meta.id,
			"error", err,
		)
		c.notifier.Notify(notify.Notice{
			Level:   notify.LevelError,
			Message: "Connection problem. Check your network and try again.",
		})
		return &APIError{
			Message: "network error: no response received",
			Code:    constants.ErrCodeNetwork,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			Message: "network error: reading response",
			Code:    constants.ErrCodeNetwork,
		}
	}

	c.logger.Info("api response",
		"method", method,
		"path", path,
		"request_id", meta.id,
		"status", resp.StatusCode,
		"duration", time.Since(meta.startedAt).String(),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return unwrap(respBody, out)
	}

	apiErr := parseAPIError(resp.StatusCode, respBody)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if meta.retried || meta.isRefresh {
			// Single-attempt policy: a second 401, or a 401 on the refresh
			// call itself, never triggers another refresh.
			return apiErr
		}
		meta.retried = true
		if err := c.refreshTokens(ctx); err != nil {
			c.tokens.Clear()
			c.notifier.Notify(notify.Notice{
				Level:   notify.LevelWarning,
				Message: "Your session has expired. Please sign in again.",
			})
			return apiErr
		}
		return c.do(ctx, method, path, payload, contentType, out, meta, progress)

	case resp.StatusCode == http.StatusForbidden:
		c.notifier.Notify(notify.Notice{
			Level:   notify.LevelWarning,
			Message: "You don't have permission to do that.",
		})

	case resp.StatusCode == http.StatusTooManyRequests:
		c.notifier.Notify(notify.Notice{
			Level:   notify.LevelWarning,
			Message: "You're doing that too fast. Slow down and try again.",
		})

	case resp.StatusCode >= 500:
		c.notifier.Notify(notify.Notice{
			Level:   notify.LevelError,
			Message: "Something went wrong on our end. Try again later.",
		})
	}

	return apiErr
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (c *Client) refreshTokens(ctx context.Context) error {
	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		return fmt.Errorf("no refresh token held")
	}

	var out refreshResponse
	err := c.Request(ctx, http.MethodPost, refreshPath, map[string]string{
		"refreshToken": refreshToken,
	}, &out)
	if err != nil {
		return fmt.Errorf("refreshing tokens: %w", err)
	}

	c.tokens.SetTokens(out.AccessToken, out.RefreshToken)
	return nil
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// unwrap decodes a response body into out, unwrapping the {data: T} envelope
// when present.
func unwrap(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		body = env.Data
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Message: fmt.Sprintf("decoding response: %v", err)}
	}
	return nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	apiErr.StatusCode = status
	return apiErr
}

func redactAuth(token string) string {
	if token == "" {
		return ""
	}
	return "Bearer [redacted]"
}
