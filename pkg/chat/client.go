// Package chat is the HTTP client for a tablechat server. StartChat runs one
// streamed chat exchange; the remaining methods cover upload and session
// bookkeeping.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/papercomputeco/tablechat/pkg/logger"
	"github.com/papercomputeco/tablechat/pkg/sse"
)

// Client talks to a tablechat server rooted at an API base URL such as
// http://localhost:8000/api.
type Client struct {
	target     string
	httpClient *http.Client
	logger     *slog.Logger

	trace   io.Writer
	maxLine int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Its Timeout bounds the
// whole streamed exchange.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger for request and frame diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.OrNop(l)
	}
}

// WithTrace copies every raw byte of each chat stream to w.
func WithTrace(w io.Writer) Option {
	return func(c *Client) {
		c.trace = w
	}
}

// WithMaxLineSize overrides sse.DefaultMaxLineSize for chat streams.
func WithMaxLineSize(n int) Option {
	return func(c *Client) {
		c.maxLine = n
	}
}

// NewClient returns a Client for the API rooted at target.
func NewClient(target string, opts ...Option) *Client {
	c := &Client{
		target:     strings.TrimRight(target, "/"),
		httpClient: &http.Client{},
		logger:     logger.Nop(),
		trace:      io.Discard,
		maxLine:    sse.DefaultMaxLineSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Target returns the API base URL.
func (c *Client) Target() string {
	return c.target
}

// StartChat sends message to the session and delivers the streamed reply to
// onEvent, synchronously and in arrival order, once per event.
//
// Delivery stops after the first Done or Error event, so a Done the server
// sends after an Error is never delivered and callers must not wait for it.
// A non-2xx reply returns a *StatusError before any event is delivered. A
// transport failure part way through returns an error once; events already
// delivered stand. When ctx is cancelled the body is released and onEvent is
// not called again.
//
// A nil error with no terminal event delivered means the server closed the
// stream early.
func (c *Client) StartChat(ctx context.Context, message, sessionID string, onEvent func(sse.ChatEvent)) error {
	if message == "" {
		return ErrEmptyMessage
	}
	if sessionID == "" {
		return ErrEmptySessionID
	}

	body, err := json.Marshal(ChatRequest{Message: message, SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("marshaling chat request: %w", err)
	}

	url := c.target + "/chat/stream"
	c.logger.Debug("sending chat request",
		"url", url,
		"session_id", sessionID,
		"message_len", len(message),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending chat request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	parser := sse.NewParser(c.logger)
	reader := sse.NewTeeReader(resp.Body, c.trace, parser)
	reader.Decoder().SetMaxLineSize(c.maxLine)

	delivered := 0
	for {
		ev, err := reader.Next()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("chat stream cancelled: %w", ctxErr)
		}
		if errors.Is(err, io.EOF) {
			c.logger.Debug("chat stream ended without terminal event",
				"session_id", sessionID,
				"events", delivered,
				"dropped", parser.Dropped(),
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading chat stream: %w", err)
		}

		onEvent(ev)
		delivered++

		if ev.IsTerminal() {
			c.logger.Debug("chat stream finished",
				"session_id", sessionID,
				"terminal", string(ev.Type),
				"events", delivered,
				"dropped", parser.Dropped(),
			)
			return nil
		}
	}
}

// checkStatus returns a *StatusError for non-2xx responses.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}

// doJSON performs a request and decodes a JSON reply into out when out is
// non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	url := c.target + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("sending request", "method", method, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
