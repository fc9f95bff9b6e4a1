package chat

import (
	"context"
	"net/http"
	"net/url"
)

// History returns the messages and file info of a session.
func (c *Client) History(ctx context.Context, sessionID string) (*HistoryResponse, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	var out HistoryResponse
	if err := c.doJSON(ctx, http.MethodGet, "/chat/history/"+url.PathEscape(sessionID), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sessions lists every session known to the server.
func (c *Client) Sessions(ctx context.Context) ([]SessionSummary, error) {
	var out SessionsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/chat/sessions", nil, "", &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// DeleteSession removes a session and its transcript from the server.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	return c.doJSON(ctx, http.MethodDelete, "/chat/session/"+url.PathEscape(sessionID), nil, "", nil)
}

// UploadStatus reports whether a session created by Upload is still live.
func (c *Client) UploadStatus(ctx context.Context, sessionID string) (*UploadStatus, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	var out UploadStatus
	if err := c.doJSON(ctx, http.MethodGet, "/upload/status/"+url.PathEscape(sessionID), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
