package chat

import (
	"time"

	"github.com/papercomputeco/tablechat/pkg/transcript"
)

// ChatRequest is the body of POST /chat/stream.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	Success   bool                `json:"success"`
	SessionID string              `json:"session_id"`
	FileInfo  transcript.FileInfo `json:"file_info"`

	// ColumnNames preserves header order, which PreviewData maps lose.
	ColumnNames []string            `json:"column_names,omitempty"`
	PreviewData []map[string]string `json:"preview_data"`
}

// UploadStatus is returned by GET /upload/status/:id.
type UploadStatus struct {
	SessionID string               `json:"session_id"`
	Status    transcript.Status    `json:"status"`
	FileInfo  *transcript.FileInfo `json:"file_info,omitempty"`
}

// HistoryResponse is returned by GET /chat/history/:id.
type HistoryResponse struct {
	SessionID string               `json:"session_id"`
	Messages  []transcript.Message `json:"messages"`
	FileInfo  *transcript.FileInfo `json:"file_info,omitempty"`
}

// SessionSummary is one entry of GET /chat/sessions.
type SessionSummary struct {
	ID           string               `json:"id"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	Status       transcript.Status    `json:"status"`
	FileInfo     *transcript.FileInfo `json:"file_info,omitempty"`
	MessageCount int                  `json:"message_count"`
}

// SessionsResponse is returned by GET /chat/sessions.
type SessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// MessageResponse carries a human readable acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx reply from the server.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
