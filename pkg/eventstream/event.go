package eventstream

import (
	"time"

	"github.com/papercomputeco/tablechat/pkg/transcript"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after the server finishes streaming an
	// answer, whatever its outcome.
	EventTypeTurnCompleted = "tablechat.turn.completed"
)

// TurnCompletedEvent is a transport-neutral event payload for a finished turn.
type TurnCompletedEvent struct {
	SchemaVersion int                  `json:"schema_version"`
	EventType     string               `json:"event_type"`
	EventID       string               `json:"event_id"`
	EmittedAt     time.Time            `json:"emitted_at"`
	Source        EventSource          `json:"source"`
	SessionID     string               `json:"session_id"`
	File          *transcript.FileInfo `json:"file,omitempty"`
	RequestMeta   TurnRequestMeta      `json:"request_meta"`
	Question      transcript.Message   `json:"question"`
	Answer        transcript.Message   `json:"answer"`
}

// EventSource identifies the service and backend that produced the answer.
type EventSource struct {
	Service  string `json:"service"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// TurnRequestMeta captures request lifecycle metadata for the event.
type TurnRequestMeta struct {
	Path        string    `json:"path,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Outcome     string    `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	EventCount  int       `json:"event_count"`
}
