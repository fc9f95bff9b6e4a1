// Package transcript folds a stream of chat events into conversation state.
//
// An Accumulator owns one in-flight assistant turn and turns each event into
// an immutable Message snapshot. A Conversation owns a Session's message list,
// guards against overlapping requests, and publishes every snapshot to its
// observers before the next event is processed.
package transcript

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation. On the wire the role is carried in
// the "type" field.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"type"`
	Content   string    `json:"content"`
	Thinking  *string   `json:"thinking,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserMessage returns a user message stamped with the current time.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssistantPlaceholder returns the empty assistant message that an
// in-flight turn is mirrored into.
func NewAssistantPlaceholder() Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Timestamp: time.Now().UTC(),
	}
}

// ThinkingText returns the thinking trace or "" when there is none.
func (m Message) ThinkingText() string {
	if m.Thinking == nil {
		return ""
	}
	return *m.Thinking
}

// clone returns a copy that shares no pointers with m.
func (m Message) clone() Message {
	if m.Thinking != nil {
		t := *m.Thinking
		m.Thinking = &t
	}
	return m
}

// FileInfo describes the table a session is bound to.
type FileInfo struct {
	Filename   string    `json:"filename"`
	Filepath   string    `json:"filepath"`
	Rows       int       `json:"rows"`
	Columns    int       `json:"columns"`
	Size       string    `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Session is a conversation bound to one uploaded file.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Status    Status    `json:"status"`
	File      *FileInfo `json:"file_info,omitempty"`
	Messages  []Message `json:"messages"`
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	if s.File != nil {
		f := *s.File
		s.File = &f
	}

	msgs := make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		msgs[i] = m.clone()
	}
	s.Messages = msgs

	return s
}
