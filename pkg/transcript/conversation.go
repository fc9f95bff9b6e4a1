package transcript

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/tablechat/pkg/logger"
	"github.com/papercomputeco/tablechat/pkg/sse"
)

// Streamer runs one chat request and delivers its events to onEvent in order.
// chat.Client implements it.
type Streamer interface {
	StartChat(ctx context.Context, message, sessionID string, onEvent func(sse.ChatEvent)) error
}

// UpdateKind tells observers what changed.
type UpdateKind int

const (
	// UpdateMessageAdded is published when a message is appended.
	UpdateMessageAdded UpdateKind = iota

	// UpdateMessageChanged is published each time the in-flight assistant
	// message grows.
	UpdateMessageChanged

	// UpdateError is published when the server signals an error for the turn.
	UpdateError

	// UpdateTurnFinished is published once per Send with the sealed turn.
	UpdateTurnFinished

	// UpdateReset is published when the message list is cleared.
	UpdateReset
)

// Update is an immutable notification handed to observers.
type Update struct {
	Kind UpdateKind

	// Index is the position of Message in the session's message list.
	Index   int
	Message Message

	// Delta is the text an UpdateMessageChanged event appended.
	Delta sse.ChatEvent

	// Turn is set on UpdateError and UpdateTurnFinished.
	Turn Turn
}

// Observer receives updates synchronously on the goroutine running Send.
type Observer func(Update)

// Conversation drives the message list of one Session.
type Conversation struct {
	streamer Streamer
	logger   *slog.Logger

	mu        sync.Mutex
	session   Session
	observers []Observer

	inFlight atomic.Bool
}

// ConversationOption configures a Conversation.
type ConversationOption func(*Conversation)

// WithLogger sets the logger used for turn diagnostics.
func WithLogger(l *slog.Logger) ConversationOption {
	return func(c *Conversation) {
		c.logger = logger.OrNop(l)
	}
}

// WithObserver registers o before any update can be published.
func WithObserver(o Observer) ConversationOption {
	return func(c *Conversation) {
		c.observers = append(c.observers, o)
	}
}

// NewConversation returns a Conversation bound to session.
func NewConversation(streamer Streamer, session Session, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		streamer: streamer,
		logger:   logger.Nop(),
		session:  session.Clone(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers an observer for subsequent updates.
func (c *Conversation) Subscribe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// InFlight reports whether a reply is currently streaming.
func (c *Conversation) InFlight() bool {
	return c.inFlight.Load()
}

// Snapshot returns a deep copy of the session.
func (c *Conversation) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// SessionID returns the ID of the bound session.
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.ID
}

// Reset rebinds the conversation to session and drops all messages. It fails
// with ErrInFlight while a reply is streaming.
func (c *Conversation) Reset(session Session) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	defer c.inFlight.Store(false)

	c.mu.Lock()
	c.session = session.Clone()
	c.session.Messages = nil
	c.mu.Unlock()

	c.publish(Update{Kind: UpdateReset, Index: -1})
	return nil
}

// Send appends text as a user message plus an assistant placeholder, streams
// the reply into the placeholder and returns the sealed turn. Only one Send
// may run at a time; an overlapping call fails with ErrInFlight and changes
// nothing. The returned error is the Streamer's transport or protocol error;
// a server error event is reported through the turn, not the error.
func (c *Conversation) Send(ctx context.Context, text string) (Turn, error) {
	if strings.TrimSpace(text) == "" {
		return Turn{}, ErrEmptyMessage
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return Turn{}, ErrInFlight
	}
	defer c.inFlight.Store(false)

	sessionID := c.SessionID()
	if sessionID == "" {
		return Turn{}, ErrNoSession
	}

	c.append(NewUserMessage(text))
	idx := c.append(NewAssistantPlaceholder())

	acc := NewAccumulator(c.messageAt(idx))
	start := time.Now()

	err := c.streamer.StartChat(ctx, text, sessionID, func(ev sse.ChatEvent) {
		msg, changed := acc.Apply(ev)
		if !changed {
			return
		}

		c.replace(idx, msg)
		switch ev.Type {
		case sse.EventThinking, sse.EventResponse:
			c.publish(Update{Kind: UpdateMessageChanged, Index: idx, Message: msg, Delta: ev})
		case sse.EventError:
			c.publish(Update{Kind: UpdateError, Index: idx, Message: msg, Turn: acc.Turn()})
		}
	})

	msg := acc.Finish(err)
	c.replace(idx, msg)

	turn := acc.Turn()
	c.logger.Debug("assistant turn finished",
		"session_id", sessionID,
		"outcome", turn.Outcome.String(),
		"response_len", len(turn.Response),
		"thinking_len", len(turn.Thinking),
		"duration", time.Since(start),
	)
	c.publish(Update{Kind: UpdateTurnFinished, Index: idx, Message: msg, Turn: turn})

	return turn, err
}

func (c *Conversation) append(m Message) int {
	c.mu.Lock()
	c.session.Messages = append(c.session.Messages, m)
	idx := len(c.session.Messages) - 1
	c.session.UpdatedAt = time.Now().UTC()
	c.mu.Unlock()

	c.publish(Update{Kind: UpdateMessageAdded, Index: idx, Message: m.clone()})
	return idx
}

func (c *Conversation) replace(idx int, m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Messages[idx] = m
	c.session.UpdatedAt = time.Now().UTC()
}

func (c *Conversation) messageAt(idx int) Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Messages[idx].clone()
}

func (c *Conversation) publish(u Update) {
	c.mu.Lock()
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, o := range observers {
		o(u)
	}
}
