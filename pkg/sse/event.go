// Package sse implements the line-framed event protocol spoken between the
// tablechat server and its clients.
//
// A chat stream is a sequence of newline-terminated lines. Lines carrying a
// payload start with the "data:" field, as in Server-Sent Events, and hold
// either the sentinel [DONE] or a JSON object:
//
//	data: {"type":"thinking","content":"Looking at column B"}
//	data: {"type":"response","content":"The average is 42."}
//	data: [DONE]
//
// Decoding is split in two layers: LineDecoder turns arbitrarily chunked bytes
// into complete lines, and Parser turns data lines into ChatEvent values.
// Reader combines both over an io.Reader; Writer produces frames for servers.
//
// See the SSE specification for the field syntax:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import "fmt"

// EventType discriminates the ChatEvent variants.
type EventType string

const (
	// EventThinking is an incremental fragment of the assistant's reasoning.
	EventThinking EventType = "thinking"

	// EventResponse is an incremental fragment of the assistant's answer.
	EventResponse EventType = "response"

	// EventError is a terminal failure signalled by the server.
	EventError EventType = "error"

	// EventDone is the terminal success signal.
	EventDone EventType = "done"
)

// ChatEvent is one unit of a chat stream.
type ChatEvent struct {
	Type EventType

	// Text is the fragment for thinking and response events and the message
	// for error events. It is empty for done events.
	Text string
}

// Thinking returns a thinking fragment event.
func Thinking(text string) ChatEvent {
	return ChatEvent{Type: EventThinking, Text: text}
}

// Response returns a response fragment event.
func Response(text string) ChatEvent {
	return ChatEvent{Type: EventResponse, Text: text}
}

// Error returns a server error event.
func Error(message string) ChatEvent {
	return ChatEvent{Type: EventError, Text: message}
}

// Done returns the completion event.
func Done() ChatEvent {
	return ChatEvent{Type: EventDone}
}

// IsTerminal reports whether no further events may follow e.
func (e ChatEvent) IsTerminal() bool {
	return e.Type == EventError || e.Type == EventDone
}

func (e ChatEvent) String() string {
	if e.Type == EventDone {
		return "Done"
	}
	return fmt.Sprintf("%s(%q)", e.Type, e.Text)
}
