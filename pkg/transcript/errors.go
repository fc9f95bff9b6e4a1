package transcript

import "errors"

var (
	// ErrInFlight is returned when a message is sent or the conversation is
	// reset while an assistant turn is still streaming.
	ErrInFlight = errors.New("transcript: a reply is already in flight")

	// ErrEmptyMessage is returned for a blank user message.
	ErrEmptyMessage = errors.New("transcript: message is empty")

	// ErrNoSession is returned when the conversation is not bound to a session.
	ErrNoSession = errors.New("transcript: no session bound")
)
