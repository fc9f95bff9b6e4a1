package transcript

import (
	"github.com/papercomputeco/tablechat/pkg/sse"
)

// Accumulator folds the events of one stream into a Turn and mirrors the
// accumulated text into the turn's assistant Message.
//
// The first terminal event (Done or Error) seals the turn; any later event is
// ignored. An Accumulator is not safe for concurrent use.
type Accumulator struct {
	turn Turn
	msg  Message
}

// NewAccumulator starts a turn mirrored into placeholder.
func NewAccumulator(placeholder Message) *Accumulator {
	return &Accumulator{msg: placeholder.clone()}
}

// Apply folds ev into the turn. It returns a snapshot of the assistant message
// and whether the event changed the turn. Empty fragments and events after
// the turn finished change nothing.
func (a *Accumulator) Apply(ev sse.ChatEvent) (Message, bool) {
	if a.turn.Finished {
		return a.Message(), false
	}

	switch ev.Type {
	case sse.EventThinking:
		if ev.Text == "" {
			return a.Message(), false
		}
		a.turn.Thinking += ev.Text
		thinking := a.turn.Thinking
		a.msg.Thinking = &thinking

	case sse.EventResponse:
		if ev.Text == "" {
			return a.Message(), false
		}
		a.turn.Response += ev.Text
		a.msg.Content = a.turn.Response

	case sse.EventError:
		a.turn.Err = ev.Text
		a.turn.Outcome = OutcomeFailed
		a.turn.Finished = true

	case sse.EventDone:
		a.turn.Outcome = OutcomeSucceeded
		a.turn.Finished = true

	default:
		return a.Message(), false
	}

	return a.Message(), true
}

// Finish seals the turn once the stream call returned. err is the call's
// error, if any. A turn already sealed by a terminal event is left as is.
func (a *Accumulator) Finish(err error) Message {
	if a.turn.Finished {
		return a.Message()
	}

	a.turn.Finished = true
	if err != nil {
		a.turn.Outcome = OutcomeFailed
		a.turn.Err = err.Error()
	} else {
		a.turn.Outcome = OutcomeIncomplete
	}

	return a.Message()
}

// Turn returns the current turn state.
func (a *Accumulator) Turn() Turn {
	return a.turn
}

// Message returns a snapshot of the assistant message.
func (a *Accumulator) Message() Message {
	return a.msg.clone()
}
