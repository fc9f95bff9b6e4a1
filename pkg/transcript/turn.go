package transcript

// Outcome is how an assistant turn ended.
type Outcome int

const (
	// OutcomePending means the turn has not reached a terminal event.
	OutcomePending Outcome = iota

	// OutcomeSucceeded means the stream delivered Done.
	OutcomeSucceeded

	// OutcomeFailed means the server sent an error event or the transport failed.
	OutcomeFailed

	// OutcomeIncomplete means the body ended without a terminal event.
	OutcomeIncomplete
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// Turn is the state of one assistant reply. Thinking and Response only grow;
// nothing changes once Finished is set.
type Turn struct {
	Thinking string
	Response string
	Finished bool
	Outcome  Outcome

	// Err is the server or transport error that failed the turn.
	Err string
}

// Succeeded reports whether the turn finished with Done.
func (t Turn) Succeeded() bool {
	return t.Finished && t.Outcome == OutcomeSucceeded
}
