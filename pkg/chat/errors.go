package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrEmptyMessage is returned by StartChat for an empty message.
	ErrEmptyMessage = errors.New("chat: message is empty")

	// ErrEmptySessionID is returned when a call needs a session and none was given.
	ErrEmptySessionID = errors.New("chat: session id is empty")
)

// maxErrorBody bounds how much of a failed response is kept.
const maxErrorBody = 4 * 1024

// StatusError is returned when the server answers with a non-2xx status.
// No events are delivered for such a response.
type StatusError struct {
	StatusCode int
	Status     string

	// Body is the (possibly truncated) response body.
	Body string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)

	var er ErrorResponse
	if json.Unmarshal([]byte(e.Body), &er) == nil && er.Error != "" {
		msg = er.Error
		if er.Detail != "" {
			msg += ": " + er.Detail
		}
	}

	if msg == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, msg)
}

// IsNotFound reports whether err is a 404 from the server, which for session
// scoped calls means the session does not exist.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
