package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/tablechat/pkg/logger"
	"github.com/papercomputeco/tablechat/pkg/utils"
)

const (
	// DoneSentinel is the data payload marking the logical end of a stream.
	DoneSentinel = "[DONE]"

	dataField = "data"

	// defaultErrorMessage is used for error frames that carry no content.
	defaultErrorMessage = "unknown server error"
)

// ErrMalformedFrame is returned by ParseData for a payload that is neither the
// done sentinel nor a JSON record with a known type.
var ErrMalformedFrame = errors.New("sse: malformed frame")

// frame is the JSON record carried by a data line.
type frame struct {
	Type    string  `json:"type"`
	Content *string `json:"content,omitempty"`
}

// DataPayload returns the value of a "data:" line and true, or false for any
// other line. Per the SSE field syntax a single space after the colon is
// optional and stripped.
func DataPayload(line string) (string, bool) {
	field, value, ok := strings.Cut(line, ":")
	if !ok || field != dataField {
		return "", false
	}
	return strings.TrimPrefix(value, " "), true
}

// ParseData converts a data payload into a ChatEvent. The done sentinel is
// recognized before any JSON decoding. Errors wrap ErrMalformedFrame.
func ParseData(payload string) (ChatEvent, error) {
	if payload == DoneSentinel {
		return Done(), nil
	}

	var f frame
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return ChatEvent{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	var content string
	if f.Content != nil {
		content = *f.Content
	}

	switch EventType(f.Type) {
	case EventThinking:
		return Thinking(content), nil
	case EventResponse:
		return Response(content), nil
	case EventError:
		if content == "" {
			content = defaultErrorMessage
		}
		return Error(content), nil
	case EventDone:
		return Done(), nil
	case "":
		return ChatEvent{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	default:
		return ChatEvent{}, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, f.Type)
	}
}

// Parser classifies decoded lines. Lines that are not data lines are ignored;
// malformed data lines are logged and dropped so one bad frame never aborts
// an otherwise healthy stream.
type Parser struct {
	logger *slog.Logger

	dropped int
}

// NewParser returns a Parser reporting dropped frames to l. A nil logger
// discards diagnostics.
func NewParser(l *slog.Logger) *Parser {
	if l == nil {
		l = logger.Nop()
	}
	return &Parser{logger: l}
}

// Parse returns the event carried by line and true, or false when the line
// carries no event (ignored or dropped).
func (p *Parser) Parse(line string) (ChatEvent, bool) {
	payload, ok := DataPayload(line)
	if !ok {
		return ChatEvent{}, false
	}

	ev, err := ParseData(payload)
	if err != nil {
		p.dropped++
		p.logger.Warn("dropping malformed stream frame",
			"error", err,
			"payload", utils.Truncate(payload, 120),
		)
		return ChatEvent{}, false
	}

	return ev, true
}

// Dropped returns how many malformed data lines the parser has discarded.
func (p *Parser) Dropped() int {
	return p.dropped
}
