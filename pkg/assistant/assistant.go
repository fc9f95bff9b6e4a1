// Package assistant defines the model backends that answer questions about an
// uploaded table.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/tablechat/pkg/sse"
	"github.com/papercomputeco/tablechat/pkg/table"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

// previewRows is how many table rows are inlined into the system prompt.
const previewRows = 20

// ErrNoTable is returned when a prompt carries no table.
var ErrNoTable = errors.New("no table loaded for this session")

// ErrMissingAPIKey is returned by hosted backends built without an API key.
var ErrMissingAPIKey = errors.New("assistant API key not set")

// EmitFunc receives thinking and response fragments in order. A non-nil
// error stops the assistant, which returns it.
type EmitFunc func(sse.ChatEvent) error

// Assistant streams an answer to a question about a table.
type Assistant interface {
	// Name identifies the backend in logs and turn events.
	Name() string

	// Model is the backend model name, empty when not applicable.
	Model() string

	// Stream emits only Thinking and Response events. It reports failure by
	// returning an error, never by emitting an Error event.
	Stream(ctx context.Context, p Prompt, emit EmitFunc) error
}

// Prompt is everything an assistant sees for one turn.
type Prompt struct {
	Question string

	// History holds the earlier messages of the session, oldest first.
	History []transcript.Message

	File  *transcript.FileInfo
	Table *table.Table
}

// SystemPrompt describes the table for the model.
func (p Prompt) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a data analyst. The user uploaded a table and asks questions about it.\n")
	b.WriteString("Answer from the data below. Use markdown; show calculations when you compute values.\n\n")

	if p.File != nil {
		fmt.Fprintf(&b, "File: %s (%s)\n", p.File.Filename, p.File.Size)
	}
	if p.Table == nil {
		return b.String()
	}

	fmt.Fprintf(&b, "Rows: %d\nColumns: %d\n\n", p.Table.NumRows(), p.Table.NumColumns())

	b.WriteString("Column summary:\n")
	for _, c := range p.Table.Describe() {
		fmt.Fprintf(&b, "- %s (%s, %d non-empty", c.Name, c.Kind, c.NonEmpty)
		if c.Kind == table.KindInteger || c.Kind == table.KindNumber {
			fmt.Fprintf(&b, ", min %g, max %g, mean %.4g", c.Min, c.Max, c.Mean)
		}
		b.WriteString(")\n")
	}

	fmt.Fprintf(&b, "\nFirst %d rows:\n", min(previewRows, p.Table.NumRows()))
	b.WriteString(p.Table.Markdown(previewRows, p.Table.NumColumns()))

	return b.String()
}
