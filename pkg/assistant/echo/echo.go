// Package echo implements an offline Assistant that describes the uploaded
// table without calling a model. It is useful for demos and for tests that
// need a deterministic stream.
package echo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/tablechat/pkg/assistant"
	"github.com/papercomputeco/tablechat/pkg/sse"
)

const (
	maxListedColumns = 10
	sampleRows       = 3
	sampleCols       = 5
)

// Config holds configuration for the echo assistant.
type Config struct {
	// Delay is slept between emitted fragments to mimic a model's pacing.
	Delay time.Duration
}

// Assistant answers every question with a summary of the table.
type Assistant struct {
	delay time.Duration
}

// NewAssistant creates an echo assistant.
func NewAssistant(cfg Config) *Assistant {
	return &Assistant{delay: cfg.Delay}
}

func (a *Assistant) Name() string {
	return "echo"
}

func (a *Assistant) Model() string {
	return ""
}

// Stream emits a few thinking steps followed by an overview of the table.
func (a *Assistant) Stream(ctx context.Context, p assistant.Prompt, emit assistant.EmitFunc) error {
	if p.Table == nil {
		return assistant.ErrNoTable
	}

	filename := "table"
	if p.File != nil {
		filename = p.File.Filename
	}

	t := p.Table
	events := []sse.ChatEvent{
		sse.Thinking(fmt.Sprintf("Analyzing your question: %q\n", p.Question)),
		sse.Thinking(fmt.Sprintf("Loaded file %s\n", filename)),
		sse.Thinking(fmt.Sprintf("The table has %d rows and %d columns\n", t.NumRows(), t.NumColumns())),
		sse.Thinking("Processing the data...\n"),
		sse.Thinking("Generating the answer...\n"),
		sse.Response(fmt.Sprintf("## Overview of %s\n\n", filename)),
		sse.Response(fmt.Sprintf("- Rows: %d\n- Columns: %d\n\n", t.NumRows(), t.NumColumns())),
		sse.Response(columnList(p)),
	}
	if sample := t.Markdown(sampleRows, sampleCols); sample != "" {
		events = append(events, sse.Response("### Sample\n\n"+sample))
	}

	for _, ev := range events {
		if err := a.wait(ctx); err != nil {
			return err
		}
		if err := emit(ev); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assistant) wait(ctx context.Context) error {
	if a.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(a.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func columnList(p assistant.Prompt) string {
	summaries := p.Table.Describe()

	var b strings.Builder
	b.WriteString("### Columns\n\n")
	for _, c := range summaries[:min(maxListedColumns, len(summaries))] {
		fmt.Fprintf(&b, "- **%s** (%s)\n", c.Name, c.Kind)
	}
	if extra := len(summaries) - maxListedColumns; extra > 0 {
		fmt.Fprintf(&b, "- ... and %d more\n", extra)
	}
	b.WriteString("\n")
	return b.String()
}

var _ assistant.Assistant = (*Assistant)(nil)
