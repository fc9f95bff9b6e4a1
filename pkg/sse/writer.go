package sse

import (
	"encoding/json"
	"fmt"
	"io"
)

// Writer encodes ChatEvents as data frames. Each frame is followed by a blank
// line so the output is also valid Server-Sent Events.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer framing events onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEvent writes ev as one frame. Done events are written as the sentinel.
func (w *Writer) WriteEvent(ev ChatEvent) error {
	if ev.Type == EventDone {
		return w.WriteDone()
	}

	f := frame{Type: string(ev.Type)}
	if ev.Text != "" {
		text := ev.Text
		f.Content = &text
	}

	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	return w.writeData(string(payload))
}

// WriteDone writes the [DONE] sentinel frame.
func (w *Writer) WriteDone() error {
	return w.writeData(DoneSentinel)
}

func (w *Writer) writeData(payload string) error {
	_, err := io.WriteString(w.w, dataField+": "+payload+"\n\n")
	return err
}
