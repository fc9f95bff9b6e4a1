package sse

import (
	"bytes"
	"errors"
)

// DefaultMaxLineSize bounds a single buffered line. It matches the maximum
// token size given to the bufio.Scanner readers elsewhere in tablechat.
const DefaultMaxLineSize = 1024 * 1024

// ErrLineTooLong is returned by LineDecoder.Feed when the unterminated tail
// grows past the decoder's maximum line size.
var ErrLineTooLong = errors.New("sse: line exceeds maximum size")

// LineDecoder reassembles newline-terminated lines from chunks that arrive at
// arbitrary boundaries.
//
// Splitting is done on raw bytes before any string conversion. The '\n' byte
// never appears inside a multi-byte UTF-8 sequence, so a code point split
// across two chunks is always rejoined before its line is emitted.
//
// A LineDecoder is not safe for concurrent use.
type LineDecoder struct {
	buf     []byte
	maxLine int
}

// NewLineDecoder returns a LineDecoder with DefaultMaxLineSize.
func NewLineDecoder() *LineDecoder {
	return &LineDecoder{maxLine: DefaultMaxLineSize}
}

// SetMaxLineSize overrides the maximum unterminated line size. Values <= 0
// disable the limit.
func (d *LineDecoder) SetMaxLineSize(n int) {
	d.maxLine = n
}

// Feed appends chunk to the carried-over fragment and returns every line that
// is now complete, in arrival order, without terminators. A trailing '\r'
// is stripped so CRLF framing decodes the same as LF framing.
// The incomplete tail is kept for the next call.
func (d *LineDecoder) Feed(chunk []byte) ([]string, error) {
	if len(chunk) == 0 {
		return nil, nil
	}

	d.buf = append(d.buf, chunk...)

	var lines []string
	start := 0
	for {
		i := bytes.IndexByte(d.buf[start:], '\n')
		if i < 0 {
			break
		}
		lines = append(lines, trimCR(d.buf[start:start+i]))
		start += i + 1
	}

	// Shift the tail down so the buffer does not grow without bound.
	n := copy(d.buf, d.buf[start:])
	d.buf = d.buf[:n]

	if d.maxLine > 0 && len(d.buf) > d.maxLine {
		d.buf = d.buf[:0]
		return lines, ErrLineTooLong
	}

	return lines, nil
}

// Close flushes the carried fragment as a final line when the stream ended
// without a trailing terminator. It returns nil when nothing is buffered.
func (d *LineDecoder) Close() []string {
	if len(d.buf) == 0 {
		return nil
	}

	line := trimCR(d.buf)
	d.buf = d.buf[:0]
	return []string{line}
}

// Buffered returns the number of bytes held for an incomplete line.
func (d *LineDecoder) Buffered() int {
	return len(d.buf)
}

func trimCR(b []byte) string {
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return string(b)
}
