package sse

import (
	"errors"
	"io"
)

const defaultReadSize = 32 * 1024

// Reader pulls chunks from a source io.Reader and yields ChatEvents in the
// order their lines arrived. Raw bytes may be teed verbatim to a destination
// writer (for example a debug trace file) as they are read.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │  chunks
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │   LineDecoder    │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │  lines
// ▼
// ┌──────────────────┐
// │      Parser      │
// └──────────────────┘
// │
// ▼
//
//	ChatEvent
//
// Reader holds no state outside of itself; two Readers over identical bytes
// always produce identical events regardless of how the source chunks them.
type Reader struct {
	src     io.Reader
	dest    io.Writer
	decoder *LineDecoder
	parser  *Parser

	buf     []byte
	pending []ChatEvent
	err     error
}

// NewReader returns a Reader over src that reports dropped frames through p.
// A nil parser uses NewParser(nil).
func NewReader(src io.Reader, p *Parser) *Reader {
	return NewTeeReader(src, io.Discard, p)
}

// NewTeeReader is like NewReader and also writes every byte read from src to
// dest before it is decoded.
func NewTeeReader(src io.Reader, dest io.Writer, p *Parser) *Reader {
	if p == nil {
		p = NewParser(nil)
	}
	if dest == nil {
		dest = io.Discard
	}

	return &Reader{
		src:     src,
		dest:    dest,
		decoder: NewLineDecoder(),
		parser:  p,
		buf:     make([]byte, defaultReadSize),
	}
}

// Next returns the next event. It blocks reading from the source until a
// complete event line is available. Next returns io.EOF once the source is
// exhausted and the final unterminated line, if any, has been flushed. Any
// other error is a transport error; events decoded before it are still
// returned first.
func (r *Reader) Next() (ChatEvent, error) {
	for len(r.pending) == 0 {
		if r.err != nil {
			return ChatEvent{}, r.err
		}
		r.fill()
	}

	ev := r.pending[0]
	r.pending = r.pending[1:]
	return ev, nil
}

// Decoder exposes the underlying line decoder, mainly for its size limit.
func (r *Reader) Decoder() *LineDecoder {
	return r.decoder
}

// fill performs one read and queues whatever events it produced. A read may
// return data along with an error, so the data is always decoded first.
func (r *Reader) fill() {
	n, readErr := r.src.Read(r.buf)
	if n > 0 {
		chunk := r.buf[:n]
		if _, err := r.dest.Write(chunk); err != nil {
			r.err = err
			return
		}

		lines, err := r.decoder.Feed(chunk)
		r.parseLines(lines)
		if err != nil {
			r.err = err
			return
		}
	}

	switch {
	case readErr == nil:
	case errors.Is(readErr, io.EOF):
		r.parseLines(r.decoder.Close())
		r.err = io.EOF
	default:
		r.err = readErr
	}
}

func (r *Reader) parseLines(lines []string) {
	for _, line := range lines {
		if ev, ok := r.parser.Parse(line); ok {
			r.pending = append(r.pending, ev)
		}
	}
}
