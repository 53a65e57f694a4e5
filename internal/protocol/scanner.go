package protocol

import (
	"errors"
	"io"
)

const DefaultMaxLineBytes = 2048

var ErrLineTooLong = errors.New("protocol: line exceeds buffer capacity")

// LineScanner reassembles transport bytes into newline-terminated lines
// using a single bounded accumulation buffer. Carriage returns are ignored
// and empty lines are skipped. A line that would overflow the buffer is
// discarded through its terminator and surfaced as ErrLineTooLong so the
// caller can observe the drop; the scanner itself stays usable.
type LineScanner struct {
	r        io.Reader
	buf      []byte
	max      int
	chunk    []byte
	pos      int
	fill     int
	overflow bool
}

func NewLineScanner(r io.Reader, maxLineBytes int) *LineScanner {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	return &LineScanner{
		r:     r,
		buf:   make([]byte, 0, maxLineBytes),
		max:   maxLineBytes,
		chunk: make([]byte, 512),
	}
}

// Next blocks until one complete line is available and returns a copy of
// its bytes. It returns ErrLineTooLong for an oversize line and the
// underlying read error, typically io.EOF, once the transport is drained.
// A partial line pending at EOF is dropped, never delivered truncated.
func (s *LineScanner) Next() ([]byte, error) {
	for {
		for s.pos < s.fill {
			c := s.chunk[s.pos]
			s.pos++
			switch c {
			case '\r':
			case '\n':
				if s.overflow {
					s.overflow = false
					s.buf = s.buf[:0]
					return nil, ErrLineTooLong
				}
				if len(s.buf) == 0 {
					continue
				}
				line := make([]byte, len(s.buf))
				copy(line, s.buf)
				s.buf = s.buf[:0]
				return line, nil
			default:
				if len(s.buf) == s.max {
					s.overflow = true
					continue
				}
				s.buf = append(s.buf, c)
			}
		}

		n, err := s.r.Read(s.chunk)
		s.pos, s.fill = 0, n
		if n == 0 && err != nil {
			return nil, err
		}
	}
}
