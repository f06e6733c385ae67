// File: codec/line.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Newline-delimited text framing.

package codec

import (
	"bytes"
	"errors"
	"strings"

	"github.com/momentics/hioload-conn/api"
)

// ErrEmbeddedNewline rejects commands that would split into two frames.
var ErrEmbeddedNewline = errors.New("command contains a newline")

// splitter accumulates bytes and cuts them into newline-terminated lines.
type splitter struct {
	buf    []byte
	maxLen int
	// discarding is set while skipping the remainder of an oversized line.
	discarding bool
}

// feed appends p and calls fn for every complete line, without its
// terminator. A trailing '\r' is stripped. When the unterminated tail grows
// past maxLen it is discarded and its size returned as overflow; input is
// then dropped up to and including the next '\n'.
func (s *splitter) feed(p []byte, fn func(line []byte)) (overflow int) {
	if s.discarding {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			return 0
		}
		p = p[i+1:]
		s.discarding = false
	}
	s.buf = append(s.buf, p...)
	start := 0
	for {
		i := bytes.IndexByte(s.buf[start:], '\n')
		if i < 0 {
			break
		}
		line := s.buf[start : start+i]
		start += i + 1
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		if len(line) > s.maxLen {
			overflow = len(line)
			continue
		}
		fn(line)
	}

	rest := s.buf[start:]
	if len(rest) > s.maxLen {
		overflow = len(rest)
		rest = nil
		s.discarding = true
	}
	// Compact so consumed frames are not retained.
	s.buf = append(s.buf[:0:0], rest...)
	return overflow
}

// Buffered returns the number of bytes held for an incomplete line.
func (s *splitter) Buffered() int { return len(s.buf) }

// Line frames string commands on '\n'.
type Line struct {
	emitters[string]
	split splitter
}

var _ api.Codec[string] = (*Line)(nil)

// NewLine returns a Line codec that rejects lines longer than maxLen bytes.
// A non-positive maxLen selects DefaultMaxFrameSize.
func NewLine(maxLen int) *Line {
	if maxLen <= 0 {
		maxLen = DefaultMaxFrameSize
	}
	return &Line{split: splitter{maxLen: maxLen}}
}

// OnData implements api.Codec.
func (c *Line) OnData(p []byte) {
	if n := c.split.feed(p, func(line []byte) {
		c.emitCommand(string(line))
	}); n > 0 {
		c.emitError(frameTooLarge("line", uint64(n), c.split.maxLen))
	}
}

// PrepareCommand implements api.Codec.
func (c *Line) PrepareCommand(cmd string) ([]byte, error) {
	if strings.IndexByte(cmd, '\n') >= 0 {
		return nil, encodeError("line", ErrEmbeddedNewline)
	}
	out := make([]byte, 0, len(cmd)+1)
	out = append(out, cmd...)
	return append(out, '\n'), nil
}

// Buffered returns the number of bytes held for an incomplete line.
func (c *Line) Buffered() int { return c.split.Buffered() }
