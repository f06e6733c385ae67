// File: codec/jsonlines.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package codec

import (
	"bytes"
	"encoding/json"

	"github.com/momentics/hioload-conn/api"
)

// JSONLines frames one JSON document of type T per line.
// Blank lines are ignored; a malformed line is reported and skipped.
type JSONLines[T any] struct {
	emitters[T]
	split splitter
}

// NewJSONLines returns a JSONLines codec with the given line limit.
func NewJSONLines[T any](maxLen int) *JSONLines[T] {
	if maxLen <= 0 {
		maxLen = DefaultMaxFrameSize
	}
	return &JSONLines[T]{split: splitter{maxLen: maxLen}}
}

var _ api.Codec[map[string]any] = (*JSONLines[map[string]any])(nil)

// OnData implements api.Codec.
func (c *JSONLines[T]) OnData(p []byte) {
	if n := c.split.feed(p, c.decodeLine); n > 0 {
		c.emitError(frameTooLarge("jsonlines", uint64(n), c.split.maxLen))
	}
}

func (c *JSONLines[T]) decodeLine(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	var v T
	if err := json.Unmarshal(line, &v); err != nil {
		c.emitError(decodeError("jsonlines", err))
		return
	}
	c.emitCommand(v)
}

// PrepareCommand implements api.Codec. Compact JSON never contains a raw
// newline, so one document always maps to one line.
func (c *JSONLines[T]) PrepareCommand(cmd T) ([]byte, error) {
	out, err := json.Marshal(cmd)
	if err != nil {
		return nil, encodeError("jsonlines", err)
	}
	return append(out, '\n'), nil
}
