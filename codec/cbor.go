// File: codec/cbor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// CBOR sequence framing (RFC 8742): data items are self-delimiting, so
// they are written back to back with no extra framing.

package codec

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/momentics/hioload-conn/api"
)

// cborEnc uses Core Deterministic Encoding: the same command always
// produces identical bytes.
var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		// any-typed targets decode maps as map[string]any, matching JSON.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBOR frames commands of type T as a CBOR sequence.
type CBOR[T any] struct {
	emitters[T]
	buf      []byte
	maxFrame int
}

var _ api.Codec[map[string]any] = (*CBOR[map[string]any])(nil)

// NewCBOR returns a CBOR codec rejecting items larger than maxFrame bytes.
func NewCBOR[T any](maxFrame int) *CBOR[T] {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	return &CBOR[T]{maxFrame: maxFrame}
}

// OnData implements api.Codec. A malformed item leaves the stream
// unsynchronized and drops the buffer; an item that is well-formed but does
// not fit T is reported and skipped.
func (c *CBOR[T]) OnData(p []byte) {
	c.buf = append(c.buf, p...)
	for len(c.buf) > 0 {
		var raw cbor.RawMessage
		rest, err := cborDec.UnmarshalFirst(c.buf, &raw)
		if errors.Is(err, io.ErrUnexpectedEOF) {
			if len(c.buf) > c.maxFrame {
				n := len(c.buf)
				c.buf = nil
				c.emitError(frameTooLarge("cbor", uint64(n), c.maxFrame))
				return
			}
			c.buf = append(c.buf[:0:0], c.buf...)
			return
		}
		if err != nil {
			c.buf = nil
			c.emitError(decodeError("cbor", err))
			return
		}
		c.buf = rest

		if len(raw) > c.maxFrame {
			c.emitError(frameTooLarge("cbor", uint64(len(raw)), c.maxFrame))
			continue
		}
		var v T
		if err := cborDec.Unmarshal(raw, &v); err != nil {
			c.emitError(decodeError("cbor", err))
			continue
		}
		c.emitCommand(v)
	}
	c.buf = nil
}

// PrepareCommand implements api.Codec.
func (c *CBOR[T]) PrepareCommand(cmd T) ([]byte, error) {
	out, err := cborEnc.Marshal(cmd)
	if err != nil {
		return nil, encodeError("cbor", err)
	}
	if len(out) > c.maxFrame {
		return nil, encodeError("cbor", fmt.Errorf("%w: %d > %d", api.ErrFrameTooLarge, len(out), c.maxFrame))
	}
	return out, nil
}

// Buffered returns the number of bytes held for an incomplete item.
func (c *CBOR[T]) Buffered() int { return len(c.buf) }
