// File: codec/lengthprefix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Length-prefixed binary framing with frame size enforcement.
//
// Wire format of one frame:
//
//	uint32 big-endian  length of the rest of the frame (tag + body)
//	uint8              Compression tag
//	body               payload, or for compressed frames:
//	                   uint32 original size + compressed block

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/momentics/hioload-conn/api"
)

const (
	lengthPrefixLen = 4
	// DefaultCompressThreshold is the smallest payload worth compressing.
	DefaultCompressThreshold = 256
)

// LengthPrefixedOption customizes a LengthPrefixed codec.
type LengthPrefixedOption func(*LengthPrefixed)

// WithMaxFrameSize bounds the decoded payload size.
func WithMaxFrameSize(n int) LengthPrefixedOption {
	return func(c *LengthPrefixed) {
		if n > 0 {
			c.maxFrame = n
		}
	}
}

// WithCompression selects the algorithm used for outbound payloads.
// Inbound frames are decoded whatever their tag.
func WithCompression(alg Compression) LengthPrefixedOption {
	return func(c *LengthPrefixed) {
		c.compression = alg
	}
}

// WithCompressThreshold sets the smallest payload that is compressed.
func WithCompressThreshold(n int) LengthPrefixedOption {
	return func(c *LengthPrefixed) {
		if n >= 0 {
			c.threshold = n
		}
	}
}

// LengthPrefixed frames opaque byte payloads.
type LengthPrefixed struct {
	emitters[[]byte]
	buf         []byte
	maxFrame    int
	compression Compression
	threshold   int
}

var _ api.Codec[[]byte] = (*LengthPrefixed)(nil)

// NewLengthPrefixed returns a LengthPrefixed codec.
func NewLengthPrefixed(opts ...LengthPrefixedOption) *LengthPrefixed {
	c := &LengthPrefixed{
		maxFrame:  DefaultMaxFrameSize,
		threshold: DefaultCompressThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnData implements api.Codec. An oversized or zero length prefix leaves
// the stream unsynchronized, so the buffer is dropped after reporting it.
func (c *LengthPrefixed) OnData(p []byte) {
	c.buf = append(c.buf, p...)
	start := 0
	for len(c.buf)-start >= lengthPrefixLen {
		size := binary.BigEndian.Uint32(c.buf[start:])
		if size == 0 {
			c.buf = nil
			c.emitError(decodeError("lengthprefixed", errors.New("zero length frame")))
			return
		}
		// Compressed bodies carry 4 bytes of size; allow for it.
		// Compared unconverted so the check also holds where int is 32 bits.
		if uint64(size) > uint64(c.maxFrame)+1+4 {
			c.buf = nil
			c.emitError(frameTooLarge("lengthprefixed", uint64(size), c.maxFrame))
			return
		}
		n := int(size)
		if len(c.buf)-start < lengthPrefixLen+n {
			break
		}
		frame := c.buf[start+lengthPrefixLen : start+lengthPrefixLen+n]
		start += lengthPrefixLen + n

		payload, err := c.decodeFrame(frame)
		if err != nil {
			c.emitError(decodeError("lengthprefixed", err))
			continue
		}
		c.emitCommand(payload)
	}
	c.buf = append(c.buf[:0:0], c.buf[start:]...)
}

func (c *LengthPrefixed) decodeFrame(frame []byte) ([]byte, error) {
	alg := Compression(frame[0])
	body := frame[1:]
	if alg == CompressionNone {
		if len(body) > c.maxFrame {
			return nil, fmt.Errorf("%w: %d > %d", api.ErrFrameTooLarge, len(body), c.maxFrame)
		}
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	}
	return decompress(body, alg, c.maxFrame)
}

// PrepareCommand implements api.Codec.
func (c *LengthPrefixed) PrepareCommand(payload []byte) ([]byte, error) {
	if len(payload) > c.maxFrame {
		return nil, encodeError("lengthprefixed",
			fmt.Errorf("%w: %d > %d", api.ErrFrameTooLarge, len(payload), c.maxFrame))
	}

	alg := CompressionNone
	body := payload
	if c.compression != CompressionNone && len(payload) >= c.threshold {
		compressed, err := compress(payload, c.compression)
		switch {
		case err == nil:
			alg, body = c.compression, compressed
		case errors.Is(err, errIncompressible):
		default:
			return nil, encodeError("lengthprefixed", err)
		}
	}

	out := make([]byte, lengthPrefixLen+1+len(body))
	binary.BigEndian.PutUint32(out, uint32(1+len(body)))
	out[lengthPrefixLen] = byte(alg)
	copy(out[lengthPrefixLen+1:], body)
	return out, nil
}

// Buffered returns the number of bytes held for an incomplete frame.
func (c *LengthPrefixed) Buffered() int { return len(c.buf) }
