package codec

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-conn/api"
)

type sink[C any] struct {
	cmds []C
	errs []error
}

func attach[C any](c api.Codec[C]) *sink[C] {
	s := &sink[C]{}
	c.OnCommand(func(cmd C) { s.cmds = append(s.cmds, cmd) })
	c.OnError(func(err error) { s.errs = append(s.errs, err) })
	return s
}

// feedBytewise delivers p one byte per OnData call to exercise partial frames.
func feedBytewise[C any](c api.Codec[C], p []byte) {
	for i := range p {
		c.OnData(p[i : i+1])
	}
}

func TestLine_SplitsAndStripsCR(t *testing.T) {
	c := NewLine(0)
	s := attach[string](c)

	c.OnData([]byte("PING\nfoo\r\nba"))
	assert.Equal(t, []string{"PING", "foo"}, s.cmds)
	assert.Equal(t, 2, c.Buffered())

	c.OnData([]byte("r\n\n"))
	assert.Equal(t, []string{"PING", "foo", "bar", ""}, s.cmds)
	assert.Empty(t, s.errs)
	assert.Zero(t, c.Buffered())
}

func TestLine_MaxLength(t *testing.T) {
	c := NewLine(4)
	s := attach[string](c)

	c.OnData([]byte("toolong"))
	require.Len(t, s.errs, 1)
	assert.ErrorIs(t, s.errs[0], api.ErrFrameTooLarge)
	assert.Equal(t, api.ErrCodeDecode, api.CodeOf(s.errs[0]))
	assert.Zero(t, c.Buffered())

	c.OnData([]byte("\nok\n"))
	assert.Equal(t, []string{"ok"}, s.cmds)
}

func TestLine_OversizedTailSkippedToNewline(t *testing.T) {
	c := NewLine(4)
	s := attach[string](c)

	c.OnData([]byte("AAAAAA"))
	c.OnData([]byte("XD"))
	assert.Zero(t, c.Buffered())
	c.OnData([]byte("EL\nok\n"))

	assert.Equal(t, []string{"ok"}, s.cmds)
	require.Len(t, s.errs, 1)
	assert.ErrorIs(t, s.errs[0], api.ErrFrameTooLarge)
}

func TestJSONLines_OversizedTailSkippedToNewline(t *testing.T) {
	dec := NewJSONLines[greeting](12)
	s := attach[greeting](dec)

	dec.OnData([]byte(`{"op":"aaaaaaaa`))
	dec.OnData([]byte(`aa"}` + "\n" + `{"op":"x"}` + "\n"))

	require.Len(t, s.errs, 1)
	assert.Equal(t, []greeting{{Op: "x"}}, s.cmds)
}

func TestLine_PrepareCommand(t *testing.T) {
	c := NewLine(0)
	out, err := c.PrepareCommand("PONG")
	require.NoError(t, err)
	assert.Equal(t, "PONG\n", string(out))

	_, err = c.PrepareCommand("a\nb")
	assert.ErrorIs(t, err, ErrEmbeddedNewline)
	assert.Equal(t, api.ErrCodeEncode, api.CodeOf(err))
}

type greeting struct {
	Op   string `json:"op"`
	Name string `json:"name,omitempty"`
}

func TestJSONLines_RoundTrip(t *testing.T) {
	enc := NewJSONLines[greeting](0)
	dec := NewJSONLines[greeting](0)
	s := attach[greeting](dec)

	var wire []byte
	for _, g := range []greeting{{Op: "hello", Name: "a\nb"}, {Op: "bye"}} {
		out, err := enc.PrepareCommand(g)
		require.NoError(t, err)
		assert.Equal(t, 1, bytes.Count(out, []byte("\n")))
		wire = append(wire, out...)
	}
	feedBytewise[greeting](dec, wire)

	assert.Equal(t, []greeting{{Op: "hello", Name: "a\nb"}, {Op: "bye"}}, s.cmds)
	assert.Empty(t, s.errs)
}

func TestJSONLines_MalformedLineSkipped(t *testing.T) {
	dec := NewJSONLines[greeting](0)
	s := attach[greeting](dec)

	dec.OnData([]byte("{nope\n\n{\"op\":\"x\"}\n"))
	require.Len(t, s.errs, 1)
	assert.Equal(t, api.ErrCodeDecode, api.CodeOf(s.errs[0]))
	assert.Equal(t, []greeting{{Op: "x"}}, s.cmds)
}

func TestLengthPrefixed_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("a"),
		bytes.Repeat([]byte("compressible "), 200),
		{},
	}
	for _, alg := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(alg.String(), func(t *testing.T) {
			enc := NewLengthPrefixed(WithCompression(alg))
			dec := NewLengthPrefixed()
			s := attach[[]byte](dec)

			var wire []byte
			for _, p := range payloads {
				out, err := enc.PrepareCommand(p)
				require.NoError(t, err)
				wire = append(wire, out...)
			}
			feedBytewise[[]byte](dec, wire)

			require.Empty(t, s.errs)
			require.Len(t, s.cmds, len(payloads))
			for i := range payloads {
				assert.True(t, bytes.Equal(payloads[i], s.cmds[i]), "payload %d", i)
			}
			assert.Zero(t, dec.Buffered())
		})
	}
}

func TestLengthPrefixed_CompressionShrinksLargePayload(t *testing.T) {
	payload := []byte(strings.Repeat("z", 4096))
	plain, err := NewLengthPrefixed().PrepareCommand(payload)
	require.NoError(t, err)
	packed, err := NewLengthPrefixed(WithCompression(CompressionLZ4)).PrepareCommand(payload)
	require.NoError(t, err)

	assert.Less(t, len(packed), len(plain))
	assert.Equal(t, byte(CompressionLZ4), packed[lengthPrefixLen])
}

func TestLengthPrefixed_Oversized(t *testing.T) {
	dec := NewLengthPrefixed(WithMaxFrameSize(8))
	s := attach[[]byte](dec)

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], 1<<20)
	dec.OnData(hdr[:])
	require.Len(t, s.errs, 1)
	assert.ErrorIs(t, s.errs[0], api.ErrFrameTooLarge)
	assert.Zero(t, dec.Buffered())

	_, err := dec.PrepareCommand(make([]byte, 9))
	assert.ErrorIs(t, err, api.ErrFrameTooLarge)
}

func TestLengthPrefixed_MaxUint32Length(t *testing.T) {
	dec := NewLengthPrefixed()
	s := attach[[]byte](dec)
	dec.OnData([]byte{0xff, 0xff, 0xff, 0xff, 0})
	require.Len(t, s.errs, 1)
	assert.ErrorIs(t, s.errs[0], api.ErrFrameTooLarge)
	assert.Empty(t, s.cmds)
	assert.Zero(t, dec.Buffered())
}

func TestLengthPrefixed_ZeroLength(t *testing.T) {
	dec := NewLengthPrefixed()
	s := attach[[]byte](dec)
	dec.OnData([]byte{0, 0, 0, 0, 9, 9})
	require.Len(t, s.errs, 1)
	assert.Empty(t, s.cmds)
	assert.Zero(t, dec.Buffered())
}

func TestLengthPrefixed_UnknownTag(t *testing.T) {
	dec := NewLengthPrefixed()
	s := attach[[]byte](dec)
	dec.OnData([]byte{0, 0, 0, 2, 0x7f, 1})
	dec.OnData([]byte{0, 0, 0, 2, 0, 'k'})
	require.Len(t, s.errs, 1)
	assert.Equal(t, [][]byte{[]byte("k")}, s.cmds)
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]Compression{"": CompressionNone, "none": CompressionNone, "lz4": CompressionLZ4, "zstd": CompressionZstd} {
		got, err := ParseCompression(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCompression("brotli")
	assert.Error(t, err)
}

type sensor struct {
	ID    string  `cbor:"id"`
	Value float64 `cbor:"value"`
}

func TestCBOR_RoundTrip(t *testing.T) {
	enc := NewCBOR[sensor](0)
	dec := NewCBOR[sensor](0)
	s := attach[sensor](dec)

	in := []sensor{{ID: "t1", Value: 21.5}, {ID: "t2", Value: -3}}
	var wire []byte
	for _, v := range in {
		out, err := enc.PrepareCommand(v)
		require.NoError(t, err)
		wire = append(wire, out...)
	}
	feedBytewise[sensor](dec, wire)

	assert.Empty(t, s.errs)
	assert.Equal(t, in, s.cmds)
	assert.Zero(t, dec.Buffered())
}

func TestCBOR_Deterministic(t *testing.T) {
	c := NewCBOR[map[string]any](0)
	a, err := c.PrepareCommand(map[string]any{"b": 1, "a": 2})
	require.NoError(t, err)
	b, err := c.PrepareCommand(map[string]any{"a": 2, "b": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCBOR_TypeMismatchSkipsItem(t *testing.T) {
	dec := NewCBOR[sensor](0)
	s := attach[sensor](dec)

	str, err := NewCBOR[string](0).PrepareCommand("not a sensor")
	require.NoError(t, err)
	ok, err := NewCBOR[sensor](0).PrepareCommand(sensor{ID: "x"})
	require.NoError(t, err)

	dec.OnData(append(str, ok...))
	require.Len(t, s.errs, 1)
	assert.Equal(t, []sensor{{ID: "x"}}, s.cmds)
}

func TestCodec_RemoveAllListeners(t *testing.T) {
	c := NewLine(0)
	s := attach[string](c)
	c.RemoveAllListeners()
	c.RemoveAllListeners()
	c.OnData([]byte("x\n"))
	assert.Empty(t, s.cmds)
}
