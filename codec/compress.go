// File: codec/compress.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Payload compression for length-prefixed frames.

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the algorithm applied to a frame payload. The
// value is written as the first byte of every length-prefixed frame;
// changing the constants breaks wire compatibility.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name as used in configuration.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// maxDecodedSize caps zstd output regardless of the claimed original size.
const maxDecodedSize = 64 << 20

var errIncompressible = errors.New("incompressible payload")

// zstd encoders and decoders are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxDecodedSize),
	)
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

// compress returns the compressed body: 4-byte original size followed by
// the compressed block.
func compress(data []byte, alg Compression) ([]byte, error) {
	var block []byte
	switch alg {
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 {
			return nil, errIncompressible
		}
		block = dst[:n]
	case CompressionZstd:
		block = zstdEncoder.EncodeAll(data, nil)
	default:
		return nil, fmt.Errorf("unsupported compression: %s", alg)
	}
	if len(block)+4 >= len(data) {
		return nil, errIncompressible
	}
	out := make([]byte, 4+len(block))
	binary.BigEndian.PutUint32(out, uint32(len(data)))
	copy(out[4:], block)
	return out, nil
}

func decompress(body []byte, alg Compression, limit int) ([]byte, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("%s: missing original size", alg)
	}
	size := int(binary.BigEndian.Uint32(body))
	if size > limit {
		return nil, fmt.Errorf("%s: original size %d exceeds %d", alg, size, limit)
	}
	block := body[4:]
	switch alg {
	case CompressionLZ4:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(block, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if n != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", n, size)
		}
		return dst, nil
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(block, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(out) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", alg)
	}
}
