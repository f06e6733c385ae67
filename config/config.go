// File: config/config.go
// Package config
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// File-backed settings for the event loop, transport adapters, codecs and
// logging. TOML and YAML are both accepted; the format is chosen by extension.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-conn/api"
	"github.com/momentics/hioload-conn/codec"
	"github.com/momentics/hioload-conn/core/concurrency"
	"github.com/momentics/hioload-conn/transport"
)

// Codec kinds understood by Validate.
const (
	CodecLine           = "line"
	CodecJSONLines      = "jsonlines"
	CodecLengthPrefixed = "lengthprefixed"
	CodecCBOR           = "cbor"
)

// Config is the root configuration document.
type Config struct {
	Listen    string          `toml:"listen" yaml:"listen"`
	Loop      LoopConfig      `toml:"loop" yaml:"loop"`
	Transport TransportConfig `toml:"transport" yaml:"transport"`
	Codec     CodecConfig     `toml:"codec" yaml:"codec"`
	Log       LogConfig       `toml:"log" yaml:"log"`
}

type LoopConfig struct {
	BatchSize int `toml:"batch_size" yaml:"batch_size"`
}

type TransportConfig struct {
	ReadBufferSize int `toml:"read_buffer_size" yaml:"read_buffer_size"`
	WriteHighWater int `toml:"write_high_water" yaml:"write_high_water"`
}

type CodecConfig struct {
	Kind              string `toml:"kind" yaml:"kind"`
	MaxFrameSize      int    `toml:"max_frame_size" yaml:"max_frame_size"`
	Compression       string `toml:"compression" yaml:"compression"`
	CompressThreshold int    `toml:"compress_threshold" yaml:"compress_threshold"`
}

type LogConfig struct {
	Level   string `toml:"level" yaml:"level"`
	JSON    bool   `toml:"json" yaml:"json"`
	NoColor bool   `toml:"no_color" yaml:"no_color"`
}

// Default returns the built-in configuration.
func Default() Config {
	topts := transport.DefaultOptions()
	return Config{
		Listen: "127.0.0.1:7400",
		Loop: LoopConfig{
			BatchSize: concurrency.DefaultBatchSize,
		},
		Transport: TransportConfig{
			ReadBufferSize: topts.ReadBufferSize,
			WriteHighWater: topts.WriteHighWater,
		},
		Codec: CodecConfig{
			Kind:              CodecLine,
			MaxFrameSize:      codec.DefaultMaxFrameSize,
			Compression:       codec.CompressionNone.String(),
			CompressThreshold: codec.DefaultCompressThreshold,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over Default and validates the result. Keys absent from
// the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		if keys := meta.Undecoded(); len(keys) > 0 {
			return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, keys[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("config %s: unsupported extension %q: %w", path, ext, api.ErrNotSupported)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return invalid("listen address is required")
	}
	if c.Loop.BatchSize <= 0 {
		return invalid("loop.batch_size must be positive, got %d", c.Loop.BatchSize)
	}
	if c.Transport.ReadBufferSize <= 0 {
		return invalid("transport.read_buffer_size must be positive, got %d", c.Transport.ReadBufferSize)
	}
	if c.Transport.WriteHighWater <= 0 {
		return invalid("transport.write_high_water must be positive, got %d", c.Transport.WriteHighWater)
	}
	switch c.Codec.Kind {
	case CodecLine, CodecJSONLines, CodecLengthPrefixed, CodecCBOR:
	default:
		return invalid("codec.kind %q is not one of line, jsonlines, lengthprefixed, cbor", c.Codec.Kind)
	}
	if c.Codec.MaxFrameSize < 0 {
		return invalid("codec.max_frame_size must not be negative, got %d", c.Codec.MaxFrameSize)
	}
	if c.Codec.CompressThreshold < 0 {
		return invalid("codec.compress_threshold must not be negative, got %d", c.Codec.CompressThreshold)
	}
	alg, err := codec.ParseCompression(c.Codec.Compression)
	if err != nil {
		return invalid("codec.compression: %v", err)
	}
	if alg != codec.CompressionNone && c.Codec.Kind != CodecLengthPrefixed {
		return invalid("codec.compression requires kind %q", CodecLengthPrefixed)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", api.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// LoopOptions converts the loop section into event loop options.
func (c Config) LoopOptions() []concurrency.LoopOption {
	return []concurrency.LoopOption{concurrency.WithBatchSize(c.Loop.BatchSize)}
}

// TransportOptions converts the transport section into adapter options.
func (c Config) TransportOptions() []transport.Option {
	return []transport.Option{
		transport.WithReadBufferSize(c.Transport.ReadBufferSize),
		transport.WithWriteHighWater(c.Transport.WriteHighWater),
	}
}

// LengthPrefixedOptions converts the codec section into LengthPrefixed
// options. Validate must have succeeded.
func (c Config) LengthPrefixedOptions() []codec.LengthPrefixedOption {
	alg, _ := codec.ParseCompression(c.Codec.Compression)
	return []codec.LengthPrefixedOption{
		codec.WithMaxFrameSize(c.Codec.MaxFrameSize),
		codec.WithCompression(alg),
		codec.WithCompressThreshold(c.Codec.CompressThreshold),
	}
}
