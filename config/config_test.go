package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-conn/api"
	"github.com/momentics/hioload-conn/codec"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, CodecLine, cfg.Codec.Kind)
	assert.Len(t, cfg.TransportOptions(), 2)
	assert.Len(t, cfg.LoopOptions(), 1)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "conn.toml", `
listen = "0.0.0.0:9000"

[transport]
write_high_water = 4096

[codec]
kind = "lengthprefixed"
compression = "zstd"

[log]
level = "debug"
json = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, 4096, cfg.Transport.WriteHighWater)
	assert.Equal(t, Default().Transport.ReadBufferSize, cfg.Transport.ReadBufferSize)
	assert.Equal(t, CodecLengthPrefixed, cfg.Codec.Kind)
	assert.Equal(t, "zstd", cfg.Codec.Compression)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Len(t, cfg.LengthPrefixedOptions(), 3)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "conn.yaml", `
loop:
  batch_size: 16
codec:
  kind: cbor
  max_frame_size: 2048
log:
  no_color: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Loop.BatchSize)
	assert.Equal(t, CodecCBOR, cfg.Codec.Kind)
	assert.Equal(t, 2048, cfg.Codec.MaxFrameSize)
	assert.True(t, cfg.Log.NoColor)
	assert.Equal(t, Default().Listen, cfg.Listen)
}

func TestLoadEmptyYAMLKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeFile(t, "bad.toml", "listn = \"x\"\n"))
	assert.ErrorContains(t, err, "listn")

	_, err = Load(writeFile(t, "bad.yaml", "listn: x\n"))
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "conn.json", "{}"))
	assert.ErrorIs(t, err, api.ErrNotSupported)

	_, err = Load(writeFile(t, "broken.toml", "listen = \n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty listen":       func(c *Config) { c.Listen = " " },
		"zero batch":         func(c *Config) { c.Loop.BatchSize = 0 },
		"zero read buffer":   func(c *Config) { c.Transport.ReadBufferSize = 0 },
		"negative watermark": func(c *Config) { c.Transport.WriteHighWater = -1 },
		"unknown codec":      func(c *Config) { c.Codec.Kind = "protobuf" },
		"negative frame":     func(c *Config) { c.Codec.MaxFrameSize = -1 },
		"unknown compress":   func(c *Config) { c.Codec.Compression = "brotli" },
		"compress on line":   func(c *Config) { c.Codec.Compression = "lz4" },
		"negative threshold": func(c *Config) { c.Codec.CompressThreshold = -5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), api.ErrInvalidArgument)
		})
	}
}

func TestLengthPrefixedOptionsApplyCompression(t *testing.T) {
	cfg := Default()
	cfg.Codec.Kind = CodecLengthPrefixed
	cfg.Codec.Compression = "lz4"
	cfg.Codec.CompressThreshold = 0
	require.NoError(t, cfg.Validate())

	out, err := codec.NewLengthPrefixed(cfg.LengthPrefixedOptions()...).PrepareCommand([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	require.NoError(t, err)
	assert.Equal(t, byte(codec.CompressionLZ4), out[4])
}
