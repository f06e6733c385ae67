// File: transport/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultReadBufferSize is the largest chunk delivered by one data event.
	DefaultReadBufferSize = 64 * 1024
	// DefaultWriteHighWater is the buffered byte count at which Write
	// starts reporting backpressure.
	DefaultWriteHighWater = 64 * 1024
	// DefaultFlushTimeout bounds how long Close waits for buffered writes.
	DefaultFlushTimeout = 5 * time.Second
)

// Options configures a Conn.
type Options struct {
	ReadBufferSize int
	WriteHighWater int
	FlushTimeout   time.Duration
	Logger         zerolog.Logger
}

// DefaultOptions returns the settings used when no Option is given.
func DefaultOptions() Options {
	return Options{
		ReadBufferSize: DefaultReadBufferSize,
		WriteHighWater: DefaultWriteHighWater,
		FlushTimeout:   DefaultFlushTimeout,
		Logger:         zerolog.Nop(),
	}
}

// Option customizes a Conn.
type Option func(*Options)

// WithReadBufferSize sets the per-read buffer size.
func WithReadBufferSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.ReadBufferSize = n
		}
	}
}

// WithWriteHighWater sets the backpressure threshold for Write.
func WithWriteHighWater(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.WriteHighWater = n
		}
	}
}

// WithFlushTimeout bounds the time Close spends flushing buffered writes
// to a peer that is not reading. Unflushed bytes are dropped after it.
func WithFlushTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.FlushTimeout = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithOptions replaces all settings at once.
func WithOptions(src Options) Option {
	return func(o *Options) {
		*o = src
		if o.ReadBufferSize <= 0 {
			o.ReadBufferSize = DefaultReadBufferSize
		}
		if o.WriteHighWater <= 0 {
			o.WriteHighWater = DefaultWriteHighWater
		}
		if o.FlushTimeout <= 0 {
			o.FlushTimeout = DefaultFlushTimeout
		}
	}
}
