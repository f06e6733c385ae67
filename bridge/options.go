// File: bridge/options.go
// Package bridge defines functional options for Bridge construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bridge

import (
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-conn/transport"
)

type options struct {
	logger    zerolog.Logger
	transport []transport.Option
	listeners []any
}

type (
	commandListener[C any] func(cmd C, b *Bridge[C])
	errorListener[C any]   func(err error, b *Bridge[C])
	closeListener[C any]   func(b *Bridge[C])
)

// Option customizes Bridge construction.
type Option func(*options)

// WithLogger attaches a logger. Lifecycle is logged at debug level and
// connection faults at warn level.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTransportOptions configures the adapter New creates when it is given
// a net.Conn or a raw descriptor. Ignored when an api.Adapter is supplied.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(o *options) {
		o.transport = append(o.transport, opts...)
	}
}

// WithCommandListener registers fn before New resumes the transport, so it
// observes every command even when New runs off the loop goroutine. C must
// match the Bridge's command type.
func WithCommandListener[C any](fn func(cmd C, b *Bridge[C])) Option {
	return func(o *options) {
		o.listeners = append(o.listeners, commandListener[C](fn))
	}
}

// WithErrorListener registers fn before the transport is resumed.
func WithErrorListener[C any](fn func(err error, b *Bridge[C])) Option {
	return func(o *options) {
		o.listeners = append(o.listeners, errorListener[C](fn))
	}
}

// WithCloseListener registers fn before the transport is resumed.
func WithCloseListener[C any](fn func(b *Bridge[C])) Option {
	return func(o *options) {
		o.listeners = append(o.listeners, closeListener[C](fn))
	}
}
