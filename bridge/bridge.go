// File: bridge/bridge.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bridge

import (
	"fmt"
	"net"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-conn/api"
	"github.com/momentics/hioload-conn/internal/event"
	"github.com/momentics/hioload-conn/transport"
)

// Bridge is one live connection speaking commands of type C.
type Bridge[C any] struct {
	id      string
	loop    api.Scheduler
	adapter api.Adapter
	codec   api.Codec[C]
	log     zerolog.Logger

	state atomic.Int32

	commands event.Emitter[C]
	errs     event.Emitter[error]
	closes   event.Signal

	received atomic.Uint64
	sent     atomic.Uint64
	faults   atomic.Uint64
}

// New wraps handle and codec into a Bridge whose events run on loop.
//
// handle may be an api.Adapter (adopted as is), a net.Conn (wrapped by
// transport.NewConn), an *os.File holding a connected stream socket, or a
// raw connected stream socket descriptor (int or uintptr). Any other value
// fails with an error matching api.ErrInvalidTransport. Ownership of the
// handle and of codec passes to the Bridge.
func New[C any](handle any, loop api.Scheduler, codec api.Codec[C], opts ...Option) (*Bridge[C], error) {
	if loop == nil {
		return nil, fmt.Errorf("bridge: nil scheduler: %w", api.ErrInvalidArgument)
	}
	if codec == nil {
		return nil, fmt.Errorf("bridge: nil codec: %w", api.ErrInvalidArgument)
	}
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	for _, l := range o.listeners {
		switch l.(type) {
		case commandListener[C], errorListener[C], closeListener[C]:
		default:
			return nil, fmt.Errorf("bridge: listener %T does not match command type: %w", l, api.ErrInvalidArgument)
		}
	}

	adapter, err := adopt(handle, loop, o)
	if err != nil {
		return nil, err
	}
	// Nothing may reach the codec before the relay below is attached.
	adapter.Pause()

	b := &Bridge[C]{
		id:      formatID(adapter.LocalAddr(), adapter.RemoteAddr()),
		loop:    loop,
		adapter: adapter,
		codec:   codec,
	}
	b.log = o.logger.With().Str("conn", b.id).Logger()

	codec.OnCommand(b.relayCommand)
	codec.OnError(b.relayError)
	adapter.OnData(b.feed)
	adapter.OnError(b.relayError)
	adapter.OnClose(b.teardown)

	for _, l := range o.listeners {
		switch fn := l.(type) {
		case commandListener[C]:
			b.OnCommand(fn)
		case errorListener[C]:
			b.OnError(fn)
		case closeListener[C]:
			b.OnClose(fn)
		}
	}

	adapter.Resume()
	b.log.Debug().Msg("bridge opened")
	return b, nil
}

func adopt(handle any, loop api.Scheduler, o options) (api.Adapter, error) {
	topts := append([]transport.Option{transport.WithLogger(o.logger)}, o.transport...)
	switch h := handle.(type) {
	case api.Adapter:
		if h == nil {
			break
		}
		return h, nil
	case net.Conn:
		if h == nil {
			break
		}
		return transport.NewConn(h, loop, topts...), nil
	case *os.File:
		return wrapHandleErr(transport.FromFile(h, loop, topts...))
	case uintptr:
		return wrapHandleErr(transport.FromFD(h, loop, topts...))
	case int:
		if h < 0 {
			break
		}
		return wrapHandleErr(transport.FromFD(uintptr(h), loop, topts...))
	}
	return nil, invalidHandle(handle,
		fmt.Errorf("%w: %T given; allowed types: api.Adapter, net.Conn, *os.File, socket descriptor",
			api.ErrInvalidTransport, handle))
}

func wrapHandleErr(c *transport.Conn, err error) (api.Adapter, error) {
	if err != nil {
		return nil, invalidHandle(nil, err)
	}
	return c, nil
}

func invalidHandle(handle any, cause error) error {
	e := api.WrapError(api.ErrCodeInvalidTransport, "bridge: invalid connection", cause)
	if handle != nil {
		e.WithContext("type", fmt.Sprintf("%T", handle))
	}
	return e
}

func formatID(local, remote net.Addr) string {
	return addrString(local) + "->" + addrString(remote)
}

func addrString(a net.Addr) string {
	if a == nil {
		return "?"
	}
	return a.String()
}

// ID returns the connection identifier "<local>-><remote>". It is fixed at
// construction and stays valid after close.
func (b *Bridge[C]) ID() string { return b.id }

// LocalAddr returns the local endpoint address.
func (b *Bridge[C]) LocalAddr() net.Addr { return b.adapter.LocalAddr() }

// RemoteAddr returns the remote endpoint address.
func (b *Bridge[C]) RemoteAddr() net.Addr { return b.adapter.RemoteAddr() }

// State returns the lifecycle state.
func (b *Bridge[C]) State() api.ConnState { return api.ConnState(b.state.Load()) }

// Closed reports whether teardown has run.
func (b *Bridge[C]) Closed() bool { return b.State() == api.StateClosed }

// OnCommand registers a listener for decoded commands. Registration after
// close is ignored.
func (b *Bridge[C]) OnCommand(fn func(cmd C, b *Bridge[C])) {
	if fn == nil || b.Closed() {
		return
	}
	b.commands.On(func(cmd C) { fn(cmd, b) })
}

// OnError registers a listener for transport and decode faults.
func (b *Bridge[C]) OnError(fn func(err error, b *Bridge[C])) {
	if fn == nil || b.Closed() {
		return
	}
	b.errs.On(func(err error) { fn(err, b) })
}

// OnClose registers a listener for the single close event.
func (b *Bridge[C]) OnClose(fn func(b *Bridge[C])) {
	if fn == nil || b.Closed() {
		return
	}
	b.closes.On(func() { fn(b) })
}

// Send encodes cmd and writes it to the transport. The boolean is the
// adapter's write-acceptance signal: false means the outbound buffer is
// above its high-water mark and the caller should back off. Encode
// failures are returned; a closed bridge returns ErrBridgeClosed.
func (b *Bridge[C]) Send(cmd C) (ok bool, err error) {
	if b.Closed() {
		return false, api.ErrBridgeClosed
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = api.WrapError(api.ErrCodeEncode, "bridge: codec panicked", fmt.Errorf("%v", r))
			b.log.Error().Interface("panic", r).Msg("encode panicked")
		}
	}()

	out, err := b.codec.PrepareCommand(cmd)
	if err != nil {
		b.log.Debug().Err(err).Msg("encode failed")
		return false, err
	}
	ok = b.adapter.Write(out)
	b.sent.Add(1)
	return ok, nil
}

// Pause suspends inbound data delivery.
func (b *Bridge[C]) Pause() {
	if b.Closed() {
		return
	}
	b.adapter.Pause()
}

// Resume restarts inbound data delivery.
func (b *Bridge[C]) Resume() {
	if b.Closed() {
		return
	}
	b.adapter.Resume()
}

// Disconnect asks the transport to close. Completion is signalled only by
// the close event.
func (b *Bridge[C]) Disconnect() {
	if b.Closed() {
		return
	}
	if err := b.adapter.Close(); err != nil {
		b.log.Debug().Err(err).Msg("transport close")
	}
}

// Stats returns per-connection counters. CommandsSent counts commands
// encoded and handed to the adapter, including writes reported as not
// accepted; Transport.BytesWritten reflects what reached the socket.
func (b *Bridge[C]) Stats() api.BridgeStats {
	s := api.BridgeStats{
		CommandsReceived: b.received.Load(),
		CommandsSent:     b.sent.Load(),
		Errors:           b.faults.Load(),
	}
	if ts, ok := b.adapter.(interface{ Stats() api.TransportStats }); ok {
		s.Transport = ts.Stats()
	}
	return s
}

// feed runs on the loop for every inbound chunk.
func (b *Bridge[C]) feed(p []byte) {
	if b.Closed() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("decode panicked")
			b.relayError(api.WrapError(api.ErrCodeDecode, "bridge: codec panicked", fmt.Errorf("%v", r)))
		}
	}()
	b.codec.OnData(p)
}

func (b *Bridge[C]) relayCommand(cmd C) {
	b.received.Add(1)
	b.commands.Emit(cmd)
}

func (b *Bridge[C]) relayError(err error) {
	if b.Closed() {
		return
	}
	b.faults.Add(1)
	b.log.Warn().Err(err).Msg("connection error")
	b.errs.Emit(err)
}

// teardown runs on the loop from the adapter's close event.
func (b *Bridge[C]) teardown() {
	if !b.state.CompareAndSwap(int32(api.StateActive), int32(api.StateClosed)) {
		return
	}
	b.closes.Emit()

	b.adapter.RemoveAllListeners()
	b.codec.RemoveAllListeners()
	b.commands.RemoveAll()
	b.errs.RemoveAll()
	b.closes.RemoveAll()

	b.log.Debug().
		Uint64("received", b.received.Load()).
		Uint64("sent", b.sent.Load()).
		Uint64("errors", b.faults.Load()).
		Msg("bridge closed")
}
