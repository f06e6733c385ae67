// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the transport adapter abstraction: a duplex byte stream with
// flow control whose events are delivered on an event loop.

package api

import "net"

// Adapter is a duplex byte stream with pause/resume flow control.
//
// All listeners are invoked on the adapter's event loop. The close event
// fires at most once per adapter; no data or error event follows it.
type Adapter interface {
	// Write queues p for transmission. It reports whether the outbound
	// buffer absorbed the write without crossing its high-water mark;
	// false means the caller should slow down (or that the adapter is closed).
	Write(p []byte) bool

	// Pause suspends delivery of data events.
	Pause()

	// Resume restarts delivery of data events.
	Resume()

	// Close requests closure. Completion is signalled by the close event.
	Close() error

	// OnData registers a listener for inbound bytes.
	OnData(fn func(p []byte))

	// OnError registers a listener for I/O failures.
	OnError(fn func(err error))

	// OnClose registers a listener for the terminal close event.
	OnClose(fn func())

	// RemoveAllListeners drops every registered listener. Safe to call
	// repeatedly.
	RemoveAllListeners()

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// TransportStats aggregates adapter byte counters.
type TransportStats struct {
	BytesRead    uint64
	BytesWritten uint64
	Buffered     int
}
