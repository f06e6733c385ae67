// File: api/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Protocol codec contract: incremental decode into commands, encode of
// commands into bytes.

package api

// Codec translates between raw bytes and application commands of type C.
//
// A codec is stateful and owned by exactly one connection: OnData may buffer
// partial frames across calls. Every complete frame found by OnData is
// reported to the command listeners, in stream order, before OnData returns.
type Codec[C any] interface {
	// OnData feeds raw bytes for incremental decoding.
	OnData(p []byte)

	// PrepareCommand encodes cmd into its wire representation.
	PrepareCommand(cmd C) ([]byte, error)

	// OnCommand registers a listener for decoded commands.
	OnCommand(fn func(cmd C))

	// OnError registers a listener for decode faults.
	OnError(fn func(err error))

	// RemoveAllListeners drops every registered listener.
	RemoveAllListeners()
}
