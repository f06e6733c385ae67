// Package bridge
// Author: momentics <momentics@gmail.com>
//
// Package bridge binds one transport adapter to one protocol codec for the
// lifetime of a connection.
//
// A Bridge owns its api.Adapter and api.Codec exclusively. Inbound bytes
// flow adapter → codec → "command" listeners; outbound commands flow
// Send → codec.PrepareCommand → adapter.Write. Transport errors surface as
// "error" events and every connection ends in exactly one "close" event.
//
// Construction pauses the adapter, wires all listeners and only then resumes
// it, so no inbound byte can reach the codec before the command relay exists
// and no command event ever fires during New.
//
// Teardown runs only from the adapter's close event, whether the close was
// requested by Disconnect, by the peer or by a transport failure:
//
//  1. the bridge's close listeners are notified;
//  2. adapter listeners are removed;
//  3. codec listeners are removed;
//  4. the bridge's own listeners are removed.
//
// After that no event fires. Send reports ErrBridgeClosed; Pause, Resume and
// Disconnect are no-ops.
//
// All listeners run on the injected scheduler's goroutine. Send, Pause,
// Resume and Disconnect may be called from any goroutine.
//
// New resumes the transport before it returns. When it is called from a
// goroutine other than the scheduler's while the loop is running, inbound
// data may be decoded before OnCommand or OnClose run, and those events are
// not replayed. Either call New and register listeners inside a task posted
// to the scheduler, or pass them as WithCommandListener, WithErrorListener
// and WithCloseListener options, which are attached before the resume.
//
// Error policy:
//   - invalid transport handles fail New synchronously with an error
//     matching api.ErrInvalidTransport;
//   - encode failures are returned from Send and fire no event;
//   - decode failures reported by the codec, and panics inside the codec,
//     become "error" events; the connection stays open.
package bridge
