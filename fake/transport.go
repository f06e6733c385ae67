// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the core interfaces.

package fake

import (
	"net"
	"sync"

	"github.com/momentics/hioload-conn/api"
	"github.com/momentics/hioload-conn/internal/event"
)

// Addr is a fixed net.Addr.
type Addr struct {
	Net, Str string
}

func (a Addr) Network() string { return a.Net }
func (a Addr) String() string  { return a.Str }

// Transport is a fake api.Adapter. Events it produces are posted to its
// scheduler, like a real adapter. Unlike a correct adapter it does not
// guard against repeated close events, so tests can simulate a
// misbehaving transport with FireClose.
type Transport struct {
	loop   api.Scheduler
	local  net.Addr
	remote net.Addr

	onData  event.Emitter[[]byte]
	onError event.Emitter[error]
	onClose event.Signal

	mu          sync.Mutex
	written     [][]byte
	held        [][]byte
	paused      bool
	accept      bool
	closeOnStop bool
	pauseCalls  int
	resumeCalls int
	closeCalls  int
}

var _ api.Adapter = (*Transport)(nil)

// NewTransport creates a fake transport between the given addresses.
// Close fires the close event, as a real adapter would.
func NewTransport(loop api.Scheduler, local, remote string) *Transport {
	return &Transport{
		loop:        loop,
		local:       Addr{Net: "tcp", Str: local},
		remote:      Addr{Net: "tcp", Str: remote},
		accept:      true,
		closeOnStop: true,
	}
}

// Write implements api.Adapter.
func (t *Transport) Write(p []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]byte, len(p))
	copy(cp, p)
	t.written = append(t.written, cp)
	return t.accept
}

// Pause implements api.Adapter.
func (t *Transport) Pause() {
	t.mu.Lock()
	t.paused = true
	t.pauseCalls++
	t.mu.Unlock()
}

// Resume implements api.Adapter. Held data is posted in arrival order.
func (t *Transport) Resume() {
	t.mu.Lock()
	t.paused = false
	t.resumeCalls++
	held := t.held
	t.held = nil
	t.mu.Unlock()
	for _, p := range held {
		t.Deliver(p)
	}
}

// Close implements api.Adapter.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closeCalls++
	fire := t.closeOnStop
	t.mu.Unlock()
	if fire {
		t.FireClose()
	}
	return nil
}

func (t *Transport) OnData(fn func([]byte)) { t.onData.On(fn) }
func (t *Transport) OnError(fn func(error))  { t.onError.On(fn) }
func (t *Transport) OnClose(fn func())       { t.onClose.On(fn) }

// RemoveAllListeners implements api.Adapter.
func (t *Transport) RemoveAllListeners() {
	t.onData.RemoveAll()
	t.onError.RemoveAll()
	t.onClose.RemoveAll()
}

func (t *Transport) LocalAddr() net.Addr  { return t.local }
func (t *Transport) RemoteAddr() net.Addr { return t.remote }

// Deliver simulates inbound bytes. While paused they are held until Resume.
func (t *Transport) Deliver(p []byte) {
	cp := make([]byte, len(p))
	copy(cp, p)
	t.mu.Lock()
	if t.paused {
		t.held = append(t.held, cp)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	_ = t.loop.Post(func() {
		t.mu.Lock()
		if t.paused {
			t.held = append(t.held, cp)
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()
		t.onData.Emit(cp)
	})
}

// FireError posts an error event.
func (t *Transport) FireError(err error) {
	_ = t.loop.Post(func() { t.onError.Emit(err) })
}

// FireClose posts a close event. Calling it twice simulates a transport
// that signals closure more than once.
func (t *Transport) FireClose() {
	_ = t.loop.Post(func() { t.onClose.Emit() })
}

// SetWriteAccepted sets the value returned by Write.
func (t *Transport) SetWriteAccepted(ok bool) {
	t.mu.Lock()
	t.accept = ok
	t.mu.Unlock()
}

// SetCloseFiresEvent controls whether Close posts the close event.
func (t *Transport) SetCloseFiresEvent(ok bool) {
	t.mu.Lock()
	t.closeOnStop = ok
	t.mu.Unlock()
}

// Written returns copies of every buffer passed to Write.
func (t *Transport) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.written))
	copy(out, t.written)
	return out
}

// Paused reports the current flow-control state.
func (t *Transport) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Calls returns how often Pause, Resume and Close were invoked.
func (t *Transport) Calls() (pause, resume, close int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pauseCalls, t.resumeCalls, t.closeCalls
}

// Listeners returns the number of attached data, error and close listeners.
func (t *Transport) Listeners() int {
	return t.onData.Len() + t.onError.Len() + t.onClose.Len()
}
