// File: internal/event/emitter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Emitter is a listener registry for one event kind. Listener lists are
// copy-on-write: registration swaps in a new slice under a mutex, and Emit
// walks an atomic snapshot, so a listener may register or clear listeners
// while it is being dispatched.

package event

import (
	"sync"
	"sync/atomic"
)

// Emitter dispatches values of type T to registered listeners in
// registration order.
type Emitter[T any] struct {
	mu        sync.Mutex
	listeners atomic.Pointer[[]func(T)]
}

// On registers fn.
func (e *Emitter[T]) On(fn func(T)) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var old []func(T)
	if p := e.listeners.Load(); p != nil {
		old = *p
	}
	next := make([]func(T), len(old)+1)
	copy(next, old)
	next[len(old)] = fn
	e.listeners.Store(&next)
}

// Emit calls every listener registered at the time of the call.
// It reports whether at least one listener was invoked.
func (e *Emitter[T]) Emit(v T) bool {
	p := e.listeners.Load()
	if p == nil || len(*p) == 0 {
		return false
	}
	for _, fn := range *p {
		fn(v)
	}
	return true
}

// RemoveAll drops every listener. Safe on an empty emitter.
func (e *Emitter[T]) RemoveAll() {
	e.mu.Lock()
	e.listeners.Store(nil)
	e.mu.Unlock()
}

// Len returns the number of registered listeners.
func (e *Emitter[T]) Len() int {
	p := e.listeners.Load()
	if p == nil {
		return 0
	}
	return len(*p)
}

// Signal is an Emitter for events that carry no value.
type Signal struct {
	e Emitter[struct{}]
}

// On registers fn.
func (s *Signal) On(fn func()) {
	if fn == nil {
		return
	}
	s.e.On(func(struct{}) { fn() })
}

// Emit calls every registered listener.
func (s *Signal) Emit() bool { return s.e.Emit(struct{}{}) }

// RemoveAll drops every listener.
func (s *Signal) RemoveAll() { s.e.RemoveAll() }

// Len returns the number of registered listeners.
func (s *Signal) Len() int { return s.e.Len() }
