// control/registry.go
// Author: momentics <momentics@gmail.com>
//
// Live connection registry and debug probe table.

package control

import (
	"sort"
	"sync"
	"time"

	"github.com/momentics/hioload-conn/api"
)

// Conn is the part of a live connection the registry needs.
type Conn interface {
	Stats() api.BridgeStats
	Disconnect()
}

// Registry holds live connections and named probes.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]Conn
	probes  map[string]func() any
	opened  uint64
	updated time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]Conn),
		probes: make(map[string]func() any),
	}
}

// Track records a live connection. A second Track with the same id replaces
// the entry.
func (r *Registry) Track(id string, c Conn) {
	r.mu.Lock()
	r.conns[id] = c
	r.opened++
	r.updated = time.Now()
	r.mu.Unlock()
}

// Untrack forgets a connection. Unknown ids are ignored.
func (r *Registry) Untrack(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.updated = time.Now()
	r.mu.Unlock()
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// IDs returns live connection ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Connections returns the current stats of every live connection.
func (r *Registry) Connections() map[string]api.BridgeStats {
	conns := r.snapshot()
	out := make(map[string]api.BridgeStats, len(conns))
	for id, c := range conns {
		out[id] = c.Stats()
	}
	return out
}

// DisconnectAll asks every live connection to close and returns how many
// were asked. Entries leave the registry through Untrack as their close
// events run.
func (r *Registry) DisconnectAll() int {
	conns := r.snapshot()
	for _, c := range conns {
		c.Disconnect()
	}
	return len(conns)
}

func (r *Registry) snapshot() map[string]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Conn, len(r.conns))
	for id, c := range r.conns {
		out[id] = c
	}
	return out
}

// RegisterProbe inserts a named debug hook.
func (r *Registry) RegisterProbe(name string, fn func() any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes[name] = fn
}

// Dump returns the output of all probes plus connection totals.
// Probes run without the registry lock held.
func (r *Registry) Dump() map[string]any {
	r.mu.RLock()
	probes := make(map[string]func() any, len(r.probes))
	for k, fn := range r.probes {
		probes[k] = fn
	}
	out := map[string]any{
		"connections.live":   len(r.conns),
		"connections.opened": r.opened,
		"updated":            r.updated,
	}
	r.mu.RUnlock()

	for k, fn := range probes {
		out[k] = fn()
	}
	return out
}
