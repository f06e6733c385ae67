// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations.

package api

// ConnState enumerates the lifecycle of a connection bridge.
type ConnState int32

const (
	StateActive ConnState = iota
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// BridgeStats provides per-connection counters for reporting.
type BridgeStats struct {
	CommandsReceived uint64
	CommandsSent     uint64
	Errors           uint64
	Transport        TransportStats
}
