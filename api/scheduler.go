// Package api
// Author: momentics
//
// Scheduler contract for event-driven and timed callback execution.

package api

import "time"

// Scheduler runs callbacks on a single event loop goroutine.
type Scheduler interface {
	// Post queues fn to run on the loop. Callbacks run in Post order.
	Post(fn func()) error

	// AfterFunc runs fn on the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Cancelable
}
