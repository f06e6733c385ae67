// Package api
// Author: momentics@gmail.com
//
// Cancellation handle for scheduled work.

package api

// Cancelable is any operation that may be canceled.
type Cancelable interface {
	// Cancel attempts to abort the operation. It reports whether the
	// operation was stopped before it ran.
	Cancel() bool
	// Done signals completion/cancellation.
	Done() <-chan struct{}
}
