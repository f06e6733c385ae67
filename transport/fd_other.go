//go:build !unix

// File: transport/fd_other.go
// Author: momentics <momentics@gmail.com>
//
// Raw descriptor adoption is only available on unix platforms.

package transport

import (
	"fmt"
	"os"

	"github.com/momentics/hioload-conn/api"
)

// FromFD rejects raw descriptors on this platform.
func FromFD(fd uintptr, loop api.Scheduler, opts ...Option) (*Conn, error) {
	return nil, fmt.Errorf("%w: raw descriptor %d: %v", api.ErrInvalidTransport, fd, api.ErrNotSupported)
}

// FromFile rejects file handles on this platform.
func FromFile(f *os.File, loop api.Scheduler, opts ...Option) (*Conn, error) {
	return nil, fmt.Errorf("%w: file handle: %v", api.ErrInvalidTransport, api.ErrNotSupported)
}
