//go:build unix

// File: transport/fd_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Adoption of raw, already-connected stream socket descriptors.

package transport

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-conn/api"
)

// FromFD adopts a raw connected stream socket descriptor. On success the
// returned Conn owns fd; on failure fd is left untouched.
func FromFD(fd uintptr, loop api.Scheduler, opts ...Option) (*Conn, error) {
	if err := validateStreamSocket(int(fd)); err != nil {
		return nil, err
	}
	return FromFile(os.NewFile(fd, fmt.Sprintf("socket:%d", fd)), loop, opts...)
}

// FromFile adopts a connected stream socket held by f. On success f is
// closed and the returned Conn owns a duplicate of its descriptor.
func FromFile(f *os.File, loop api.Scheduler, opts ...Option) (*Conn, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil *os.File", api.ErrInvalidTransport)
	}
	raw, err := f.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", api.ErrInvalidTransport, f.Name(), err)
	}
	var verr error
	if err := raw.Control(func(fd uintptr) { verr = validateStreamSocket(int(fd)) }); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", api.ErrInvalidTransport, f.Name(), err)
	}
	if verr != nil {
		return nil, verr
	}

	nc, err := net.FileConn(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", api.ErrInvalidTransport, f.Name(), err)
	}
	_ = f.Close()
	return NewConn(nc, loop, opts...), nil
}

func validateStreamSocket(fd int) error {
	soType, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil {
		return fmt.Errorf("%w: fd %d is not a socket: %v", api.ErrInvalidTransport, fd, err)
	}
	if soType != unix.SOCK_STREAM {
		return fmt.Errorf("%w: fd %d is not a stream socket (type %d)", api.ErrInvalidTransport, fd, soType)
	}
	if _, err := unix.Getpeername(fd); err != nil {
		return fmt.Errorf("%w: fd %d is not connected: %v", api.ErrInvalidTransport, fd, err)
	}
	return nil
}
