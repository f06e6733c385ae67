// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package transport provides api.Adapter implementations over stream
// sockets: Conn wraps a net.Conn, FromFD and FromFile adopt raw connected
// descriptors. Every event is posted to the injected scheduler, so data,
// error and close listeners always run on the event loop goroutine.
package transport
