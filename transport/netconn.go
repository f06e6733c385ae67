// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-conn/api"
	"github.com/momentics/hioload-conn/internal/event"
)

// Conn adapts a net.Conn to api.Adapter.
//
// A reader goroutine pulls bytes off the socket and posts them to the loop;
// a writer goroutine drains the outbound buffer. While paused the reader
// stops reading, so the kernel window applies backpressure to the peer, and
// chunks already read are held until Resume.
type Conn struct {
	conn net.Conn
	loop api.Scheduler
	opts Options
	log  zerolog.Logger

	onData  event.Emitter[[]byte]
	onError event.Emitter[error]
	onClose event.Signal

	mu        sync.Mutex
	readCond  *sync.Cond
	writeCond *sync.Cond
	paused    bool
	closing   bool
	wbuf      []byte

	// held is only touched from loop callbacks.
	held *queue.Queue

	closeOnce  sync.Once
	closed     atomic.Bool
	readerDone chan struct{}
	writerDone chan struct{}

	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
}

var _ api.Adapter = (*Conn)(nil)

// NewConn wraps conn and starts its I/O goroutines. Events are delivered
// on loop. The Conn takes ownership of conn.
func NewConn(conn net.Conn, loop api.Scheduler, opts ...Option) *Conn {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Conn{
		conn:       conn,
		loop:       loop,
		opts:       o,
		held:       queue.New(),
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	c.log = o.Logger.With().
		Str("local", addrString(conn.LocalAddr())).
		Str("remote", addrString(conn.RemoteAddr())).
		Logger()
	c.readCond = sync.NewCond(&c.mu)
	c.writeCond = sync.NewCond(&c.mu)
	go c.readLoop()
	go c.writeLoop()
	return c
}

// Write implements api.Adapter.
func (c *Conn) Write(p []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return false
	}
	if len(p) > 0 {
		c.wbuf = append(c.wbuf, p...)
		c.writeCond.Signal()
	}
	return len(c.wbuf) < c.opts.WriteHighWater
}

// Pause implements api.Adapter.
func (c *Conn) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume implements api.Adapter. Held chunks are replayed on the loop
// before any newer data.
func (c *Conn) Resume() {
	c.mu.Lock()
	if !c.paused {
		c.mu.Unlock()
		return
	}
	c.paused = false
	c.readCond.Broadcast()
	c.mu.Unlock()
	c.post(c.flushHeld)
}

// Close stops reading, flushes buffered writes, closes the socket and then
// fires the close event once on the loop.
func (c *Conn) Close() error {
	c.shutdown()
	return nil
}

func (c *Conn) OnData(fn func([]byte)) { c.onData.On(fn) }
func (c *Conn) OnError(fn func(error))  { c.onError.On(fn) }
func (c *Conn) OnClose(fn func())       { c.onClose.On(fn) }

// RemoveAllListeners implements api.Adapter.
func (c *Conn) RemoveAllListeners() {
	c.onData.RemoveAll()
	c.onError.RemoveAll()
	c.onClose.RemoveAll()
}

func (c *Conn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Stats returns byte counters.
func (c *Conn) Stats() api.TransportStats {
	c.mu.Lock()
	buffered := len(c.wbuf)
	c.mu.Unlock()
	return api.TransportStats{
		BytesRead:    c.bytesRead.Load(),
		BytesWritten: c.bytesWritten.Load(),
		Buffered:     buffered,
	}
}

func (c *Conn) readLoop() {
	defer close(c.readerDone)
	buf := make([]byte, c.opts.ReadBufferSize)
	for {
		c.mu.Lock()
		for c.paused && !c.closing {
			c.readCond.Wait()
		}
		stop := c.closing
		c.mu.Unlock()
		if stop {
			return
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.bytesRead.Add(uint64(n))
			c.post(func() { c.deliver(chunk) })
		}
		if err != nil {
			if !c.isClosing() && !isGracefulClose(err) {
				c.log.Warn().Err(err).Msg("transport read failed")
				c.post(func() { c.emitError(err) })
			}
			c.shutdown()
			return
		}
	}
}

func (c *Conn) writeLoop() {
	defer close(c.writerDone)
	for {
		c.mu.Lock()
		for len(c.wbuf) == 0 && !c.closing {
			c.writeCond.Wait()
		}
		if len(c.wbuf) == 0 {
			c.mu.Unlock()
			return
		}
		out := c.wbuf
		c.wbuf = nil
		c.mu.Unlock()

		n, err := c.conn.Write(out)
		c.bytesWritten.Add(uint64(n))
		if err != nil {
			switch {
			case errors.Is(err, net.ErrClosed):
			case errors.Is(err, os.ErrDeadlineExceeded) && c.isClosing():
				c.log.Warn().Int("dropped", len(out)-n).Msg("flush timed out on close")
			default:
				c.log.Warn().Err(err).Msg("transport write failed")
				c.post(func() { c.emitError(err) })
			}
			c.mu.Lock()
			c.wbuf = nil
			c.mu.Unlock()
			c.shutdown()
			return
		}
	}
}

// shutdown starts the close sequence exactly once.
func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		c.readCond.Broadcast()
		c.writeCond.Broadcast()
		c.mu.Unlock()

		// Unblock a pending Read without dropping queued writes, and bound
		// the flush so a peer that stops reading cannot hold the close event.
		now := time.Now()
		_ = c.conn.SetReadDeadline(now)
		_ = c.conn.SetWriteDeadline(now.Add(c.opts.FlushTimeout))

		go func() {
			<-c.writerDone
			if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				c.log.Debug().Err(err).Msg("transport close")
			}
			<-c.readerDone
			c.post(c.fireClose)
		}()
	})
}

// deliver runs on the loop.
func (c *Conn) deliver(chunk []byte) {
	if c.closed.Load() {
		return
	}
	if c.isPaused() || c.held.Length() > 0 {
		c.held.Add(chunk)
		c.flushHeld()
		return
	}
	c.onData.Emit(chunk)
}

// flushHeld runs on the loop.
func (c *Conn) flushHeld() {
	for c.held.Length() > 0 && !c.closed.Load() && !c.isPaused() {
		c.onData.Emit(c.held.Remove().([]byte))
	}
}

func (c *Conn) emitError(err error) {
	if c.closed.Load() {
		return
	}
	c.onError.Emit(err)
}

// fireClose runs on the loop.
func (c *Conn) fireClose() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	for c.held.Length() > 0 {
		c.held.Remove()
	}
	c.log.Debug().
		Uint64("bytes_read", c.bytesRead.Load()).
		Uint64("bytes_written", c.bytesWritten.Load()).
		Msg("transport closed")
	c.onClose.Emit()
}

func (c *Conn) post(fn func()) {
	if err := c.loop.Post(fn); err != nil {
		c.log.Debug().Err(err).Msg("dropping transport event")
	}
}

func (c *Conn) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Conn) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func isGracefulClose(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
