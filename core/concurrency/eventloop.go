// File: core/concurrency/eventloop.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventLoop is the single-goroutine reactor that every connection bridge,
// transport adapter and codec callback runs on. Tasks are queued FIFO and
// executed to completion one at a time, so state owned by loop callbacks
// needs no locking. Post is safe from any goroutine.
//
// The loop batches task execution, parks on a wake channel when idle and
// recovers panicking tasks so that one misbehaving connection cannot stop
// the others sharing the loop.

package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-conn/api"
)

// DefaultBatchSize bounds how many tasks are dequeued per lock acquisition.
const DefaultBatchSize = 64

// LoopOption customizes EventLoop construction.
type LoopOption func(*EventLoop)

// WithBatchSize overrides the number of tasks dequeued per cycle.
func WithBatchSize(n int) LoopOption {
	return func(el *EventLoop) {
		if n > 0 {
			el.batchSize = n
		}
	}
}

// WithLogger sets the logger used for recovered task panics.
func WithLogger(l zerolog.Logger) LoopOption {
	return func(el *EventLoop) {
		el.log = l
	}
}

// EventLoop implements api.Scheduler on a single goroutine.
type EventLoop struct {
	mu        sync.Mutex
	tasks     *queue.Queue // of func(); guarded by mu
	batchSize int
	log       zerolog.Logger

	wakeCh  chan struct{} // capacity 1, signals new work
	quitCh  chan struct{} // closed on Stop()
	doneCh  chan struct{} // closed after Run() exits
	quit    sync.Once
	started atomic.Bool
	running atomic.Bool
	stopped atomic.Bool

	executed atomic.Uint64
	panics   atomic.Uint64
}

var _ api.Scheduler = (*EventLoop)(nil)

// NewEventLoop creates a stopped EventLoop. Call Run to start it.
func NewEventLoop(opts ...LoopOption) *EventLoop {
	el := &EventLoop{
		tasks:     queue.New(),
		batchSize: DefaultBatchSize,
		log:       zerolog.Nop(),
		wakeCh:    make(chan struct{}, 1),
		quitCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(el)
	}
	return el
}

// Post queues fn for execution on the loop goroutine.
func (el *EventLoop) Post(fn func()) error {
	if fn == nil {
		return api.ErrInvalidArgument
	}
	if el.stopped.Load() {
		return api.ErrLoopStopped
	}
	el.mu.Lock()
	el.tasks.Add(fn)
	el.mu.Unlock()

	select {
	case el.wakeCh <- struct{}{}:
	default:
	}
	return nil
}

// AfterFunc posts fn to the loop once d has elapsed. Cancel prevents fn from
// running if it has not started yet.
func (el *EventLoop) AfterFunc(d time.Duration, fn func()) api.Cancelable {
	t := &loopTimer{done: make(chan struct{})}
	t.timer = time.AfterFunc(d, func() {
		err := el.Post(func() {
			if t.state.CompareAndSwap(timerPending, timerFired) {
				close(t.done)
				fn()
			}
		})
		if err != nil && t.state.CompareAndSwap(timerPending, timerCanceled) {
			close(t.done)
		}
	})
	return t
}

// Run executes queued tasks until Stop is called or ctx is cancelled.
// A loop runs at most once; later calls return api.ErrLoopStopped.
func (el *EventLoop) Run(ctx context.Context) error {
	if !el.started.CompareAndSwap(false, true) {
		return api.ErrLoopStopped
	}
	el.running.Store(true)
	defer func() {
		el.stopped.Store(true)
		el.running.Store(false)
		close(el.doneCh)
	}()

	batch := make([]func(), 0, el.batchSize)
	for {
		batch = el.dequeue(batch[:0])
		if len(batch) > 0 {
			for _, task := range batch {
				el.execute(task)
			}
			continue
		}

		select {
		case <-el.quitCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-el.wakeCh:
		}
	}
}

// RunPending synchronously executes queued tasks, including tasks posted by
// those tasks, until the queue is empty. It returns the number of tasks run.
// It must not be called while Run is active.
func (el *EventLoop) RunPending() int {
	n := 0
	batch := make([]func(), 0, el.batchSize)
	for {
		batch = el.dequeue(batch[:0])
		if len(batch) == 0 {
			return n
		}
		for _, task := range batch {
			el.execute(task)
			n++
		}
	}
}

// Pending returns the number of queued tasks.
func (el *EventLoop) Pending() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.tasks.Length()
}

// Executed returns the number of tasks run so far.
func (el *EventLoop) Executed() uint64 {
	return el.executed.Load()
}

// Panics returns the number of recovered task panics.
func (el *EventLoop) Panics() uint64 {
	return el.panics.Load()
}

// Stop signals Run to exit and waits for it. Queued tasks that have not
// started are dropped. Stop is idempotent.
func (el *EventLoop) Stop() {
	el.stopped.Store(true)
	el.quit.Do(func() { close(el.quitCh) })
	if el.started.Load() {
		<-el.doneCh
	}
}

func (el *EventLoop) dequeue(batch []func()) []func() {
	el.mu.Lock()
	for i := 0; i < el.batchSize && el.tasks.Length() > 0; i++ {
		batch = append(batch, el.tasks.Remove().(func()))
	}
	el.mu.Unlock()
	return batch
}

func (el *EventLoop) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			el.panics.Add(1)
			el.log.Error().Interface("panic", r).Msg("event loop task panicked")
		}
	}()
	el.executed.Add(1)
	task()
}

const (
	timerPending int32 = iota
	timerFired
	timerCanceled
)

type loopTimer struct {
	timer *time.Timer
	state atomic.Int32
	done  chan struct{}
}

func (t *loopTimer) Cancel() bool {
	if !t.state.CompareAndSwap(timerPending, timerCanceled) {
		return false
	}
	t.timer.Stop()
	close(t.done)
	return true
}

func (t *loopTimer) Done() <-chan struct{} {
	return t.done
}
