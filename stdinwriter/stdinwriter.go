// Package stdinwriter is the external, out-of-core async stdin helper
// described only by interface in spec.md §6: a bounded queue of pending
// writes drained by a single background worker goroutine that calls
// child.SendStdin. The core (child, driver) never imports this package --
// it is an opaque consumer of Child.SendStdin, mirroring the teacher's
// Instance.PassThroughInput/SendBytes split between "read source" and
// "write to child" in internal/process/instance.go, generalized into a
// fire-and-forget queue instead of a direct blocking call.
package stdinwriter

import (
	"errors"
	"sync"
	"time"

	"github.com/nick/procdrive/child"
)

var (
	ErrAlreadyStarted = errors.New("stdinwriter: already started")
	ErrAlreadyStopped = errors.New("stdinwriter: already stopped")
	ErrNotAlive       = errors.New("stdinwriter: worker not alive")
	ErrBufferFull     = errors.New("stdinwriter: queue is full")
)

type write struct {
	c    *child.Child
	data []byte
}

// Writer is a single background worker draining a bounded queue of
// (child, bytes) writes into child.SendStdin, one at a time, in order.
type Writer struct {
	mu      sync.Mutex
	queue   chan write
	stop    chan struct{}
	done    chan struct{}
	started bool
	stopped bool
}

// New creates a Writer with the given bounded queue capacity. A
// non-positive capacity is treated as 1; Enqueue fails fast with
// ErrBufferFull once the queue fills.
func New(capacity int) *Writer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Writer{
		queue: make(chan write, capacity),
	}
}

// Start launches the background worker. Calling Start twice returns
// ErrAlreadyStarted.
func (w *Writer) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}
	w.started = true
	w.stop = make(chan struct{})
	w.done = make(chan struct{})

	go w.run()
	return nil
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case item := <-w.queue:
			_ = item.c.SendStdin(item.data)
		case <-w.stop:
			// Drain whatever is already queued before exiting, so a Stop
			// call doesn't silently drop writes that were already
			// accepted by Enqueue.
			for {
				select {
				case item := <-w.queue:
					_ = item.c.SendStdin(item.data)
					continue
				default:
				}
				return
			}
		}
	}
}

// Stop signals the worker to exit and waits up to timeout for it to do
// so. Calling Stop before Start, or twice, returns ErrAlreadyStopped.
func (w *Writer) Stop(timeout time.Duration) error {
	w.mu.Lock()
	if !w.started || w.stopped {
		w.mu.Unlock()
		return ErrAlreadyStopped
	}
	w.stopped = true
	close(w.stop)
	done := w.done
	w.mu.Unlock()

	if timeout <= 0 {
		<-done
		return nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return nil
	}
}

// Alive reports whether the worker goroutine is currently running.
func (w *Writer) Alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started || w.stopped {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// Enqueue submits bytes to be written to c's stdin by the background
// worker. Returns ErrNotAlive if the worker isn't running, or
// ErrBufferFull if the queue is at capacity.
func (w *Writer) Enqueue(c *child.Child, data []byte) error {
	if !w.Alive() {
		return ErrNotAlive
	}
	select {
	case w.queue <- write{c: c, data: data}:
		return nil
	default:
		return ErrBufferFull
	}
}
