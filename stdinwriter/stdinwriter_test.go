package stdinwriter

import (
	"testing"
	"time"

	"github.com/nick/procdrive/child"
)

func TestStartTwiceFails(t *testing.T) {
	w := New(4)
	if err := w.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer w.Stop(time.Second)

	if err := w.Start(); err != ErrAlreadyStarted {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestStopBeforeStartFails(t *testing.T) {
	w := New(4)
	if err := w.Stop(time.Second); err != ErrAlreadyStopped {
		t.Fatalf("expected ErrAlreadyStopped, got %v", err)
	}
}

func TestStopTwiceFails(t *testing.T) {
	w := New(4)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Stop(time.Second); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := w.Stop(time.Second); err != ErrAlreadyStopped {
		t.Fatalf("expected ErrAlreadyStopped, got %v", err)
	}
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	w := New(4)
	c, err := child.NewChild("sleep 1")
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}
	if err := w.Enqueue(c, []byte("x")); err != ErrNotAlive {
		t.Fatalf("expected ErrNotAlive, got %v", err)
	}
}

func TestEnqueueFailsWhenBufferFull(t *testing.T) {
	w := New(1)
	c, err := child.NewChild("sleep 1")
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Kill()

	// Fill the queue without a running worker draining it.
	w.started = true // simulate Alive()==true without a draining goroutine
	w.queue <- write{c: c, data: []byte("first")}

	if err := w.Enqueue(c, []byte("second")); err != ErrBufferFull {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
}

func TestEnqueueDeliversBytesToChildStdin(t *testing.T) {
	c, err := child.NewChild("read line; echo \"got:$line\"")
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Join()

	w := New(4)
	if err := w.Start(); err != nil {
		t.Fatalf("Start writer: %v", err)
	}
	defer w.Stop(time.Second)

	if err := w.Enqueue(c, []byte("hello\n")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var out []byte
	for time.Now().Before(deadline) && len(out) == 0 {
		obs, err := c.ReadAvailable()
		if err != nil {
			break
		}
		if obs != nil {
			out = append(out, obs.Stdout...)
		}
		time.Sleep(time.Millisecond)
	}
	if string(out) != "got:hello\n" {
		t.Fatalf("expected %q, got %q", "got:hello\n", out)
	}
}

func TestAliveReflectsLifecycle(t *testing.T) {
	w := New(4)
	if w.Alive() {
		t.Fatalf("expected not alive before Start")
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !w.Alive() {
		t.Fatalf("expected alive after Start")
	}
	if err := w.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if w.Alive() {
		t.Fatalf("expected not alive after Stop")
	}
}
