package future

import (
	"sync"

	"github.com/wippyai/ffi-runtime/errors"
)

type oneshotState uint8

const (
	oneshotEmpty oneshotState = iota
	oneshotSent
	oneshotClosed
)

type oneshot[T any] struct {
	mu       sync.Mutex
	value    T
	waker    Waker
	state    oneshotState
	recvGone bool
	hasWaker bool
}

// Sender is the producing half of a oneshot channel.
type Sender[T any] struct {
	c *oneshot[T]
}

// Receiver is the consuming half of a oneshot channel. It is a Task.
type Receiver[T any] struct {
	c *oneshot[T]
}

// Oneshot returns a single-value channel whose receiving end can be polled.
func Oneshot[T any]() (*Sender[T], *Receiver[T]) {
	c := &oneshot[T]{}
	return &Sender[T]{c: c}, &Receiver[T]{c: c}
}

// Send delivers v and wakes the receiver. It reports false when a value was
// already sent, the sender was closed, or the receiver is gone.
func (s *Sender[T]) Send(v T) bool {
	c := s.c
	c.mu.Lock()
	if c.state != oneshotEmpty || c.recvGone {
		c.mu.Unlock()
		return false
	}
	c.value = v
	c.state = oneshotSent
	w, ok := c.takeWaker()
	c.mu.Unlock()

	if ok {
		w.Call()
		w.Release()
	}
	return true
}

// Close drops the sender. If nothing was sent the receiver completes with a
// cancellation.
func (s *Sender[T]) Close() {
	c := s.c
	c.mu.Lock()
	if c.state != oneshotEmpty {
		c.mu.Unlock()
		return
	}
	c.state = oneshotClosed
	w, ok := c.takeWaker()
	c.mu.Unlock()

	if ok {
		w.Call()
		w.Release()
	}
}

// Poll completes once a value was sent or the sender was closed. On every
// Pending result the receiver holds a waker from cx, releasing the one it
// held before.
func (r *Receiver[T]) Poll(cx Context) (T, PollFuture) {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != oneshotEmpty {
		return c.value, Completed
	}
	if c.hasWaker {
		c.waker.Release()
	}
	c.waker = cx.Waker()
	c.hasWaker = true
	var zero T
	return zero, Pending
}

// Err returns a cancellation error if the sender was closed without sending.
func (r *Receiver[T]) Err() error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if r.c.state == oneshotClosed {
		return errors.Canceled(errors.PhasePoll, "sender dropped without a value")
	}
	return nil
}

// Drop gives up the receiver. Later sends fail.
func (r *Receiver[T]) Drop() {
	c := r.c
	c.mu.Lock()
	c.recvGone = true
	w, ok := c.takeWaker()
	c.mu.Unlock()

	if ok {
		w.Release()
	}
}

func (c *oneshot[T]) takeWaker() (Waker, bool) {
	if !c.hasWaker {
		return Waker{}, false
	}
	w := c.waker
	c.waker = Waker{}
	c.hasWaker = false
	return w, true
}
