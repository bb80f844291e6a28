package future

import (
	"sync"
	"time"

	"github.com/wippyai/ffi-runtime/vptr"
)

// VTable is the future-poll vtable.
type VTable struct {
	Poll func(vptr.Erased, Context) PollFuture
	Drop func(vptr.Erased)
}

// Future is an owned, type-erased future. Its driver polls it until Completed
// and then drops it; a future that is dropped while Pending is cancelled.
type Future struct {
	vptr.VirtualPtr[VTable]
}

// Poll advances the future. Polls of one future never overlap.
func (f Future) Poll(cx Context) PollFuture { return f.VTable.Poll(f.Ptr, cx) }

// Drop destroys the future, cancelling it if it has not completed.
func (f Future) Drop() { f.VTable.Drop(f.Ptr) }

// Poller is the producer side of a future.
type Poller interface {
	Poll(cx Context) PollFuture
}

// PollerFunc adapts a function to Poller.
type PollerFunc func(cx Context) PollFuture

func (f PollerFunc) Poll(cx Context) PollFuture { return f(cx) }

// Pollers that also implement Dropper are told when their future is dropped.
type Dropper interface {
	Drop()
}

var futures = vptr.NewHeap[Poller]("future")

var futureVTable = VTable{
	Poll: func(p vptr.Erased, cx Context) PollFuture { return futures.Load(p).Poll(cx) },
	Drop: func(p vptr.Erased) { futures.Free(p) },
}

// New erases p into a Future.
func New(p Poller) Future {
	var onDrop func()
	if d, ok := p.(Dropper); ok {
		onDrop = d.Drop
	}
	h := futures.Alloc(p, onDrop)
	return Future{vptr.FromRawParts(h, &futureVTable)}
}

// FromFunc erases a poll function into a Future.
func FromFunc(f PollerFunc) Future { return New(f) }

// Ready returns a future that completes on its first poll.
func Ready() Future {
	return FromFunc(func(Context) PollFuture { return Completed })
}

// Lazy returns a future that runs fn on its first poll and completes.
func Lazy(fn func()) Future {
	return FromFunc(func(Context) PollFuture {
		fn()
		return Completed
	})
}

// After returns a future that completes once d has elapsed. The timer fires
// on its own goroutine and wakes the last registered waker.
func After(d time.Duration) Future {
	return New(&timer{d: d})
}

type timer struct {
	mu    sync.Mutex
	d     time.Duration
	t     *time.Timer
	waker Waker
	armed bool
	fired bool
}

func (t *timer) Poll(cx Context) PollFuture {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fired {
		return Completed
	}
	if t.armed {
		t.waker.Release()
	}
	t.waker = cx.Waker()
	if !t.armed {
		t.armed = true
		t.t = time.AfterFunc(t.d, t.fire)
	}
	return Pending
}

func (t *timer) fire() {
	t.mu.Lock()
	t.fired = true
	w := t.waker
	t.armed = false
	t.waker = Waker{}
	t.mu.Unlock()

	if !w.IsNull() {
		w.Call()
		w.Release()
	}
}

func (t *timer) Drop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.t != nil {
		t.t.Stop()
	}
	if t.armed && !t.waker.IsNull() {
		t.waker.Release()
		t.waker = Waker{}
	}
	t.armed = false
}
