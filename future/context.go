package future

import (
	"github.com/wippyai/ffi-runtime/closure"
	"github.com/wippyai/ffi-runtime/vptr"
)

// Waker schedules another poll of the future it was obtained for. It can be
// called from any goroutine any number of times, including after the future
// completed, and never panics.
type Waker = closure.ArcFn0[vptr.Void]

// NewWaker wraps fn as a waker with a count of one.
func NewWaker(fn func()) Waker {
	return closure.NewArcFn0(func() vptr.Void {
		fn()
		return vptr.Void{}
	})
}

// NoopWaker returns a waker that does nothing.
func NoopWaker() Waker {
	return NewWaker(func() {})
}

// ContextVTable is the vtable of the poll context handed to Poll.
type ContextVTable struct {
	Wake     func(vptr.Erased)
	GetWaker func(vptr.Erased) Waker
}

// Context is borrowed for the duration of a single Poll call. Futures that
// return Pending obtain a Waker from it to arrange their next poll.
type Context struct {
	vptr.VirtualPtr[ContextVTable]
}

var contexts = vptr.NewHeap[Waker]("future.context")

var contextVTable = ContextVTable{
	Wake:     func(p vptr.Erased) { contexts.Load(p).Call() },
	GetWaker: func(p vptr.Erased) Waker { return contexts.Load(p).Clone() },
}

// NewContext builds a poll context around w. The context borrows w: the
// driver keeps its own reference and must Close the context before
// releasing it.
func NewContext(w Waker) Context {
	p := contexts.Alloc(w, nil)
	return Context{vptr.FromRawParts(p, &contextVTable)}
}

// Wake wakes the task being polled.
func (cx Context) Wake() { cx.VTable.Wake(cx.Ptr) }

// Waker returns a retained waker for the task being polled. The caller owns
// the reference and must Release it.
func (cx Context) Waker() Waker { return cx.VTable.GetWaker(cx.Ptr) }

// Close ends the context. It is called by the driver, never by futures.
func (cx Context) Close() { contexts.Free(cx.Ptr) }
