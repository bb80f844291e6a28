package vptr

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wippyai/ffi-runtime/handle"
)

// All producer heaps share one handle table so a handle is unique across
// flavors and a single observer sees every lifecycle event.
var (
	table = handle.NewTable()

	kindMu    sync.Mutex
	kindNames = map[uint32]string{}
	nextKind  uint32
)

// Observe subscribes o to lifecycle events of every producer heap.
func Observe(o handle.Observer) { table.Subscribe(o) }

// Unobserve removes an observer added with Observe.
func Unobserve(o handle.Observer) { table.Unsubscribe(o) }

// KindNames returns the heap name for every registered kind, suitable for
// handle.NewLogObserver.
func KindNames() map[uint32]string {
	kindMu.Lock()
	defer kindMu.Unlock()
	out := make(map[uint32]string, len(kindNames))
	for k, v := range kindNames {
		out[k] = v
	}
	return out
}

// Live returns the number of producer values currently alive in all heaps.
func Live() int { return table.Len() }

type cell[T any] struct {
	value  T
	onDrop func()
	refs   atomic.Int32
	taken  atomic.Bool
}

func (c *cell[T]) Drop() {
	if c.onDrop != nil && !c.taken.Load() {
		c.onDrop()
	}
}

// Heap stores producer-private state behind erased handles.
//
// Unique values are created with Alloc and destroyed with Free. Shared values
// are created with Alloc (count 1), then Retain/Release adjust an atomic count
// and the value is destroyed by the Release that brings it to zero.
type Heap[T any] struct {
	name  string
	kind  uint32
	cells *handle.Typed[*cell[T]]
}

// NewHeap registers a new heap. Heaps are meant to be package-level values of
// the producer that owns them.
func NewHeap[T any](name string) *Heap[T] {
	kindMu.Lock()
	nextKind++
	kind := nextKind
	kindNames[kind] = name
	kindMu.Unlock()

	return &Heap[T]{
		name:  name,
		kind:  kind,
		cells: handle.NewTyped[*cell[T]](table, kind),
	}
}

// Name returns the heap label.
func (h *Heap[T]) Name() string { return h.name }

// Alloc stores v with a count of one. onDrop, if non-nil, runs exactly once
// when the value is destroyed.
func (h *Heap[T]) Alloc(v T, onDrop func()) Erased {
	c := &cell[T]{value: v, onDrop: onDrop}
	c.refs.Store(1)
	p := h.cells.Insert(c)
	if p == 0 {
		panic(fmt.Sprintf("vptr: heap %q cannot allocate (closed or full)", h.name))
	}
	return p
}

// Load returns the value behind p.
func (h *Heap[T]) Load(p Erased) T {
	return h.cell(p).value
}

// Retain increments the shared count of p.
func (h *Heap[T]) Retain(p Erased) {
	h.cell(p).refs.Add(1)
	table.Emit(handle.Event{Type: handle.EventRetained, Handle: p, Kind: h.kind})
}

// Release decrements the shared count of p and destroys the value when it
// reaches zero. It reports whether the value was destroyed.
func (h *Heap[T]) Release(p Erased) bool {
	c := h.cell(p)
	if c.refs.Add(-1) > 0 {
		table.Emit(handle.Event{Type: handle.EventReleased, Handle: p, Kind: h.kind})
		return false
	}
	h.cells.Remove(p)
	return true
}

// Take moves the value behind p out of the heap. The handle is dead once
// Take returns; the returned done func runs the value's cleanup and must be
// called once the value is no longer used.
func (h *Heap[T]) Take(p Erased) (T, func()) {
	c := h.cell(p)
	if !c.taken.CompareAndSwap(false, true) {
		h.dead(p)
	}
	h.cells.Remove(p)
	done := func() {}
	if c.onDrop != nil {
		done = c.onDrop
	}
	return c.value, done
}

// Free destroys the value behind p regardless of its count.
func (h *Heap[T]) Free(p Erased) {
	if _, ok := h.cells.Remove(p); !ok {
		h.dead(p)
	}
}

// Refs returns the current shared count of p.
func (h *Heap[T]) Refs(p Erased) int32 {
	return h.cell(p).refs.Load()
}

// Live returns the number of values alive in this heap.
func (h *Heap[T]) Live() int {
	return h.cells.Len()
}

func (h *Heap[T]) cell(p Erased) *cell[T] {
	c, ok := h.cells.Get(p)
	if !ok {
		h.dead(p)
	}
	return c
}

// Dispatch through a released handle is a caller contract violation. The
// lookup already happened, so fault loudly instead of returning garbage.
func (h *Heap[T]) dead(p Erased) {
	panic(fmt.Sprintf("vptr: use of released handle %#x in heap %q", uint32(p), h.name))
}
