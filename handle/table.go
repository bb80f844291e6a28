package handle

import (
	"sync"
	"sync/atomic"
)

// Table maps handles to producer values and fans lifecycle events out to
// observers.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
	observed  atomic.Bool
	closed    atomic.Bool
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value and returns its handle, or 0 once the table is closed.
func (t *Table) Insert(kind uint32, value any) Handle {
	if t.closed.Load() {
		return 0
	}

	h, err := t.backend.Create(kind, value)
	if err != nil {
		return 0
	}

	t.Emit(Event{
		Type:   EventCreated,
		Handle: h,
		Kind:   kind,
		Value:  value,
	})

	return h
}

// Get retrieves a value by handle.
func (t *Table) Get(h Handle) (any, bool) {
	return t.backend.Get(h)
}

// GetKind retrieves a value only if it was inserted with the given kind.
func (t *Table) GetKind(h Handle, kind uint32) (any, bool) {
	actual, ok := t.backend.Kind(h)
	if !ok || actual != kind {
		return nil, false
	}
	return t.backend.Get(h)
}

// Remove drops a value and returns (value, true) if found.
// Values implementing Dropper are dropped after removal.
func (t *Table) Remove(h Handle) (any, bool) {
	kind, _ := t.backend.Kind(h)
	value, ok := t.backend.Drop(h)
	if !ok {
		return nil, false
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.Emit(Event{
		Type:   EventDropped,
		Handle: h,
		Kind:   kind,
		Value:  value,
	})

	return value, true
}

// Emit delivers an event to all observers. It is a no-op while nobody is
// subscribed, which keeps retain/release free of locking.
func (t *Table) Emit(e Event) {
	if !t.observed.Load() {
		return
	}

	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnHandleEvent(e)
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
	t.observed.Store(true)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			break
		}
	}
	t.observed.Store(len(t.observers) > 0)
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Clear removes every live handle.
func (t *Table) Clear() {
	// Collect first so Remove does not run under the backend lock
	var handles []Handle
	t.backend.Each(func(h Handle, _ uint32, _ any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close releases all values and stops accepting inserts.
func (t *Table) Close() error {
	t.closed.Store(true)
	return t.backend.Close()
}

// Typed provides type-safe access to a table region holding values of one kind.
type Typed[T any] struct {
	table *Table
	kind  uint32
}

// NewTyped returns a typed view of t for values stored under kind.
func NewTyped[T any](t *Table, kind uint32) *Typed[T] {
	return &Typed[T]{table: t, kind: kind}
}

// Insert adds a value and returns its handle.
func (tt *Typed[T]) Insert(value T) Handle {
	return tt.table.Insert(tt.kind, value)
}

// Get retrieves a value by handle.
func (tt *Typed[T]) Get(h Handle) (T, bool) {
	v, ok := tt.table.GetKind(h, tt.kind)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Remove drops a value and returns it.
func (tt *Typed[T]) Remove(h Handle) (T, bool) {
	if _, ok := tt.table.GetKind(h, tt.kind); !ok {
		var zero T
		return zero, false
	}
	v, ok := tt.table.Remove(h)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Len returns the number of live handles of this kind.
func (tt *Typed[T]) Len() int {
	n := 0
	tt.Each(func(Handle, T) bool {
		n++
		return true
	})
	return n
}

// Each iterates over live handles of this kind.
func (tt *Typed[T]) Each(fn func(Handle, T) bool) {
	tt.table.backend.Each(func(h Handle, kind uint32, v any) bool {
		if kind != tt.kind {
			return true
		}
		typed, ok := v.(T)
		if !ok {
			return true
		}
		return fn(h, typed)
	})
}
