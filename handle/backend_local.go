package handle

import (
	"errors"
	"sync"
)

var (
	ErrClosed = errors.New("handle backend closed")
	ErrFull   = errors.New("handle backend full")
)

// A handle packs a slot index (plus one, so 0 stays null) in the low bits
// and the slot's generation in the high bits. Dropping a slot bumps its
// generation, so a stale handle to a reused slot no longer resolves.
const (
	indexBits = 22
	indexMask = 1<<indexBits - 1
	maxSlots  = indexMask
	genMask   = 1<<(32-indexBits) - 1
)

func makeHandle(idx int, gen uint32) Handle {
	return Handle(gen<<indexBits | uint32(idx+1))
}

// Generation returns the reuse generation encoded in h.
func (h Handle) Generation() uint32 { return uint32(h) >> indexBits }

func (h Handle) slot() int { return int(uint32(h)&indexMask) - 1 }

// LocalBackend is an in-memory slot table with generation-checked slot reuse.
type LocalBackend struct {
	entries  []entry
	freeList []int
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value any
	kind  uint32
	gen   uint32
	valid bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]int, 0, 16),
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(kind uint32, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	if n := len(b.freeList); n > 0 {
		idx := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		e := &b.entries[idx]
		e.kind, e.value, e.valid = kind, value, true
		return makeHandle(idx, e.gen), nil
	}

	if len(b.entries) >= maxSlots {
		return 0, ErrFull
	}
	b.entries = append(b.entries, entry{kind: kind, value: value, valid: true})
	return makeHandle(len(b.entries)-1, 0), nil
}

// lookup returns the live entry h names. Caller holds the lock.
func (b *LocalBackend) lookup(h Handle) *entry {
	if h == 0 {
		return nil
	}
	idx := h.slot()
	if idx < 0 || idx >= len(b.entries) {
		return nil
	}
	e := &b.entries[idx]
	if !e.valid || e.gen != h.Generation() {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(h Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(h)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// Kind returns the kind tag stored with a handle.
func (b *LocalBackend) Kind(h Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(h)
	if e == nil {
		return 0, false
	}
	return e.kind, true
}

// Drop removes a value. The slot becomes reusable under a new generation.
func (b *LocalBackend) Drop(h Handle) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(h)
	if e == nil {
		return nil, false
	}

	value := e.value
	e.valid = false
	e.value = nil
	e.gen = (e.gen + 1) & genMask
	b.freeList = append(b.freeList, h.slot())

	return value, true
}

// Close releases all values, running Drop on those that implement Dropper.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	var pending []Dropper
	if !b.closed {
		b.closed = true
		for i := range b.entries {
			if b.entries[i].valid {
				if d, ok := b.entries[i].value.(Dropper); ok {
					pending = append(pending, d)
				}
			}
		}
		b.entries = nil
		b.freeList = nil
	}
	b.mu.Unlock()

	// Drop outside the lock: destructors may touch other handles.
	for _, d := range pending {
		d.Drop()
	}
	return nil
}

// Len returns the number of live handles.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.entries) - len(b.freeList)
}

// Each iterates over all live handles.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(makeHandle(i, e.gen), e.kind, e.value) {
				break
			}
		}
	}
}
