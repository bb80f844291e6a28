package boundary

import (
	"context"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero/api"

	ffiruntime "github.com/wippyai/ffi-runtime"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/layout"
)

// WrapAllocator adapts a guest's exported cabi_realloc to ffiruntime.Allocator.
func WrapAllocator(ctx context.Context, fn api.Function) *AllocatorWrapper {
	if fn == nil {
		return nil
	}
	return &AllocatorWrapper{Ctx: ctx, Fn: fn}
}

var _ ffiruntime.Allocator = (*AllocatorWrapper)(nil)

// AllocatorWrapper adapts wazero api.Function (cabi_realloc) to
// ffiruntime.Allocator.
type AllocatorWrapper struct {
	Ctx context.Context
	Fn  api.Function
}

// Alloc allocates memory using cabi_realloc.
func (a *AllocatorWrapper) Alloc(size, align uint32) (uint32, error) {
	results, err := a.Fn.Call(a.Ctx, 0, 0, uint64(align), uint64(size))
	if err != nil {
		return 0, errors.New(errors.PhaseBoundary, errors.KindAllocation).
			Slot("cabi_realloc").
			Cause(err).
			Detail("allocate %d bytes", size).
			Build()
	}
	if len(results) == 0 || results[0] == 0 {
		return 0, errors.AllocationFailed(errors.PhaseBoundary, size, align)
	}
	return uint32(results[0]), nil
}

// Free deallocates memory using cabi_realloc.
func (a *AllocatorWrapper) Free(ptr, size, align uint32) {
	_, _ = a.Fn.Call(a.Ctx, uint64(ptr), uint64(size), uint64(align), 0)
}

var _ ffiruntime.Allocator = (*Arena)(nil)

type span struct {
	start, size uint32
}

// Arena is a first-fit free-list allocator over [base, base+size) of a
// memory, for memories whose owner exports no allocator. Address 0 is never
// handed out, so 0 stays usable as null.
type Arena struct {
	mem   ffiruntime.Memory
	free  []span // sorted by start, coalesced
	live  map[uint32]uint32
	base  uint32
	limit uint32
	mu    sync.Mutex
}

// NewArena creates an arena over size bytes of mem starting at base.
func NewArena(mem ffiruntime.Memory, base, size uint32) (*Arena, error) {
	if base == 0 {
		base = 8
		if size < 8 {
			return nil, errors.InvalidInput(errors.PhaseBoundary, "arena too small")
		}
		size -= 8
	}
	if uint64(base)+uint64(size) > 1<<32 {
		return nil, errors.Overflow(errors.PhaseBoundary, uint64(base)+uint64(size), "u32")
	}
	if s, ok := mem.(ffiruntime.MemorySizer); ok && base+size > s.Size() {
		return nil, errors.OutOfBounds(errors.PhaseBoundary, base, size)
	}
	return &Arena{
		mem:   mem,
		free:  []span{{start: base, size: size}},
		live:  make(map[uint32]uint32),
		base:  base,
		limit: base + size,
	}, nil
}

// Memory returns the memory the arena allocates in.
func (a *Arena) Memory() ffiruntime.Memory { return a.mem }

// Alloc returns a zeroed region of size bytes aligned to align.
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}
	if size == 0 {
		size = 1
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i, s := range a.free {
		start := layout.AlignTo(s.start, align)
		pad := start - s.start
		if uint64(pad)+uint64(size) > uint64(s.size) {
			continue
		}

		// zero before claiming so a failed write leaves the arena untouched
		if err := a.mem.Write(start, make([]byte, size)); err != nil {
			return 0, err
		}

		var repl []span
		if pad > 0 {
			repl = append(repl, span{start: s.start, size: pad})
		}
		if rest := s.size - pad - size; rest > 0 {
			repl = append(repl, span{start: start + size, size: rest})
		}
		a.free = append(a.free[:i], append(repl, a.free[i+1:]...)...)
		a.live[start] = size
		return start, nil
	}
	return 0, errors.AllocationFailed(errors.PhaseBoundary, size, align)
}

// Free releases a region returned by Alloc. Unknown pointers are ignored.
func (a *Arena) Free(ptr, _, _ uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	size, ok := a.live[ptr]
	if !ok {
		return
	}
	delete(a.live, ptr)

	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].start > ptr })
	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = span{start: ptr, size: size}

	// coalesce with neighbours
	if i+1 < len(a.free) && a.free[i].start+a.free[i].size == a.free[i+1].start {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].start+a.free[i-1].size == a.free[i].start {
		a.free[i-1].size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
}

// InUse returns the number of live allocations.
func (a *Arena) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Available returns the number of free bytes.
func (a *Arena) Available() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n uint32
	for _, s := range a.free {
		n += s.size
	}
	return n
}
