package exports

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	ffiruntime "github.com/wippyai/ffi-runtime"
	"github.com/wippyai/ffi-runtime/boundary"
	"github.com/wippyai/ffi-runtime/host"
)

var _ host.ABIHost = (*Exports)(nil)

func (e *Exports) Namespace() string { return e.ns }

// Functions returns the ABI entry points. Pointers are wasm32 addresses in
// the calling guest's memory, or in the bound memory when the caller has
// none. Failures are reported as null results and logged.
func (e *Exports) Functions() map[string]host.Func {
	i32 := api.ValueTypeI32
	return map[string]host.Func{
		"max": {
			Fn:      e.abiMax,
			Params:  []api.ValueType{i32, i32},
			Results: []api.ValueType{i32},
		},
		"concat": {
			Fn:      e.abiConcat,
			Params:  []api.ValueType{i32, i32},
			Results: []api.ValueType{i32},
		},
		"free_char_p": {
			Fn:     e.abiFreeCharP,
			Params: []api.ValueType{i32},
		},
		"cabi_realloc": {
			Fn:      e.abiRealloc,
			Params:  []api.ValueType{i32, i32, i32, i32},
			Results: []api.ValueType{i32},
		},
		"async_get_ft": {
			Fn:      e.abiAsyncGetFT,
			Results: []api.ValueType{i32},
		},
		"test_spawner": {
			Fn:      e.abiTestSpawner,
			Results: []api.ValueType{i32},
		},
	}
}

// resolve returns the memory and allocator of the calling guest. A guest
// that re-exports these functions calls them through the host module, which
// has no memory; such calls use the bound memory.
func (e *Exports) resolve(mod api.Module) (ffiruntime.Memory, ffiruntime.Allocator, error) {
	if w := callerMemory(mod); w != nil {
		a, err := e.arenaFor(w.Mem)
		if err != nil {
			return nil, nil, err
		}
		return a.Memory(), a, nil
	}
	return e.bound()
}

func callerMemory(mod api.Module) *boundary.Wrapper {
	if mod == nil {
		return nil
	}
	return boundary.Wrap(mod.ExportedMemory("memory"))
}

func (e *Exports) arenaFor(m api.Memory) (*boundary.Arena, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a, ok := e.arenas[m]; ok {
		return a, nil
	}
	a, err := e.newArena(boundary.Wrap(m))
	if err != nil {
		return nil, err
	}
	e.arenas[m] = a
	return a, nil
}

func (e *Exports) fail(fn string, err error) {
	e.log.Warn("abi call failed", zap.String("function", fn), zap.Error(err))
}

// max(ptr, len) -> ptr to the greatest element, 0 when len is 0.
func (e *Exports) abiMax(_ context.Context, mod api.Module, stack []uint64) {
	ref := boundary.SliceRef{Ptr: api.DecodeU32(stack[0]), Len: api.DecodeU32(stack[1])}
	stack[0] = 0

	mem, _, err := e.resolve(mod)
	if err != nil {
		e.fail("max", err)
		return
	}
	xs, err := boundary.ReadI32s(mem, ref)
	if err != nil {
		e.fail("max", err)
		return
	}
	if i := maxIndex(xs); i >= 0 {
		stack[0] = api.EncodeU32(ref.ElemAddr(uint32(i), 4))
	}
}

// concat(a, b) -> owned char_p, 0 on failure.
func (e *Exports) abiConcat(_ context.Context, mod api.Module, stack []uint64) {
	a, b := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
	stack[0] = 0

	mem, alloc, err := e.resolve(mod)
	if err != nil {
		e.fail("concat", err)
		return
	}
	fst, err := boundary.ReadCharP(mem, a)
	if err != nil {
		e.fail("concat", err)
		return
	}
	snd, err := boundary.ReadCharP(mem, b)
	if err != nil {
		e.fail("concat", err)
		return
	}
	s, err := boundary.NewCharPBox(mem, alloc, fst+snd)
	if err != nil {
		e.fail("concat", err)
		return
	}
	stack[0] = api.EncodeU32(s.Ptr)
}

// free_char_p(ptr); null is a no-op.
func (e *Exports) abiFreeCharP(_ context.Context, mod api.Module, stack []uint64) {
	ptr := api.DecodeU32(stack[0])
	if ptr == 0 {
		return
	}
	mem, alloc, err := e.resolve(mod)
	if err != nil {
		e.fail("free_char_p", err)
		return
	}
	if err := boundary.FreeCharP(mem, alloc, ptr); err != nil {
		e.fail("free_char_p", err)
	}
}

// cabi_realloc(old, old_size, align, new_size) -> ptr, backed by the arena
// of the calling guest's memory.
func (e *Exports) abiRealloc(_ context.Context, mod api.Module, stack []uint64) {
	old := api.DecodeU32(stack[0])
	oldSize := api.DecodeU32(stack[1])
	align := api.DecodeU32(stack[2])
	newSize := api.DecodeU32(stack[3])
	stack[0] = 0

	mem, alloc, err := e.resolve(mod)
	if err != nil {
		e.fail("cabi_realloc", err)
		return
	}
	if newSize == 0 {
		alloc.Free(old, oldSize, align)
		return
	}
	ptr, err := alloc.Alloc(newSize, align)
	if err != nil {
		e.fail("cabi_realloc", err)
		return
	}
	if old != 0 {
		n := min(oldSize, newSize)
		data, err := mem.Read(old, n)
		if err == nil {
			err = mem.Write(ptr, data)
		}
		if err != nil {
			alloc.Free(ptr, newSize, align)
			e.fail("cabi_realloc", err)
			return
		}
		alloc.Free(old, oldSize, align)
	}
	stack[0] = api.EncodeU32(ptr)
}

func (e *Exports) abiAsyncGetFT(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(e.AsyncGetFT())
}

// test_spawner() -> 42, or -1 without an executor.
func (e *Exports) abiTestSpawner(_ context.Context, _ api.Module, stack []uint64) {
	if e.exec.IsNull() {
		e.fail("test_spawner", errNoExecutor)
		stack[0] = api.EncodeI32(-1)
		return
	}
	stack[0] = api.EncodeI32(e.TestSpawner(e.exec))
}
