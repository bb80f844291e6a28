package executor

import (
	"github.com/wippyai/ffi-runtime/closure"
	"github.com/wippyai/ffi-runtime/future"
	"github.com/wippyai/ffi-runtime/vptr"
)

// VTable is the executor vtable. Slot order is fixed.
type VTable struct {
	Retain        func(vptr.Erased)
	Release       func(vptr.Erased)
	Spawn         func(vptr.Erased, future.Future) future.Future
	SpawnBlocking func(vptr.Erased, closure.BoxFn0[vptr.Void]) future.Future
	BlockOn       func(vptr.Erased, future.Future)
	Enter         func(vptr.Erased) vptr.DropGlue
}

// Executor is a shared executor capability. It is injected into code that
// needs to run futures; that code never assumes any particular scheduler.
type Executor struct {
	vptr.VirtualPtr[VTable]
}

// Clone retains the executor.
func (e Executor) Clone() Executor {
	e.VTable.Retain(e.Ptr)
	return e
}

// Release gives up this reference.
func (e Executor) Release() { e.VTable.Release(e.Ptr) }

// DynSpawn hands f to the executor and returns a future that completes when
// f has completed. Dropping the returned future detaches f; it keeps running.
func (e Executor) DynSpawn(f future.Future) future.Future {
	return e.VTable.Spawn(e.Ptr, f)
}

// DynSpawnBlocking runs fn where it may block and returns a future that
// completes after fn returned.
func (e Executor) DynSpawnBlocking(fn closure.BoxFn0[vptr.Void]) future.Future {
	return e.VTable.SpawnBlocking(e.Ptr, fn)
}

// DynBlockOn drives f to completion on the calling goroutine and drops it.
func (e Executor) DynBlockOn(f future.Future) {
	e.VTable.BlockOn(e.Ptr, f)
}

// DynEnter makes e the ambient executor until the guard is dropped.
func (e Executor) DynEnter() vptr.DropGlue {
	return e.VTable.Enter(e.Ptr)
}

// runtime is implemented by the concrete executors behind an Executor handle.
type runtime interface {
	spawn(f future.Future) future.Future
	spawnBlocking(fn closure.BoxFn0[vptr.Void]) future.Future
	blockOn(f future.Future)
}

var executors = vptr.NewHeap[runtime]("executor")

var executorVTable = VTable{
	Retain:  func(p vptr.Erased) { executors.Retain(p) },
	Release: func(p vptr.Erased) { executors.Release(p) },
	Spawn: func(p vptr.Erased, f future.Future) future.Future {
		return executors.Load(p).spawn(f)
	},
	SpawnBlocking: func(p vptr.Erased, fn closure.BoxFn0[vptr.Void]) future.Future {
		return executors.Load(p).spawnBlocking(fn)
	},
	BlockOn: func(p vptr.Erased, f future.Future) {
		executors.Load(p).blockOn(f)
	},
}

// Enter hands out the vtable itself, so it is wired after initialization.
func init() {
	executorVTable.Enter = func(p vptr.Erased) vptr.DropGlue {
		return enter(Executor{vptr.FromRawParts(p, &executorVTable)})
	}
}

func newExecutor(rt runtime) Executor {
	p := executors.Alloc(rt, nil)
	return Executor{vptr.FromRawParts(p, &executorVTable)}
}
