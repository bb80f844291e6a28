// Package ffiruntime implements a virtual-pointer dispatch and async bridging
// protocol: closures, futures and executors expressed as an opaque handle plus
// a struct of function slots, so they can cross a boundary that shares no
// runtime, garbage collector or unwinding mechanism.
//
// # Architecture Overview
//
//	ffiruntime/         Root package with core Memory and Allocator interfaces
//	├── handle/         Erased handle table with lifecycle observers
//	├── vptr/           VirtualPtr, producer heaps, drop glue
//	├── closure/        Shared (ArcFn), owned (BoxFn) and borrowed (RefFn) closures
//	├── future/         Poll protocol: Future, Context, Waker, oneshot, Await
//	├── executor/       Executor bridge, Pool and Local executors
//	├── layout/         Boundary layout rules and calculator
//	├── boundary/       Plain memory access: wazero memory, strings, slices
//	├── exports/        Sample producer surface (max, concat, with_concat, ...)
//	├── host/           wazero host module binding
//	├── config/         YAML configuration
//	├── errors/         Structured error types
//	├── internal/
//	│   └── wasmtest/   Minimal core wasm guest encoder
//	└── cmd/ffirun/     CLI and TUI over the producer
//
// # Quick Start
//
// Wrap a Go function as a shared closure and hand it to code that only knows
// the vtable:
//
//	isEven := closure.NewArcFn1(func(x int32) bool { return x%2 == 0 })
//	defer isEven.Release()
//
//	other := isEven.Clone() // retain
//	go func() {
//	    defer other.Release()
//	    other.Call(42)
//	}()
//
// Run a future on an injected executor:
//
//	pool, _ := executor.NewPool(executor.DefaultConfig())
//	defer pool.Close(ctx)
//
//	ex := pool.Handle()
//	defer ex.Release()
//
//	v, err := executor.BlockOn[int32](ex, executor.Spawn(ex, future.Value(int32(42))))
//
// # Contract
//
// Shared values are released once per retain plus once for the producer's
// original reference. Owned closures are called or freed, exactly once.
// Futures are never polled concurrently with themselves and never after they
// completed. Violations are caller bugs: a handle that was already released
// faults with a panic at dispatch instead of returning an error.
//
// # Thread Safety
//
// Closures, wakers and executor handles may be retained, released and called
// from any goroutine. A Future is polled by one goroutine at a time.
package ffiruntime
