// Package vptr defines the virtual pointer: an erased producer handle paired
// with an explicit vtable of function slots.
//
// Every capability that crosses the boundary is a VirtualPtr over one vtable
// flavor. The flavors live with their producers:
//
//	closure.ArcVTable0/1/2   call, release, retain   (shared)
//	closure.BoxVTable0/1     call, free              (owned, linear)
//	future.VTable            poll, drop
//	executor.VTable          retain, release, spawn, spawn_blocking, block_on, enter
//	vptr.DropVTable          release                 (drop glue)
//	vptr.DynDropVTable       release, retain         (shared drop glue)
//
// Slot order is part of the contract and never changes once published.
//
// # Producer heaps
//
// Producers keep their state in a Heap, which hands out the erased handles.
// Shared values carry an atomic count (Retain/Release); unique values are
// destroyed by Free. The caller never touches a Heap directly: it only calls
// the vtable slots.
//
// # Contract violations
//
// Calling through a released handle, releasing twice, or calling an owned
// closure after it was consumed are caller bugs. They are not reported as
// errors. Because every slot resolves its handle through the producer heap, a
// dead handle panics at the lookup, naming the heap.
package vptr
