// Package exports is a producer built on the bridge: the functions a foreign
// caller reaches through plain memory and virtual pointers.
//
// Go callers use the methods directly: Max returns a pointer into its input,
// Concat hands out an owned string released by FreeCharP, WithConcat lends
// the string to a borrowed callback, CallInTheBackground takes a shared
// closure, and TestSpawner and AsyncGetFT drive futures on an executor.
//
// Functions exposes the same operations as core wasm host functions under the
// "ffi" namespace for host.Registry. ABI calls work in the calling guest's
// memory through an arena, or in the memory set with Bind.
package exports
