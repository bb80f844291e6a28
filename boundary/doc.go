// Package boundary reads and writes boundary values in plain memory: wazero
// linear memory (Wrap) or a Go-backed stand-in (NewLinearMemory).
//
// Owned strings are nul-terminated and freed only by FreeCharP with the
// allocator that produced them. Sequences are {ptr, len} pairs (SliceRef).
// Allocation goes through a guest's cabi_realloc (WrapAllocator) or a
// host-side Arena.
package boundary
