package vptr

import (
	"fmt"

	"github.com/wippyai/ffi-runtime/handle"
)

// Erased is an opaque producer-owned address. Only the producer that issued it
// can interpret it, by resolving it through its own Heap.
type Erased = handle.Handle

// Void is the unit return type of slots that return nothing.
type Void = struct{}

// VirtualPtr pairs an erased handle with the vtable that defines the only
// legal operations on it. Whether the handle is shared or uniquely owned is
// decided by the vtable flavor, never by the handle itself.
type VirtualPtr[VT any] struct {
	Ptr    Erased
	VTable *VT
}

// FromRawParts assembles a virtual pointer from a handle and its vtable.
func FromRawParts[VT any](ptr Erased, vtable *VT) VirtualPtr[VT] {
	return VirtualPtr[VT]{Ptr: ptr, VTable: vtable}
}

// IsNull reports whether p is the zero virtual pointer.
func (p VirtualPtr[VT]) IsNull() bool {
	return p.Ptr == 0 || p.VTable == nil
}

func (p VirtualPtr[VT]) String() string {
	return fmt.Sprintf("VirtualPtr[%T]{ptr: %#x, vtable: %p}", *new(VT), uint32(p.Ptr), p.VTable)
}
