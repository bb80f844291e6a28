package boundary

import (
	"encoding/binary"

	ffiruntime "github.com/wippyai/ffi-runtime"
	"github.com/wippyai/ffi-runtime/errors"
)

// SliceRef is a borrowed {ptr, len} sequence. For an empty sequence Ptr is
// unconstrained.
type SliceRef struct {
	Ptr uint32
	Len uint32
}

// ReadSliceRef reads a {ptr, len} pair stored at addr in wasm32 layout.
func ReadSliceRef(mem ffiruntime.Memory, addr uint32) (SliceRef, error) {
	ptr, err := mem.ReadU32(addr)
	if err != nil {
		return SliceRef{}, err
	}
	n, err := mem.ReadU32(addr + 4)
	if err != nil {
		return SliceRef{}, err
	}
	return SliceRef{Ptr: ptr, Len: n}, nil
}

// WriteTo stores s at addr in wasm32 layout.
func (s SliceRef) WriteTo(mem ffiruntime.Memory, addr uint32) error {
	if err := mem.WriteU32(addr, s.Ptr); err != nil {
		return err
	}
	return mem.WriteU32(addr+4, s.Len)
}

// ElemAddr returns the address of element i of a sequence of elemSize-byte
// elements.
func (s SliceRef) ElemAddr(i, elemSize uint32) uint32 {
	return s.Ptr + i*elemSize
}

// ReadI32s copies the elements of an i32 sequence.
func ReadI32s(mem ffiruntime.Memory, s SliceRef) ([]int32, error) {
	if s.Len == 0 {
		return nil, nil
	}
	if s.Ptr == 0 {
		return nil, errors.NilPointer(errors.PhaseBoundary, "slice_ref<i32>")
	}
	if s.Len > MaxStringSize {
		return nil, errors.Overflow(errors.PhaseBoundary, s.Len, "slice_ref<i32>")
	}
	b, err := mem.Read(s.Ptr, s.Len*4)
	if err != nil {
		return nil, err
	}
	out := make([]int32, s.Len)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// WriteI32s copies xs into memory from alloc. The caller owns the region and
// frees it with alloc.Free(ref.Ptr, ref.Len*4, 4).
func WriteI32s(mem ffiruntime.Memory, alloc ffiruntime.Allocator, xs []int32) (SliceRef, error) {
	if len(xs) == 0 {
		return SliceRef{}, nil
	}
	size := uint32(len(xs)) * 4
	ptr, err := alloc.Alloc(size, 4)
	if err != nil {
		return SliceRef{}, err
	}
	for i, x := range xs {
		if err := mem.WriteU32(ptr+uint32(i)*4, uint32(x)); err != nil {
			alloc.Free(ptr, size, 4)
			return SliceRef{}, err
		}
	}
	return SliceRef{Ptr: ptr, Len: uint32(len(xs))}, nil
}
