package boundary

import (
	"bytes"

	ffiruntime "github.com/wippyai/ffi-runtime"
	"github.com/wippyai/ffi-runtime/errors"
)

// MaxStringSize bounds the nul scan of ReadCharP.
const MaxStringSize = 1 << 20

const scanChunk = 64

// ReadCharP reads the nul-terminated string at ptr.
func ReadCharP(mem ffiruntime.Memory, ptr uint32) (string, error) {
	n, err := strlen(mem, ptr)
	if err != nil {
		return "", err
	}
	b, err := mem.Read(ptr, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func strlen(mem ffiruntime.Memory, ptr uint32) (uint32, error) {
	if ptr == 0 {
		return 0, errors.NilPointer(errors.PhaseBoundary, "char_p")
	}
	var n uint32
	for n < MaxStringSize {
		chunk := uint32(scanChunk)
		if s, ok := mem.(ffiruntime.MemorySizer); ok {
			if avail := s.Size() - ptr - n; avail < chunk {
				chunk = avail
			}
		}
		if chunk == 0 {
			break
		}
		b, err := mem.Read(ptr+n, chunk)
		if err != nil {
			return 0, err
		}
		if i := bytes.IndexByte(b, 0); i >= 0 {
			return n + uint32(i), nil
		}
		n += chunk
	}
	return 0, errors.New(errors.PhaseBoundary, errors.KindInvalidData).
		Type("char_p").
		Value(ptr).
		Detail("no nul terminator within %d bytes", n).
		Build()
}

// CharPBox is an owned nul-terminated string living in producer memory. It is
// released only by FreeCharP with the allocator that produced it.
type CharPBox struct {
	Ptr uint32
	Len uint32 // excluding the terminator
}

// IsNull reports whether b is the null string.
func (b CharPBox) IsNull() bool { return b.Ptr == 0 }

// NewCharPBox copies s into memory allocated from alloc.
func NewCharPBox(mem ffiruntime.Memory, alloc ffiruntime.Allocator, s string) (CharPBox, error) {
	if i := bytes.IndexByte([]byte(s), 0); i >= 0 {
		return CharPBox{}, errors.New(errors.PhaseBoundary, errors.KindInvalidInput).
			Type("char_p").
			Value(i).
			Detail("interior nul byte at %d", i).
			Build()
	}

	size := uint32(len(s)) + 1
	ptr, err := alloc.Alloc(size, 1)
	if err != nil {
		return CharPBox{}, err
	}
	buf := make([]byte, size)
	copy(buf, s)
	if err := mem.Write(ptr, buf); err != nil {
		alloc.Free(ptr, size, 1)
		return CharPBox{}, err
	}
	return CharPBox{Ptr: ptr, Len: uint32(len(s))}, nil
}

// String reads the boxed string back.
func (b CharPBox) String(mem ffiruntime.Memory) (string, error) {
	if b.IsNull() {
		return "", errors.NilPointer(errors.PhaseBoundary, "char_p")
	}
	data, err := mem.Read(b.Ptr, b.Len)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FreeCharP releases an owned string given only its pointer, recomputing its
// allocation size from the terminator. Freeing null is a no-op.
func FreeCharP(mem ffiruntime.Memory, alloc ffiruntime.Allocator, ptr uint32) error {
	if ptr == 0 {
		return nil
	}
	n, err := strlen(mem, ptr)
	if err != nil {
		return err
	}
	alloc.Free(ptr, n+1, 1)
	return nil
}
