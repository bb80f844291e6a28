package closure

import "github.com/wippyai/ffi-runtime/vptr"

// RefVTable1 is the borrowed closure vtable. A borrowed closure has no
// lifetime slots: the lender keeps it alive for the duration of one call.
type RefVTable1[A, R any] struct {
	Call func(vptr.Erased, A) R
}

// RefFn1 is a closure borrowed for the extent of a single call. It must not be
// retained or called after the call that received it returns.
type RefFn1[A, R any] struct {
	vptr.VirtualPtr[RefVTable1[A, R]]
}

func (f RefFn1[A, R]) Call(a A) R { return f.VTable.Call(f.Ptr, a) }

// Scoped1 lends f as a RefFn1 to body and revokes it when body returns.
func Scoped1[A, R any](f func(A) R, body func(RefFn1[A, R])) {
	p := borrowed.Alloc(f, nil)
	defer borrowed.Free(p)

	vt := vtableFor(func() *RefVTable1[A, R] {
		return &RefVTable1[A, R]{
			Call: func(p vptr.Erased, a A) R { return borrowed.Load(p).(func(A) R)(a) },
		}
	})
	body(RefFn1[A, R]{vptr.FromRawParts(p, vt)})
}
