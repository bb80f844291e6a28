package closure

import "github.com/wippyai/ffi-runtime/vptr"

// BoxVTable0 is the owned closure vtable for zero-argument closures. Exactly
// one of Call or Free is invoked, exactly once.
type BoxVTable0[R any] struct {
	Call func(vptr.Erased) R
	Free func(vptr.Erased)
}

// BoxFn0 is a uniquely owned closure. Calling it consumes it.
type BoxFn0[R any] struct {
	vptr.VirtualPtr[BoxVTable0[R]]
}

// NewBoxFn0 wraps f as an owned closure.
func NewBoxFn0[R any](f func() R, opts ...Option) BoxFn0[R] {
	o := apply(opts)
	p := owned.Alloc(f, o.onDrop)
	return BoxFn0[R]{vptr.FromRawParts(p, boxVTable0[R]())}
}

func boxVTable0[R any]() *BoxVTable0[R] {
	return vtableFor(func() *BoxVTable0[R] {
		return &BoxVTable0[R]{
			Call: func(p vptr.Erased) R {
				f, done := owned.Take(p)
				defer done()
				return f.(func() R)()
			},
			Free: freeOwned,
		}
	})
}

// Call invokes and consumes the closure.
func (f BoxFn0[R]) Call() R { return f.VTable.Call(f.Ptr) }

// Free destroys the closure without invoking it.
func (f BoxFn0[R]) Free() { f.VTable.Free(f.Ptr) }

// BoxVTable1 is the owned closure vtable for one-argument closures.
type BoxVTable1[A, R any] struct {
	Call func(vptr.Erased, A) R
	Free func(vptr.Erased)
}

// BoxFn1 is a uniquely owned closure taking one argument.
type BoxFn1[A, R any] struct {
	vptr.VirtualPtr[BoxVTable1[A, R]]
}

// NewBoxFn1 wraps f as an owned closure.
func NewBoxFn1[A, R any](f func(A) R, opts ...Option) BoxFn1[A, R] {
	o := apply(opts)
	p := owned.Alloc(f, o.onDrop)
	return BoxFn1[A, R]{vptr.FromRawParts(p, boxVTable1[A, R]())}
}

func boxVTable1[A, R any]() *BoxVTable1[A, R] {
	return vtableFor(func() *BoxVTable1[A, R] {
		return &BoxVTable1[A, R]{
			Call: func(p vptr.Erased, a A) R {
				f, done := owned.Take(p)
				defer done()
				return f.(func(A) R)(a)
			},
			Free: freeOwned,
		}
	})
}

func (f BoxFn1[A, R]) Call(a A) R { return f.VTable.Call(f.Ptr, a) }

func (f BoxFn1[A, R]) Free() { f.VTable.Free(f.Ptr) }
