package closure

import "github.com/wippyai/ffi-runtime/vptr"

// ArcVTable0 is the shared closure vtable for zero-argument closures.
type ArcVTable0[R any] struct {
	Call    func(vptr.Erased) R
	Release func(vptr.Erased)
	Retain  func(vptr.Erased)
}

// ArcFn0 is a reference-counted closure taking no arguments. Every holder owns
// one reference and releases it exactly once.
type ArcFn0[R any] struct {
	vptr.VirtualPtr[ArcVTable0[R]]
}

// NewArcFn0 wraps f as a shared closure with a count of one. f may be called
// from several goroutines at once and must be safe for that.
func NewArcFn0[R any](f func() R, opts ...Option) ArcFn0[R] {
	o := apply(opts)
	p := shared.Alloc(f, o.onDrop)
	return ArcFn0[R]{vptr.FromRawParts(p, arcVTable0[R]())}
}

func arcVTable0[R any]() *ArcVTable0[R] {
	return vtableFor(func() *ArcVTable0[R] {
		return &ArcVTable0[R]{
			Call:    func(p vptr.Erased) R { return shared.Load(p).(func() R)() },
			Release: releaseShared,
			Retain:  retainShared,
		}
	})
}

// Call invokes the closure.
func (f ArcFn0[R]) Call() R { return f.VTable.Call(f.Ptr) }

// Clone retains the closure and returns the new reference.
func (f ArcFn0[R]) Clone() ArcFn0[R] {
	f.VTable.Retain(f.Ptr)
	return f
}

// Release gives up this reference.
func (f ArcFn0[R]) Release() { f.VTable.Release(f.Ptr) }

// ArcVTable1 is the shared closure vtable for one-argument closures.
type ArcVTable1[A, R any] struct {
	Call    func(vptr.Erased, A) R
	Release func(vptr.Erased)
	Retain  func(vptr.Erased)
}

// ArcFn1 is a reference-counted closure taking one argument.
type ArcFn1[A, R any] struct {
	vptr.VirtualPtr[ArcVTable1[A, R]]
}

// NewArcFn1 wraps f as a shared closure with a count of one.
func NewArcFn1[A, R any](f func(A) R, opts ...Option) ArcFn1[A, R] {
	o := apply(opts)
	p := shared.Alloc(f, o.onDrop)
	return ArcFn1[A, R]{vptr.FromRawParts(p, arcVTable1[A, R]())}
}

func arcVTable1[A, R any]() *ArcVTable1[A, R] {
	return vtableFor(func() *ArcVTable1[A, R] {
		return &ArcVTable1[A, R]{
			Call:    func(p vptr.Erased, a A) R { return shared.Load(p).(func(A) R)(a) },
			Release: releaseShared,
			Retain:  retainShared,
		}
	})
}

func (f ArcFn1[A, R]) Call(a A) R { return f.VTable.Call(f.Ptr, a) }

func (f ArcFn1[A, R]) Clone() ArcFn1[A, R] {
	f.VTable.Retain(f.Ptr)
	return f
}

func (f ArcFn1[A, R]) Release() { f.VTable.Release(f.Ptr) }

// ArcVTable2 is the shared closure vtable for two-argument closures.
type ArcVTable2[A, B, R any] struct {
	Call    func(vptr.Erased, A, B) R
	Release func(vptr.Erased)
	Retain  func(vptr.Erased)
}

// ArcFn2 is a reference-counted closure taking two arguments.
type ArcFn2[A, B, R any] struct {
	vptr.VirtualPtr[ArcVTable2[A, B, R]]
}

// NewArcFn2 wraps f as a shared closure with a count of one.
func NewArcFn2[A, B, R any](f func(A, B) R, opts ...Option) ArcFn2[A, B, R] {
	o := apply(opts)
	p := shared.Alloc(f, o.onDrop)
	return ArcFn2[A, B, R]{vptr.FromRawParts(p, arcVTable2[A, B, R]())}
}

func arcVTable2[A, B, R any]() *ArcVTable2[A, B, R] {
	return vtableFor(func() *ArcVTable2[A, B, R] {
		return &ArcVTable2[A, B, R]{
			Call:    func(p vptr.Erased, a A, b B) R { return shared.Load(p).(func(A, B) R)(a, b) },
			Release: releaseShared,
			Retain:  retainShared,
		}
	})
}

func (f ArcFn2[A, B, R]) Call(a A, b B) R { return f.VTable.Call(f.Ptr, a, b) }

func (f ArcFn2[A, B, R]) Clone() ArcFn2[A, B, R] {
	f.VTable.Retain(f.Ptr)
	return f
}

func (f ArcFn2[A, B, R]) Release() { f.VTable.Release(f.Ptr) }
