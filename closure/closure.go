package closure

import (
	"reflect"
	"sync"

	"github.com/wippyai/ffi-runtime/vptr"
)

// Environments of every closure flavor, keyed by erased handle. The stored
// value is the Go func of the matching arity.
var (
	shared   = vptr.NewHeap[any]("closure.arc")
	owned    = vptr.NewHeap[any]("closure.box")
	borrowed = vptr.NewHeap[any]("closure.ref")
)

// Published vtables, one per generic instantiation.
var vtables sync.Map // reflect.Type -> *VT

func vtableFor[VT any](build func() *VT) *VT {
	key := reflect.TypeFor[VT]()
	if vt, ok := vtables.Load(key); ok {
		return vt.(*VT)
	}
	vt, _ := vtables.LoadOrStore(key, build())
	return vt.(*VT)
}

func retainShared(p vptr.Erased)  { shared.Retain(p) }
func releaseShared(p vptr.Erased) { shared.Release(p) }
func freeOwned(p vptr.Erased)     { owned.Free(p) }

type options struct {
	onDrop func()
}

// Option configures a closure at construction.
type Option func(*options)

// OnDrop registers fn to run when the closure environment is destroyed: after
// the last release of a shared closure, or after an owned closure was called
// or freed.
func OnDrop(fn func()) Option {
	return func(o *options) {
		o.onDrop = fn
	}
}

func apply(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
