// Package closure provides the three closure flavors that cross the bridge.
//
// ArcFn0/1/2 are shared: the holder may Clone (retain) and must Release once
// per reference. The environment is destroyed after the last Release. Call is
// safe from any goroutine provided the wrapped func is.
//
// BoxFn0/1 are owned: exactly one of Call or Free runs, once. Call consumes the
// closure and its environment is destroyed after the call returns.
//
// RefFn1 is borrowed: it is valid only inside the Scoped1 body that lent it
// and carries no lifetime slots.
//
// Vtables are published once per generic instantiation and shared by every
// closure of that shape.
package closure
