// Package handle provides the erased-handle tables that stand behind every
// virtual pointer.
//
// A Handle is the opaque address a producer hands across the boundary. Its bit
// pattern means nothing to the caller; only the producer resolves it, through
// the Table it allocated the handle from. Handle 0 is the null handle and never
// resolves.
//
// # Tables
//
//	t := handle.NewTable()
//	h := t.Insert(kindClosure, env)
//	v, ok := t.Get(h)
//	t.Remove(h) // runs Drop when the value implements Dropper
//
// Slots are reused after removal, so a stale handle may later resolve to an
// unrelated value. Lifetime discipline (retain/release, call-or-free) is the
// caller's responsibility; the table does not detect reuse.
//
// # Observers
//
// Observers receive Created/Retained/Released/Dropped events. Emit is free while
// no observer is subscribed. LogObserver forwards events to zap at debug level.
//
// # Thread Safety
//
// Table and LocalBackend are safe for concurrent use.
package handle
