// Package executor is the executor bridge: a capability through which code
// that owns futures, but no scheduler, asks someone else to run them.
//
// An Executor is a shared virtual pointer over six slots (retain, release,
// spawn, spawn_blocking, block_on, enter). The Dyn* methods speak the erased
// protocol; Spawn, SpawnBlocking and BlockOn layer typed outputs on top of it
// with a oneshot channel or an output slot.
//
// Two implementations are provided. Pool runs tasks on a fixed set of worker
// goroutines. Local runs them cooperatively on the goroutine that drives it.
// Both run every spawned future through the same task state machine, so a
// future is never polled concurrently with itself, and both recover panics
// raised by a poll: the panic is logged and the task completes with an error
// matching ErrTaskPanicked.
//
// Enter installs an executor as the ambient one for Current; WithExecutor and
// FromContext carry one through a context.Context instead.
package executor
