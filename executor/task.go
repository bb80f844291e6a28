package executor

import (
	"sync/atomic"

	"github.com/wippyai/ffi-runtime/future"
	"github.com/wippyai/ffi-runtime/vptr"
)

// Task states. A wake while running moves the task to notified, and the
// worker re-queues it once the current poll returns, so polls never overlap.
const (
	stateIdle uint32 = iota
	stateScheduled
	stateRunning
	stateNotified
	stateDone
)

type task struct {
	fut   future.Future
	waker future.Waker
	owner *core
	done  *future.Sender[vptr.Void]
	id    uint64
	state atomic.Uint32
}

func (t *task) wake() {
	for {
		switch t.state.Load() {
		case stateIdle:
			if t.state.CompareAndSwap(stateIdle, stateScheduled) {
				t.owner.schedule(t)
				return
			}
		case stateRunning:
			if t.state.CompareAndSwap(stateRunning, stateNotified) {
				return
			}
		default:
			return
		}
	}
}

// joinFuture completes when the task behind rx finished or was dropped.
type joinFuture struct {
	rx *future.Receiver[vptr.Void]
}

func (j *joinFuture) Poll(cx future.Context) future.PollFuture {
	_, st := j.rx.Poll(cx)
	return st
}

func (j *joinFuture) Drop() { j.rx.Drop() }
