package executor

import (
	"sync"

	"github.com/wippyai/ffi-runtime/closure"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/future"
	"github.com/wippyai/ffi-runtime/vptr"
)

// panicRecord keeps the panic of a typed task so the typed caller can report
// it after the executor recovered it.
type panicRecord struct {
	mu  sync.Mutex
	err error
}

// capture must be deferred directly by the poll it guards.
func (r *panicRecord) capture(slot string) {
	if v := recover(); v != nil {
		r.mu.Lock()
		r.err = errors.Panicked(errors.PhaseExecutor, slot, v)
		r.mu.Unlock()
		panic(v)
	}
}

func (r *panicRecord) get() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// sender polls a typed task and hands its output to a oneshot.
type sender[R any] struct {
	task future.Task[R]
	tx   *future.Sender[R]
	rec  *panicRecord
}

func (s *sender[R]) Poll(cx future.Context) future.PollFuture {
	defer s.rec.capture("spawn")
	v, st := s.task.Poll(cx)
	if st == future.Completed {
		s.tx.Send(v)
	}
	return st
}

func (s *sender[R]) Drop() {
	s.tx.Close()
	if d, ok := s.task.(future.Dropper); ok {
		d.Drop()
	}
}

// JoinHandle is the typed result of Spawn. It is itself a task that completes
// with the spawned task's output.
type JoinHandle[R any] struct {
	join future.Future
	rx   *future.Receiver[R]
	rec  *panicRecord
}

// Spawn runs task on e and returns a handle to its output.
func Spawn[R any](e Executor, task future.Task[R]) *JoinHandle[R] {
	tx, rx := future.Oneshot[R]()
	rec := &panicRecord{}
	join := e.DynSpawn(future.New(&sender[R]{task: task, tx: tx, rec: rec}))
	return &JoinHandle[R]{join: join, rx: rx, rec: rec}
}

// Poll completes when the spawned task finished or was dropped. Check Err to
// tell the two apart.
func (j *JoinHandle[R]) Poll(cx future.Context) (R, future.PollFuture) {
	if j.join.Poll(cx) == future.Pending {
		var zero R
		return zero, future.Pending
	}
	return j.rx.Poll(cx)
}

// Err reports why a completed handle carries no output: ErrTaskPanicked
// (matching) or ErrTaskDropped. It is nil when the output is valid.
func (j *JoinHandle[R]) Err() error {
	if err := j.rec.get(); err != nil {
		return err
	}
	if j.rx.Err() != nil {
		return ErrTaskDropped
	}
	return nil
}

// Drop detaches the handle. The spawned task keeps running.
func (j *JoinHandle[R]) Drop() {
	j.join.Drop()
	j.rx.Drop()
}

// SpawnBlocking runs fn on e where it may block. fn is wrapped in an owned
// closure, so it runs at most once.
func SpawnBlocking(e Executor, fn func()) future.Future {
	return e.DynSpawnBlocking(closure.NewBoxFn0(func() vptr.Void {
		fn()
		return vptr.Void{}
	}))
}

type recorded[R any] struct {
	task future.Task[R]
	rec  *panicRecord
}

func (r *recorded[R]) Poll(cx future.Context) (R, future.PollFuture) {
	defer r.rec.capture("block_on")
	return r.task.Poll(cx)
}

func (r *recorded[R]) Drop() {
	if d, ok := r.task.(future.Dropper); ok {
		d.Drop()
	}
}

// BlockOn drives task to completion on e and returns its output.
func BlockOn[R any](e Executor, task future.Task[R]) (R, error) {
	rec := &panicRecord{}
	f, slot := future.WithOutput[R](&recorded[R]{task: task, rec: rec})
	e.DynBlockOn(f)

	if v, ok := slot.Get(); ok {
		return v, nil
	}
	var zero R
	if err := rec.get(); err != nil {
		return zero, err
	}
	return zero, ErrIncomplete
}
