package executor

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/wippyai/ffi-runtime/closure"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/future"
	"github.com/wippyai/ffi-runtime/vptr"
)

// core holds the task bookkeeping shared by Pool and Local. The concrete
// executor supplies the run queue through enqueue.
type core struct {
	ctx        context.Context
	log        *zap.Logger
	blocking   *semaphore.Weighted
	enqueue    func(*task) bool
	cancel     context.CancelFunc
	tasks      map[*task]struct{}
	handle     Executor
	name       string
	blockingWG sync.WaitGroup
	mu         sync.Mutex
	nextID     atomic.Uint64
	closed     bool
}

func (c *core) init(name string, log *zap.Logger, blocking int, enqueue func(*task) bool) {
	c.name = name
	c.log = log.With(zap.String("executor", name))
	c.blocking = semaphore.NewWeighted(int64(blocking))
	c.enqueue = enqueue
	c.tasks = make(map[*task]struct{})
	c.ctx, c.cancel = context.WithCancel(context.Background())
}

func (c *core) spawn(f future.Future) future.Future {
	tx, rx := future.Oneshot[vptr.Void]()
	join := future.New(&joinFuture{rx: rx})

	t := &task{fut: f, owner: c, done: tx, id: c.nextID.Add(1)}
	t.waker = future.NewWaker(t.wake)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.log.Debug("spawn on closed executor", zap.Uint64("task", t.id))
		c.cancelTask(t)
		return join
	}
	c.tasks[t] = struct{}{}
	c.mu.Unlock()

	c.log.Debug("task spawned", zap.Uint64("task", t.id))
	t.wake()
	return join
}

// A task rejected by a closing queue stays tracked and is dropped by Close.
func (c *core) schedule(t *task) {
	_ = c.enqueue(t)
}

// run performs one scheduled poll of t.
func (c *core) run(t *task) {
	if !t.state.CompareAndSwap(stateScheduled, stateRunning) {
		return
	}

	st, err := c.poll(t.fut, t.waker, t.id, "spawn")
	if err != nil || st == future.Completed {
		c.finish(t, err)
		return
	}

	if t.state.CompareAndSwap(stateRunning, stateIdle) {
		return
	}
	if t.state.CompareAndSwap(stateNotified, stateScheduled) {
		c.schedule(t)
	}
}

// poll polls f once with a fresh context over w. A panic inside Poll is
// recovered and returned as an error.
func (c *core) poll(f future.Future, w future.Waker, id uint64, slot string) (st future.PollFuture, err error) {
	cx := future.NewContext(w)
	defer cx.Close()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Panicked(errors.PhaseExecutor, slot, r)
			c.log.Error("future panicked",
				zap.Uint64("task", id),
				zap.String("slot", slot),
				zap.Any("panic", r))
		}
	}()
	return f.Poll(cx), nil
}

func (c *core) drop(f future.Future, id uint64) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("future drop panicked", zap.Uint64("task", id), zap.Any("panic", r))
		}
	}()
	f.Drop()
}

func (c *core) finish(t *task, err error) {
	t.state.Store(stateDone)

	c.mu.Lock()
	delete(c.tasks, t)
	c.mu.Unlock()

	c.drop(t.fut, t.id)
	t.waker.Release()
	if err != nil {
		t.done.Close()
		return
	}
	t.done.Send(vptr.Void{})
	c.log.Debug("task completed", zap.Uint64("task", t.id))
}

// cancelTask drops a task that is not running.
func (c *core) cancelTask(t *task) {
	if t.state.Swap(stateDone) == stateDone {
		return
	}
	c.drop(t.fut, t.id)
	t.waker.Release()
	t.done.Close()
}

func (c *core) spawnBlocking(fn closure.BoxFn0[vptr.Void]) future.Future {
	tx, rx := future.Oneshot[vptr.Void]()
	join := future.New(&joinFuture{rx: rx})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fn.Free()
		tx.Close()
		return join
	}
	c.blockingWG.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.blockingWG.Done()
		if err := c.blocking.Acquire(c.ctx, 1); err != nil {
			fn.Free()
			tx.Close()
			return
		}
		defer c.blocking.Release(1)

		if c.callBlocking(fn) {
			tx.Send(vptr.Void{})
		} else {
			tx.Close()
		}
	}()
	return join
}

func (c *core) callBlocking(fn closure.BoxFn0[vptr.Void]) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("blocking closure panicked", zap.Any("panic", r))
			ok = false
		}
	}()
	fn.Call()
	return true
}

// shutdown marks the executor closed. It reports false if it already was.
func (c *core) shutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	c.cancel()
	return true
}

// cancelAll drops every task still tracked. Callers make sure no task is
// running.
func (c *core) cancelAll() int {
	c.mu.Lock()
	tasks := make([]*task, 0, len(c.tasks))
	for t := range c.tasks {
		tasks = append(tasks, t)
	}
	c.tasks = make(map[*task]struct{})
	c.mu.Unlock()

	for _, t := range tasks {
		c.cancelTask(t)
	}
	return len(tasks)
}

// Pending returns the number of spawned tasks that have not finished.
func (c *core) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

// Handle returns a retained Executor handle for this executor.
func (c *core) Handle() Executor {
	return c.handle.Clone()
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
