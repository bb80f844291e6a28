package executor

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/future"
)

// Local is a single-goroutine cooperative executor. Spawned tasks only make
// progress inside BlockOn or RunUntilStalled, on the goroutine that calls
// them. Blocking closures still run on their own goroutines.
//
// A Local must be driven and closed from one goroutine; only wakers may be
// called from others.
type Local struct {
	core
	notify  chan struct{}
	queue   []*task
	qmu     sync.Mutex
	stopped bool
}

// NewLocal creates a local executor.
func NewLocal(opts ...Option) *Local {
	o := applyOptions(opts)
	l := &Local{notify: make(chan struct{}, 1)}
	l.init(o.name, o.logger, o.blockingWorkers, l.enqueue)
	l.handle = newExecutor(l)
	return l
}

func (l *Local) enqueue(t *task) bool {
	l.qmu.Lock()
	if l.stopped {
		l.qmu.Unlock()
		return false
	}
	l.queue = append(l.queue, t)
	l.qmu.Unlock()

	notify(l.notify)
	return true
}

func (l *Local) pop() *task {
	l.qmu.Lock()
	defer l.qmu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	t := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return t
}

// RunUntilStalled polls scheduled tasks until none is ready and returns the
// number of polls performed.
func (l *Local) RunUntilStalled() int {
	n := 0
	for {
		t := l.pop()
		if t == nil {
			return n
		}
		l.run(t)
		n++
	}
}

func (l *Local) blockOn(f future.Future) {
	signal := make(chan struct{}, 1)
	w := future.NewWaker(func() { notify(signal) })
	defer w.Release()

outer:
	for {
		st, err := l.poll(f, w, 0, "block_on")
		if err != nil || st == future.Completed {
			l.drop(f, 0)
			return
		}
		for {
			l.RunUntilStalled()
			select {
			case <-signal:
				continue outer
			case <-l.notify:
			case <-l.ctx.Done():
				l.drop(f, 0)
				return
			}
		}
	}
}

// Close drops every unfinished task and waits for running blocking closures
// until ctx is done.
func (l *Local) Close(ctx context.Context) error {
	if !l.shutdown() {
		return nil
	}

	l.qmu.Lock()
	l.stopped = true
	l.queue = nil
	l.qmu.Unlock()

	dropped := l.cancelAll()
	l.handle.Release()

	done := make(chan struct{})
	go func() {
		l.blockingWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.log.Debug("local executor closed", zap.Int("dropped", dropped))
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.PhaseExecutor, errors.KindCanceled, ctx.Err(), "wait for blocking work")
	}
}
