package executor

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/future"
)

// Pool is a multi-goroutine executor. Workers pull scheduled tasks from a
// shared run queue; blocking closures run on their own goroutines, bounded by
// Config.BlockingWorkers.
type Pool struct {
	core
	cond    *sync.Cond
	queue   []*task
	cfg     Config
	workers sync.WaitGroup
	qmu     sync.Mutex
	stopped bool
}

// NewPool starts a pool. Options other than WithLogger are ignored.
func NewPool(cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	p := &Pool{
		cfg:   cfg,
		queue: make([]*task, 0, cfg.QueueSize),
	}
	p.cond = sync.NewCond(&p.qmu)
	p.init(cfg.Name, o.logger, cfg.BlockingWorkers, p.enqueue)
	p.handle = newExecutor(p)

	for i := 0; i < cfg.Workers; i++ {
		p.workers.Add(1)
		go p.worker()
	}

	p.log.Debug("pool started",
		zap.Int("workers", cfg.Workers),
		zap.Int("blocking_workers", cfg.BlockingWorkers))
	return p, nil
}

func (p *Pool) enqueue(t *task) bool {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	if p.stopped {
		return false
	}
	p.queue = append(p.queue, t)
	p.cond.Signal()
	return true
}

func (p *Pool) next() *task {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	for len(p.queue) == 0 && !p.stopped {
		p.cond.Wait()
	}
	if p.stopped {
		return nil
	}
	t := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return t
}

func (p *Pool) worker() {
	defer p.workers.Done()
	for {
		t := p.next()
		if t == nil {
			return
		}
		p.run(t)
	}
}

// blockOn drives f on the calling goroutine while the workers keep running
// spawned tasks. Closing the pool drops f and returns.
func (p *Pool) blockOn(f future.Future) {
	signal := make(chan struct{}, 1)
	w := future.NewWaker(func() { notify(signal) })
	defer w.Release()

	for {
		st, err := p.poll(f, w, 0, "block_on")
		if err != nil || st == future.Completed {
			p.drop(f, 0)
			return
		}
		select {
		case <-signal:
		case <-p.ctx.Done():
			p.drop(f, 0)
			return
		}
	}
}

// Close stops the workers, drops every unfinished task and waits for running
// blocking closures until ctx is done.
func (p *Pool) Close(ctx context.Context) error {
	if !p.shutdown() {
		return nil
	}

	p.qmu.Lock()
	p.stopped = true
	p.queue = nil
	p.cond.Broadcast()
	p.qmu.Unlock()

	p.workers.Wait()
	dropped := p.cancelAll()
	p.handle.Release()

	done := make(chan struct{})
	go func() {
		p.blockingWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Debug("pool closed", zap.Int("dropped", dropped))
		return nil
	case <-ctx.Done():
		p.log.Warn("pool closed with blocking work still running", zap.Error(ctx.Err()))
		return errors.Wrap(errors.PhaseExecutor, errors.KindCanceled, ctx.Err(), "wait for blocking work")
	}
}
