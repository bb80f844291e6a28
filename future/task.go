package future

import "sync"

// Task is a future with a typed output, delivered together with Completed.
type Task[T any] interface {
	Poll(cx Context) (T, PollFuture)
}

// TaskFunc adapts a function to Task.
type TaskFunc[T any] func(cx Context) (T, PollFuture)

func (f TaskFunc[T]) Poll(cx Context) (T, PollFuture) { return f(cx) }

// Value returns a task that completes immediately with v.
func Value[T any](v T) Task[T] {
	return TaskFunc[T](func(Context) (T, PollFuture) { return v, Completed })
}

// Slot receives the output of a task erased with WithOutput.
type Slot[T any] struct {
	mu    sync.Mutex
	value T
	set   bool
}

// Get returns the output and whether the task has completed.
func (s *Slot[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.set
}

func (s *Slot[T]) put(v T) {
	s.mu.Lock()
	s.value = v
	s.set = true
	s.mu.Unlock()
}

// WithOutput erases task into a Future whose output is written to the
// returned slot when it completes.
func WithOutput[T any](task Task[T]) (Future, *Slot[T]) {
	slot := &Slot[T]{}
	p := &outputPoller[T]{task: task, slot: slot}
	return New(p), slot
}

type outputPoller[T any] struct {
	task Task[T]
	slot *Slot[T]
}

func (p *outputPoller[T]) Poll(cx Context) PollFuture {
	v, st := p.task.Poll(cx)
	if st == Completed {
		p.slot.put(v)
	}
	return st
}

func (p *outputPoller[T]) Drop() {
	if d, ok := p.task.(Dropper); ok {
		d.Drop()
	}
}
