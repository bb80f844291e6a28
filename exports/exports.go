package exports

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	ffiruntime "github.com/wippyai/ffi-runtime"
	"github.com/wippyai/ffi-runtime/boundary"
	"github.com/wippyai/ffi-runtime/closure"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/executor"
	"github.com/wippyai/ffi-runtime/future"
	"github.com/wippyai/ffi-runtime/vptr"
)

// Namespace is the default import module of the ABI functions.
const Namespace = "ffi"

// Default arena placed in guest memories that export no allocator.
const (
	DefaultArenaBase = 1024
	DefaultArenaSize = 60 * 1024
)

// Exports is the producer: strings, slices and closures handed to it live in
// the memory it is bound to.
type Exports struct {
	mem   ffiruntime.Memory
	alloc ffiruntime.Allocator
	exec  executor.Executor
	log   *zap.Logger
	ns    string

	arenaBase uint32
	arenaSize uint32

	mu     sync.Mutex
	arenas map[api.Memory]*boundary.Arena
}

type options struct {
	logger    *zap.Logger
	exec      executor.Executor
	namespace string
	arenaBase uint32
	arenaSize uint32
}

// Option configures Exports.
type Option func(*options)

// WithLogger sets the logger. Defaults to Logger().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithExecutor sets the executor the test_spawner ABI function runs on. The
// executor is borrowed; the caller keeps it alive.
func WithExecutor(e executor.Executor) Option {
	return func(o *options) {
		o.exec = e
	}
}

// WithNamespace registers the ABI functions under ns instead of Namespace.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithArena places the arena of guest memories at [base, base+size).
func WithArena(base, size uint32) Option {
	return func(o *options) {
		o.arenaBase = base
		o.arenaSize = size
	}
}

// New creates the producer over mem, allocating from alloc. Both may be nil
// until Bind supplies them.
func New(mem ffiruntime.Memory, alloc ffiruntime.Allocator, opts ...Option) *Exports {
	o := options{
		logger:    Logger(),
		namespace: Namespace,
		arenaBase: DefaultArenaBase,
		arenaSize: DefaultArenaSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Exports{
		mem:       mem,
		alloc:     alloc,
		exec:      o.exec,
		log:       o.logger,
		ns:        o.namespace,
		arenaBase: o.arenaBase,
		arenaSize: o.arenaSize,
		arenas:    make(map[api.Memory]*boundary.Arena),
	}
}

// Bind sets the memory used by Go callers and by ABI calls whose caller has
// no memory. A nil alloc places an arena in mem.
func (e *Exports) Bind(mem ffiruntime.Memory, alloc ffiruntime.Allocator) error {
	if w, ok := mem.(*boundary.Wrapper); mem == nil || (ok && w == nil) {
		return errors.NilPointer(errors.PhaseHost, "ffiruntime.Memory")
	}
	if alloc == nil {
		// guest memories share one arena with the ABI calls made from them
		if w, ok := mem.(*boundary.Wrapper); ok {
			a, err := e.arenaFor(w.Mem)
			if err != nil {
				return err
			}
			alloc = a
		} else {
			a, err := e.newArena(mem)
			if err != nil {
				return err
			}
			alloc = a
		}
	}
	e.mu.Lock()
	e.mem, e.alloc = mem, alloc
	e.mu.Unlock()
	return nil
}

// Memory returns the bound memory.
func (e *Exports) Memory() ffiruntime.Memory {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mem
}

func (e *Exports) bound() (ffiruntime.Memory, ffiruntime.Allocator, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mem == nil || e.alloc == nil {
		return nil, nil, errors.NotInitialized(errors.PhaseHost, "exports memory")
	}
	return e.mem, e.alloc, nil
}

func (e *Exports) newArena(mem ffiruntime.Memory) (*boundary.Arena, error) {
	size := e.arenaSize
	if s, ok := mem.(ffiruntime.MemorySizer); ok {
		if s.Size() <= e.arenaBase {
			return nil, errors.OutOfBounds(errors.PhaseHost, e.arenaBase, size)
		}
		if avail := s.Size() - e.arenaBase; avail < size {
			size = avail
		}
	}
	return boundary.NewArena(mem, e.arenaBase, size)
}

// Max returns a pointer to the greatest element of xs, or nil when xs is
// empty. The pointer aliases xs.
func (e *Exports) Max(xs []int32) *int32 {
	i := maxIndex(xs)
	if i < 0 {
		return nil
	}
	return &xs[i]
}

func maxIndex(xs []int32) int {
	if len(xs) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] > xs[best] {
			best = i
		}
	}
	return best
}

// Concat returns fst+snd as an owned string in the bound memory. It must be
// released with FreeCharP.
func (e *Exports) Concat(fst, snd string) (boundary.CharPBox, error) {
	mem, alloc, err := e.bound()
	if err != nil {
		return boundary.CharPBox{}, err
	}
	return boundary.NewCharPBox(mem, alloc, fst+snd)
}

// FreeCharP releases a string returned by Concat. Freeing null is a no-op.
func (e *Exports) FreeCharP(s boundary.CharPBox) error {
	if s.IsNull() {
		return nil
	}
	mem, alloc, err := e.bound()
	if err != nil {
		return err
	}
	return boundary.FreeCharP(mem, alloc, s.Ptr)
}

// WithConcat calls cb once with the address of fst+snd in the bound memory.
// The string is freed when cb returns; cb must not keep the address.
func (e *Exports) WithConcat(fst, snd string, cb closure.RefFn1[uint32, vptr.Void]) error {
	s, err := e.Concat(fst, snd)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.FreeCharP(s); err != nil {
			e.log.Error("free concatenated string", zap.Error(err))
		}
	}()
	cb.Call(s.Ptr)
	return nil
}

// CallInTheBackground calls f once on a new goroutine. It consumes the
// caller's reference.
func (e *Exports) CallInTheBackground(f closure.ArcFn0[vptr.Void]) {
	bg := f.Clone()
	go func() {
		defer bg.Release()
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("background closure panicked", zap.Any("panic", r))
			}
		}()
		bg.Call()
	}()
	f.Release()
}

// yieldThen completes with v on its second poll.
func yieldThen[T any](v T) future.Task[T] {
	yielded := false
	return future.TaskFunc[T](func(cx future.Context) (T, future.PollFuture) {
		if !yielded {
			yielded = true
			cx.Wake()
			var zero T
			return zero, future.Pending
		}
		return v, future.Completed
	})
}

// TestSpawner blocks on ex until a task spawned on ex yields 42. It returns
// -1 when the executor dropped the task.
func (e *Exports) TestSpawner(ex executor.Executor) int32 {
	var join *executor.JoinHandle[int32]
	v, err := executor.BlockOn[int32](ex, future.TaskFunc[int32](func(cx future.Context) (int32, future.PollFuture) {
		if join == nil {
			join = executor.Spawn(ex, yieldThen(int32(42)))
		}
		v, st := join.Poll(cx)
		if st == future.Pending {
			return 0, future.Pending
		}
		defer join.Drop()
		if err := join.Err(); err != nil {
			e.log.Warn("spawned task failed", zap.Error(err))
			return -1, future.Completed
		}
		return v, future.Completed
	}))
	if err != nil {
		e.log.Warn("test_spawner incomplete", zap.Error(err))
		return -1
	}
	return v
}

// AsyncGetFT awaits a ready value on a local executor it owns.
func (e *Exports) AsyncGetFT() int32 {
	l := executor.NewLocal(executor.WithName("async_get_ft"), executor.WithLogger(e.log))
	defer func() {
		if err := l.Close(context.Background()); err != nil {
			e.log.Warn("close local executor", zap.Error(err))
		}
	}()
	h := l.Handle()
	defer h.Release()

	v, err := executor.BlockOn(h, yieldThen(int32(42)))
	if err != nil {
		e.log.Warn("async_get_ft incomplete", zap.Error(err))
		return -1
	}
	return v
}

var errNoExecutor = errors.NotInitialized(errors.PhaseHost, "exports executor")
