package executor

import (
	"context"
	"sync"

	"github.com/wippyai/ffi-runtime/vptr"
)

var scope struct {
	mu    sync.Mutex
	stack []Executor
}

func enter(e Executor) vptr.DropGlue {
	held := e.Clone()

	scope.mu.Lock()
	scope.stack = append(scope.stack, held)
	scope.mu.Unlock()

	return vptr.NewDropGlue(func() { leave(held) })
}

func leave(held Executor) {
	scope.mu.Lock()
	for i := len(scope.stack) - 1; i >= 0; i-- {
		if scope.stack[i] == held {
			scope.stack = append(scope.stack[:i], scope.stack[i+1:]...)
			break
		}
	}
	scope.mu.Unlock()

	held.Release()
}

// Enter makes e the ambient executor returned by Current until the guard is
// dropped. Scopes nest; dropping out of order removes the right entry.
func Enter(e Executor) vptr.DropGlue {
	return e.DynEnter()
}

// Current returns a retained reference to the innermost entered executor.
func Current() (Executor, bool) {
	scope.mu.Lock()
	defer scope.mu.Unlock()
	if len(scope.stack) == 0 {
		return Executor{}, false
	}
	return scope.stack[len(scope.stack)-1].Clone(), true
}

type ctxKey struct{}

// WithExecutor returns a context carrying e. The context does not own a
// reference; e must outlive it.
func WithExecutor(ctx context.Context, e Executor) context.Context {
	return context.WithValue(ctx, ctxKey{}, e)
}

// FromContext returns the executor carried by ctx, falling back to Current.
// The result is a retained reference.
func FromContext(ctx context.Context) (Executor, bool) {
	if e, ok := ctx.Value(ctxKey{}).(Executor); ok {
		return e.Clone(), true
	}
	return Current()
}
