package host

import (
	"context"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/wasmtest"
)

// Func is a host function with its core wasm signature.
type Func struct {
	Fn      api.GoModuleFunc
	Params  []api.ValueType
	Results []api.ValueType
}

// ABIHost is a producer exposing functions under one import namespace.
type ABIHost interface {
	Namespace() string
	Functions() map[string]Func
}

// Registry collects host functions by namespace.
type Registry struct {
	funcs map[string]map[string]Func
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]map[string]Func),
	}
}

// RegisterHost registers every function of h under h.Namespace().
func (r *Registry) RegisterHost(h ABIHost) error {
	ns := h.Namespace()
	if ns == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}
	for name, f := range h.Functions() {
		if err := r.RegisterFunc(ns, name, f); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) RegisterFunc(namespace, name string, f Func) error {
	if namespace == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseHost, "function name cannot be empty")
	}
	if f.Fn == nil {
		return errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Slot(namespace + "#" + name).
			Detail("handler must not be nil").
			Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.funcs[namespace] == nil {
		r.funcs[namespace] = make(map[string]Func)
	}
	r.funcs[namespace][name] = f
	return nil
}

// Namespaces returns the registered namespaces in sorted order.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for ns := range r.funcs {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Names returns the functions of namespace in sorted order.
func (r *Registry) Names(namespace string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs[namespace]))
	for name := range r.funcs[namespace] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Instantiate instantiates one host module per namespace in rt.
func (r *Registry) Instantiate(ctx context.Context, rt wazero.Runtime) ([]api.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var mods []api.Module
	for _, ns := range sortedKeys(r.funcs) {
		b := rt.NewHostModuleBuilder(ns)
		for _, name := range sortedKeys(r.funcs[ns]) {
			f := r.funcs[ns][name]
			b.NewFunctionBuilder().
				WithGoModuleFunction(f.Fn, f.Params, f.Results).
				WithName(name).
				Export(name)
		}
		mod, err := b.Instantiate(ctx)
		if err != nil {
			for _, m := range mods {
				_ = m.Close(ctx)
			}
			return nil, errors.Registration(errors.PhaseHost, ns, "*", err)
		}
		Logger().Debug("host module instantiated",
			zap.String("namespace", ns),
			zap.Int("functions", len(r.funcs[ns])))
		mods = append(mods, mod)
	}
	return mods, nil
}

// Guest returns a guest that imports every function of namespace and
// re-exports it, with pages of exported memory.
func (r *Registry) Guest(namespace string, pages uint32) (wasmtest.Guest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	funcs, ok := r.funcs[namespace]
	if !ok {
		return wasmtest.Guest{}, errors.NotFound(errors.PhaseHost, "namespace", namespace)
	}
	g := wasmtest.Guest{Module: namespace, Pages: pages}
	for _, name := range sortedKeys(funcs) {
		f := funcs[name]
		g.Funcs = append(g.Funcs, wasmtest.Func{Name: name, Params: f.Params, Results: f.Results})
	}
	return g, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
