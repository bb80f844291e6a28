package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/ffi-runtime/boundary"
	"github.com/wippyai/ffi-runtime/errors"
)

// Runtime owns a wazero runtime with the registry's host modules
// instantiated in it.
type Runtime struct {
	rt     wazero.Runtime
	hosts  []api.Module
	log    *zap.Logger
	mu     sync.Mutex
	nextID int
	closed bool
}

type options struct {
	logger *zap.Logger
	config wazero.RuntimeConfig
}

// Option configures a Runtime.
type Option func(*options)

// WithLogger sets the runtime's logger. Defaults to Logger().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRuntimeConfig sets the wazero runtime configuration. Defaults to
// wazero.NewRuntimeConfig().
func WithRuntimeConfig(cfg wazero.RuntimeConfig) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// New creates a runtime and instantiates reg's host modules.
func New(ctx context.Context, reg *Registry, opts ...Option) (*Runtime, error) {
	o := options{logger: Logger(), config: wazero.NewRuntimeConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	r := &Runtime{
		rt:  wazero.NewRuntimeWithConfig(ctx, o.config),
		log: o.logger,
	}

	hosts, err := reg.Instantiate(ctx, r.rt)
	if err != nil {
		_ = r.rt.Close(ctx)
		return nil, err
	}
	r.hosts = hosts
	return r, nil
}

// Load compiles and instantiates a guest module.
func (r *Runtime) Load(ctx context.Context, guest []byte) (*Instance, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errors.Closed(errors.PhaseHost, "runtime")
	}
	r.nextID++
	name := fmt.Sprintf("guest-%d", r.nextID)
	r.mu.Unlock()

	compiled, err := r.rt.CompileModule(ctx, guest)
	if err != nil {
		return nil, errors.Instantiation("compile guest", err)
	}
	mod, err := r.rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.Instantiation("instantiate guest", err)
	}

	r.log.Debug("guest loaded",
		zap.String("module", name),
		zap.Int("exports", len(compiled.ExportedFunctions())))

	return &Instance{mod: mod, compiled: compiled, mem: boundary.Wrap(mod.ExportedMemory("memory"))}, nil
}

// Close closes the runtime and every module in it.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()
	return r.rt.Close(ctx)
}

// Instance is an instantiated guest.
type Instance struct {
	mod      api.Module
	compiled wazero.CompiledModule
	mem      *boundary.Wrapper
}

// Name returns the module name the guest was instantiated under.
func (i *Instance) Name() string { return i.mod.Name() }

// Memory returns the guest's exported memory, or nil when it has none.
func (i *Instance) Memory() *boundary.Wrapper { return i.mem }

// Function returns an exported function, or nil when there is none.
func (i *Instance) Function(name string) api.Function {
	return i.mod.ExportedFunction(name)
}

// Call calls an exported function.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := i.Function(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseHost, "export", name)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.New(errors.PhaseHost, errors.KindInvalidData).
			Slot(name).
			Cause(err).
			Detail("call failed").
			Build()
	}
	return results, nil
}

// Close closes the guest module.
func (i *Instance) Close(ctx context.Context) error {
	err := i.mod.Close(ctx)
	_ = i.compiled.Close(ctx)
	return err
}
