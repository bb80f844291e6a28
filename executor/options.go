package executor

import (
	goruntime "runtime"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-runtime/errors"
)

// Config configures a Pool.
type Config struct {
	Name            string `yaml:"name"`
	Workers         int    `yaml:"workers"`
	BlockingWorkers int    `yaml:"blocking_workers"`
	QueueSize       int    `yaml:"queue_size"` // initial run queue capacity
}

// DefaultConfig returns a pool configuration with one worker per CPU.
func DefaultConfig() Config {
	return Config{
		Name:            "pool",
		Workers:         goruntime.GOMAXPROCS(0),
		BlockingWorkers: 64,
		QueueSize:       256,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Workers <= 0:
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("executor", "workers").
			Value(c.Workers).
			Detail("must be positive, got %d", c.Workers).
			Build()
	case c.BlockingWorkers <= 0:
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("executor", "blocking_workers").
			Value(c.BlockingWorkers).
			Detail("must be positive, got %d", c.BlockingWorkers).
			Build()
	case c.QueueSize < 0:
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("executor", "queue_size").
			Value(c.QueueSize).
			Detail("must not be negative, got %d", c.QueueSize).
			Build()
	}
	return nil
}

type options struct {
	logger          *zap.Logger
	name            string
	blockingWorkers int
}

// Option configures an executor.
type Option func(*options)

// WithLogger sets the executor's logger. Defaults to Logger().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithName sets the name a Local executor logs under.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithBlockingWorkers bounds the blocking closures a Local executor runs at
// once. Pools take the bound from Config.
func WithBlockingWorkers(n int) Option {
	return func(o *options) {
		o.blockingWorkers = n
	}
}

func applyOptions(opts []Option) options {
	o := options{name: "local", blockingWorkers: 4}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	if o.blockingWorkers <= 0 {
		o.blockingWorkers = 1
	}
	return o
}
