package config

import (
	_ "embed"
	"os"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/executor"
)

//go:embed default.yaml
var rawDefault []byte

// Config is the runtime configuration file.
type Config struct {
	Executor executor.Config `yaml:"executor"`
	Host     HostConfig      `yaml:"host"`
	Log      LogConfig       `yaml:"log"`
}

// HostConfig places the producer in guest memory.
type HostConfig struct {
	Namespace string `yaml:"namespace"`
	ArenaBase uint32 `yaml:"arena_base"`
	ArenaSize uint32 `yaml:"arena_size"`
	Pages     uint32 `yaml:"pages"` // guest memory size in 64 KiB pages
	Engine    string `yaml:"engine"`
}

// Guest execution engines.
const (
	EngineInterpreter = "interpreter"
	EngineCompiler    = "compiler"
)

// RuntimeConfig returns the wazero configuration for the engine.
func (h HostConfig) RuntimeConfig() wazero.RuntimeConfig {
	if h.Engine == EngineCompiler {
		return wazero.NewRuntimeConfigCompiler()
	}
	return wazero.NewRuntimeConfigInterpreter()
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	if err := yaml.Unmarshal(rawDefault, &c); err != nil {
		panic(err)
	}
	return c
}

// Parse reads YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse yaml")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.New(errors.PhaseConfig, errors.KindNotFound).
			Cause(err).
			Detail("read %s", path).
			Build()
	}
	return Parse(data)
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Executor.Validate(); err != nil {
		return err
	}
	if err := c.Host.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}

func (h HostConfig) Validate() error {
	invalid := func(field string, v any, msg string) error {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("host", field).
			Value(v).
			Detail("%s", msg).
			Build()
	}
	switch {
	case h.Namespace == "":
		return invalid("namespace", h.Namespace, "must not be empty")
	case h.ArenaBase == 0:
		return invalid("arena_base", h.ArenaBase, "must not be zero")
	case h.ArenaSize == 0:
		return invalid("arena_size", h.ArenaSize, "must not be zero")
	case h.Pages == 0:
		return invalid("pages", h.Pages, "must not be zero")
	case h.Engine != EngineInterpreter && h.Engine != EngineCompiler:
		return invalid("engine", h.Engine, "must be interpreter or compiler")
	case uint64(h.ArenaBase)+uint64(h.ArenaSize) > uint64(h.Pages)*65536:
		return invalid("arena_size", h.ArenaSize, "arena does not fit in guest memory")
	}
	return nil
}

func (l LogConfig) Validate() error {
	if _, err := zapcore.ParseLevel(l.Level); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("log", "level").
			Value(l.Level).
			Cause(err).
			Build()
	}
	return nil
}

// Build returns the configured logger.
func (l LogConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
