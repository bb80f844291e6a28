package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/ffi-runtime/boundary"
	"github.com/wippyai/ffi-runtime/closure"
	"github.com/wippyai/ffi-runtime/executor"
	"github.com/wippyai/ffi-runtime/exports"
	"github.com/wippyai/ffi-runtime/vptr"
)

const pageSize = 65536

// operation is one producer export as offered by the commands and the TUI.
type operation struct {
	name     string
	params   []param
	variadic bool
	run      func(ctx context.Context, args []string) (string, error)
}

type param struct {
	name    string
	typeStr string
}

func operations() []operation {
	return []operation{
		{
			name:     "max",
			params:   []param{{"xs", "i32..."}},
			variadic: true,
			run:      runMax,
		},
		{
			name:   "concat",
			params: []param{{"fst", "string"}, {"snd", "string"}},
			run:    runConcat,
		},
		{
			name:   "with_concat",
			params: []param{{"fst", "string"}, {"snd", "string"}},
			run:    runWithConcat,
		},
		{
			name: "call_in_the_background",
			run:  runBackground,
		},
		{
			name: "test_spawner",
			run:  func(ctx context.Context, _ []string) (string, error) { return runSpawner(ctx, false) },
		},
		{
			name: "async_get_ft",
			run: func(context.Context, []string) (string, error) {
				return strconv.Itoa(int(producer().AsyncGetFT())), nil
			},
		},
	}
}

// producer returns exports over a fresh Go-backed memory sized by the
// host configuration.
func producer(opts ...exports.Option) *exports.Exports {
	e := exports.New(nil, nil, append([]exports.Option{
		exports.WithLogger(logger.Named("exports")),
		exports.WithNamespace(cfg.Host.Namespace),
		exports.WithArena(cfg.Host.ArenaBase, cfg.Host.ArenaSize),
	}, opts...)...)
	return e
}

func boundProducer(opts ...exports.Option) (*exports.Exports, error) {
	e := producer(opts...)
	if err := e.Bind(boundary.NewLinearMemory(cfg.Host.Pages*pageSize), nil); err != nil {
		return nil, err
	}
	return e, nil
}

func parseI32s(args []string) ([]int32, error) {
	var xs []int32
	for _, a := range args {
		for _, f := range strings.FieldsFunc(a, func(r rune) bool { return r == ',' || r == ' ' }) {
			v, err := strconv.ParseInt(f, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("parse %q: %w", f, err)
			}
			xs = append(xs, int32(v))
		}
	}
	return xs, nil
}

func runMax(_ context.Context, args []string) (string, error) {
	xs, err := parseI32s(args)
	if err != nil {
		return "", err
	}
	p := producer().Max(xs)
	if p == nil {
		return "<none>", nil
	}
	return strconv.Itoa(int(*p)), nil
}

func runConcat(_ context.Context, args []string) (string, error) {
	e, err := boundProducer()
	if err != nil {
		return "", err
	}
	s, err := e.Concat(args[0], args[1])
	if err != nil {
		return "", err
	}
	defer e.FreeCharP(s)

	v, err := s.String(e.Memory())
	if err != nil {
		return "", err
	}
	return strconv.Quote(v), nil
}

func runWithConcat(_ context.Context, args []string) (string, error) {
	e, err := boundProducer()
	if err != nil {
		return "", err
	}

	var (
		got   string
		calls int
		rerr  error
	)
	closure.Scoped1(func(p uint32) vptr.Void {
		calls++
		got, rerr = boundary.ReadCharP(e.Memory(), p)
		return vptr.Void{}
	}, func(cb closure.RefFn1[uint32, vptr.Void]) {
		err = e.WithConcat(args[0], args[1], cb)
	})
	if err != nil {
		return "", err
	}
	if rerr != nil {
		return "", rerr
	}
	return fmt.Sprintf("%q (callback calls: %d)", got, calls), nil
}

func runBackground(ctx context.Context, _ []string) (string, error) {
	called := make(chan struct{})
	released := make(chan struct{})
	f := closure.NewArcFn0(func() vptr.Void {
		close(called)
		return vptr.Void{}
	}, closure.OnDrop(func() { close(released) }))

	producer().CallInTheBackground(f)

	for _, ch := range []chan struct{}{called, released} {
		select {
		case <-ch:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "called once, released", nil
}

// withExecutor runs fn with a handle to a pool built from the configuration,
// or to a local executor.
func withExecutor(ctx context.Context, local bool, fn func(executor.Executor) (string, error)) (string, error) {
	if local {
		l := executor.NewLocal(
			executor.WithLogger(logger.Named("executor")),
			executor.WithBlockingWorkers(cfg.Executor.BlockingWorkers),
		)
		defer l.Close(ctx)
		h := l.Handle()
		defer h.Release()
		return fn(h)
	}

	p, err := executor.NewPool(cfg.Executor, executor.WithLogger(logger.Named("executor")))
	if err != nil {
		return "", err
	}
	defer p.Close(ctx)
	h := p.Handle()
	defer h.Release()
	return fn(h)
}

func runSpawner(ctx context.Context, local bool) (string, error) {
	return withExecutor(ctx, local, func(ex executor.Executor) (string, error) {
		return strconv.Itoa(int(producer().TestSpawner(ex))), nil
	})
}
