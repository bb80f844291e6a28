package executor

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/future"
)

type harness struct {
	name  string
	start func(t *testing.T, opts ...Option) (Executor, func())
}

func harnesses() []harness {
	return []harness{
		{"pool", func(t *testing.T, opts ...Option) (Executor, func()) {
			cfg := DefaultConfig()
			cfg.Workers = 4
			p, err := NewPool(cfg, opts...)
			if err != nil {
				t.Fatalf("NewPool: %v", err)
			}
			h := p.Handle()
			return h, func() {
				h.Release()
				if err := p.Close(context.Background()); err != nil {
					t.Errorf("Close: %v", err)
				}
			}
		}},
		{"local", func(t *testing.T, opts ...Option) (Executor, func()) {
			l := NewLocal(opts...)
			h := l.Handle()
			return h, func() {
				h.Release()
				if err := l.Close(context.Background()); err != nil {
					t.Errorf("Close: %v", err)
				}
			}
		}},
	}
}

func TestBlockOnSpawn(t *testing.T) {
	for _, h := range harnesses() {
		t.Run(h.name, func(t *testing.T) {
			ex, done := h.start(t)
			defer done()

			v, err := BlockOn[int32](ex, Spawn(ex, future.Value(int32(42))))
			if err != nil {
				t.Fatalf("BlockOn: %v", err)
			}
			if v != 42 {
				t.Fatalf("BlockOn = %d, want 42", v)
			}
		})
	}
}

func TestSpawnTimer(t *testing.T) {
	for _, h := range harnesses() {
		t.Run(h.name, func(t *testing.T) {
			ex, done := h.start(t)
			defer done()

			inner := future.After(15 * time.Millisecond)
			timed := future.TaskFunc[string](func(cx future.Context) (string, future.PollFuture) {
				if inner.Poll(cx) == future.Pending {
					return "", future.Pending
				}
				return "fired", future.Completed
			})

			start := time.Now()
			v, err := BlockOn[string](ex, Spawn[string](ex, timed))
			inner.Drop()
			if err != nil || v != "fired" {
				t.Fatalf("BlockOn = (%q, %v)", v, err)
			}
			if time.Since(start) < 15*time.Millisecond {
				t.Fatal("completed before the timer fired")
			}
		})
	}
}

func TestPollsNeverOverlap(t *testing.T) {
	for _, h := range harnesses() {
		t.Run(h.name, func(t *testing.T) {
			ex, done := h.start(t)
			defer done()

			var active, overlaps atomic.Int32
			n := 0
			task := future.TaskFunc[int](func(cx future.Context) (int, future.PollFuture) {
				if active.Add(1) > 1 {
					overlaps.Add(1)
				}
				defer active.Add(-1)

				n++
				if n == 50 {
					return n, future.Completed
				}
				// Wake from inside the poll and from another goroutine
				cx.Wake()
				w := cx.Waker()
				go func() {
					w.Call()
					w.Release()
				}()
				time.Sleep(100 * time.Microsecond)
				return 0, future.Pending
			})

			v, err := BlockOn[int](ex, Spawn[int](ex, task))
			if err != nil || v != 50 {
				t.Fatalf("BlockOn = (%d, %v)", v, err)
			}
			if overlaps.Load() != 0 {
				t.Fatalf("%d overlapping polls", overlaps.Load())
			}
		})
	}
}

func TestSpawnPanic(t *testing.T) {
	for _, h := range harnesses() {
		t.Run(h.name, func(t *testing.T) {
			obs, logs := observer.New(zapcore.ErrorLevel)
			ex, done := h.start(t, WithLogger(zap.New(obs)))
			defer done()

			jh := Spawn[int](ex, future.TaskFunc[int](func(future.Context) (int, future.PollFuture) {
				panic("boom")
			}))
			v, err := BlockOn[int](ex, jh)
			if err != nil {
				t.Fatalf("BlockOn: %v", err)
			}
			if v != 0 {
				t.Errorf("value = %d, want 0", v)
			}
			if !stderrors.Is(jh.Err(), ErrTaskPanicked) {
				t.Fatalf("Err = %v, want task panicked", jh.Err())
			}
			if logs.FilterMessage("future panicked").Len() != 1 {
				t.Errorf("panic logs = %d, want 1", logs.FilterMessage("future panicked").Len())
			}
		})
	}
}

func TestBlockOnPanic(t *testing.T) {
	for _, h := range harnesses() {
		t.Run(h.name, func(t *testing.T) {
			ex, done := h.start(t)
			defer done()

			_, err := BlockOn[int](ex, future.TaskFunc[int](func(future.Context) (int, future.PollFuture) {
				panic(stderrors.New("bad poll"))
			}))
			if !stderrors.Is(err, ErrTaskPanicked) {
				t.Fatalf("BlockOn err = %v, want task panicked", err)
			}
			if !stderrors.Is(err, errors.ErrPanicked) {
				t.Fatalf("BlockOn err = %v, want kind panicked", err)
			}
		})
	}
}

func TestSpawnBlocking(t *testing.T) {
	for _, h := range harnesses() {
		t.Run(h.name, func(t *testing.T) {
			ex, done := h.start(t)
			defer done()

			var ran atomic.Int32
			join := SpawnBlocking(ex, func() {
				time.Sleep(5 * time.Millisecond)
				ran.Add(1)
			})
			ex.DynBlockOn(join)

			if ran.Load() != 1 {
				t.Fatalf("blocking closure ran %d times, want 1", ran.Load())
			}
		})
	}
}

type forever struct {
	dropped *atomic.Bool
}

func (f *forever) Poll(future.Context) (int, future.PollFuture) { return 0, future.Pending }
func (f *forever) Drop()                                        { f.dropped.Store(true) }

func TestCloseDropsPendingTasks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 2
	p, err := NewPool(cfg)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	ex := p.Handle()
	defer ex.Release()

	var dropped atomic.Bool
	jh := Spawn[int](ex, &forever{dropped: &dropped})

	deadline := time.Now().Add(time.Second)
	for p.Pending() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !dropped.Load() {
		t.Fatal("pending task was not dropped")
	}
	if p.Pending() != 0 {
		t.Fatalf("Pending = %d after Close", p.Pending())
	}

	v, err := future.AwaitTask[int](context.Background(), jh)
	if err != nil || v != 0 {
		t.Fatalf("AwaitTask = (%d, %v)", v, err)
	}
	if !stderrors.Is(jh.Err(), ErrTaskDropped) {
		t.Fatalf("Err = %v, want task dropped", jh.Err())
	}

	// Spawning through a surviving handle drops the future immediately
	var late atomic.Bool
	Spawn[int](ex, &forever{dropped: &late}).Drop()
	if !late.Load() {
		t.Fatal("future spawned on a closed pool was not dropped")
	}

	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestBlockOnIncomplete(t *testing.T) {
	p, err := NewPool(DefaultConfig())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	ex := p.Handle()
	defer ex.Release()

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = p.Close(context.Background())
	}()

	var dropped atomic.Bool
	_, err = BlockOn[int](ex, &forever{dropped: &dropped})
	if !stderrors.Is(err, ErrIncomplete) {
		t.Fatalf("BlockOn err = %v, want incomplete", err)
	}
	if !dropped.Load() {
		t.Fatal("block_on future was not dropped")
	}
}

func TestLocal_RunUntilStalled(t *testing.T) {
	l := NewLocal()
	defer l.Close(context.Background())
	ex := l.Handle()
	defer ex.Release()

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		Spawn[int](ex, future.TaskFunc[int](func(future.Context) (int, future.PollFuture) {
			order = append(order, i)
			return i, future.Completed
		})).Drop()
	}

	if len(order) != 0 {
		t.Fatal("local tasks ran before being driven")
	}
	if n := l.RunUntilStalled(); n != 3 {
		t.Fatalf("RunUntilStalled = %d, want 3", n)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v", order)
		}
	}
	if l.Pending() != 0 {
		t.Fatalf("Pending = %d", l.Pending())
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"zero blocking", func(c *Config) { c.BlockingWorkers = 0 }, true},
		{"negative queue", func(c *Config) { c.QueueSize = -1 }, true},
		{"zero queue", func(c *Config) { c.QueueSize = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var e *errors.Error
				if !stderrors.As(err, &e) || e.Phase != errors.PhaseConfig {
					t.Errorf("error = %#v, want config phase", err)
				}
			}
		})
	}

	if _, err := NewPool(Config{}); err == nil {
		t.Fatal("NewPool accepted an empty config")
	}
}

func TestExecutorRefcount(t *testing.T) {
	before := executors.Live()
	l := NewLocal()
	ex := l.Handle()
	c := ex.Clone()
	c.Release()
	ex.Release()
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if after := executors.Live(); after != before {
		t.Fatalf("live executors = %d, want %d", after, before)
	}
}
