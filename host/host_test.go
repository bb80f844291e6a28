package host

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ffi-runtime/errors"
)

type adder struct{ calls int }

func (a *adder) Namespace() string { return "math" }

func (a *adder) Functions() map[string]Func {
	return map[string]Func{
		"add": {
			Fn: func(_ context.Context, _ api.Module, stack []uint64) {
				a.calls++
				stack[0] = api.EncodeI32(api.DecodeI32(stack[0]) + api.DecodeI32(stack[1]))
			},
			Params:  []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
			Results: []api.ValueType{api.ValueTypeI32},
		},
		"neg": {
			Fn: func(_ context.Context, _ api.Module, stack []uint64) {
				stack[0] = api.EncodeI32(-api.DecodeI32(stack[0]))
			},
			Params:  []api.ValueType{api.ValueTypeI32},
			Results: []api.ValueType{api.ValueTypeI32},
		},
	}
}

func TestRegistry_Validation(t *testing.T) {
	noop := Func{Fn: func(context.Context, api.Module, []uint64) {}}
	tests := []struct {
		name string
		ns   string
		fn   string
		f    Func
	}{
		{"empty namespace", "", "f", noop},
		{"empty name", "ns", "", noop},
		{"nil handler", "ns", "f", Func{}},
	}
	r := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.RegisterFunc(tt.ns, tt.fn, tt.f)
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseHost, Kind: errors.KindInvalidInput}) {
				t.Fatalf("error = %v, want invalid input", err)
			}
		})
	}
	if len(r.Namespaces()) != 0 {
		t.Fatal("failed registrations left namespaces behind")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterHost(&adder{}); err != nil {
		t.Fatal(err)
	}
	names := r.Names("math")
	if len(names) != 2 || names[0] != "add" || names[1] != "neg" {
		t.Fatalf("Names = %v", names)
	}
	if ns := r.Namespaces(); len(ns) != 1 || ns[0] != "math" {
		t.Fatalf("Namespaces = %v", ns)
	}
	if _, err := r.Guest("nope", 1); !stderrors.Is(err, &errors.Error{Kind: errors.KindNotFound}) {
		t.Fatalf("Guest(nope) = %v, want not found", err)
	}
}

func TestRuntime_LoadCall(t *testing.T) {
	ctx := context.Background()
	a := &adder{}
	reg := NewRegistry()
	if err := reg.RegisterHost(a); err != nil {
		t.Fatal(err)
	}

	rt, err := New(ctx, reg, WithRuntimeConfig(wazero.NewRuntimeConfigInterpreter()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close(ctx)

	g, err := reg.Guest("math", 1)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := rt.Load(ctx, g.Encode())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer inst.Close(ctx)

	if inst.Memory() == nil || inst.Memory().Size() != 65536 {
		t.Fatalf("guest memory = %v", inst.Memory())
	}

	tests := []struct {
		fn     string
		params []uint64
		want   int32
	}{
		{"add", []uint64{api.EncodeI32(2), api.EncodeI32(40)}, 42},
		{"add", []uint64{api.EncodeI32(-5), api.EncodeI32(3)}, -2},
		{"neg", []uint64{api.EncodeI32(7)}, -7},
	}
	for _, tt := range tests {
		res, err := inst.Call(ctx, tt.fn, tt.params...)
		if err != nil {
			t.Fatalf("Call(%s): %v", tt.fn, err)
		}
		if got := api.DecodeI32(res[0]); got != tt.want {
			t.Errorf("%s%v = %d, want %d", tt.fn, tt.params, got, tt.want)
		}
	}
	if a.calls != 2 {
		t.Errorf("add calls = %d, want 2", a.calls)
	}

	if _, err := inst.Call(ctx, "missing"); !stderrors.Is(err, &errors.Error{Kind: errors.KindNotFound}) {
		t.Fatalf("Call(missing) = %v, want not found", err)
	}
}

func TestRuntime_TwoGuests(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()
	_ = reg.RegisterHost(&adder{})
	rt, err := New(ctx, reg, WithRuntimeConfig(wazero.NewRuntimeConfigInterpreter()))
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close(ctx)

	g, _ := reg.Guest("math", 0)
	first, err := rt.Load(ctx, g.Encode())
	if err != nil {
		t.Fatal(err)
	}
	second, err := rt.Load(ctx, g.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if first.Name() == second.Name() {
		t.Fatalf("guests share name %q", first.Name())
	}
	if first.Memory() != nil {
		t.Fatal("guest without pages should have no memory")
	}
}

func TestRuntime_Closed(t *testing.T) {
	ctx := context.Background()
	rt, err := New(ctx, NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if err := rt.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Load(ctx, nil); !stderrors.Is(err, &errors.Error{Kind: errors.KindClosed}) {
		t.Fatalf("Load after Close = %v, want closed", err)
	}
	if err := rt.Close(ctx); err != nil {
		t.Fatalf("second Close = %v", err)
	}
}
