package exports

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	ffiruntime "github.com/wippyai/ffi-runtime"
	"github.com/wippyai/ffi-runtime/boundary"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/executor"
	"github.com/wippyai/ffi-runtime/host"
	"github.com/wippyai/ffi-runtime/internal/wasmtest"
)

func loadGuest(t *testing.T, opts ...Option) (*Exports, *host.Instance) {
	t.Helper()
	ctx := context.Background()

	e := New(nil, nil, opts...)
	reg := host.NewRegistry()
	if err := reg.RegisterHost(e); err != nil {
		t.Fatalf("RegisterHost: %v", err)
	}
	rt, err := host.New(ctx, reg, host.WithRuntimeConfig(wazero.NewRuntimeConfigInterpreter()))
	if err != nil {
		t.Fatalf("host.New: %v", err)
	}
	t.Cleanup(func() { rt.Close(ctx) })

	g, err := reg.Guest(Namespace, 1)
	if err != nil {
		t.Fatalf("Guest: %v", err)
	}
	inst, err := rt.Load(ctx, g.Encode())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Bind(inst.Memory(), nil); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return e, inst
}

func call(t *testing.T, inst *host.Instance, name string, params ...uint64) uint64 {
	t.Helper()
	res, err := inst.Call(context.Background(), name, params...)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	if len(res) == 0 {
		return 0
	}
	return res[0]
}

// guestString copies s into guest memory through cabi_realloc.
func guestString(t *testing.T, inst *host.Instance, s string) uint32 {
	t.Helper()
	ptr := uint32(call(t, inst, "cabi_realloc", 0, 0, 1, uint64(len(s)+1)))
	if ptr == 0 {
		t.Fatal("cabi_realloc returned null")
	}
	if err := inst.Memory().Write(ptr, append([]byte(s), 0)); err != nil {
		t.Fatal(err)
	}
	return ptr
}

func TestABI_Max(t *testing.T) {
	_, inst := loadGuest(t)
	mem := inst.Memory()

	alloc := boundary.WrapAllocator(context.Background(), inst.Function("cabi_realloc"))
	if alloc == nil {
		t.Fatal("guest exports no cabi_realloc")
	}
	xs := []int32{-27, -42, 9, -8}
	ref, err := boundary.WriteI32s(mem, alloc, xs)
	if err != nil {
		t.Fatalf("WriteI32s: %v", err)
	}
	ptr := ref.Ptr

	got := uint32(call(t, inst, "max", uint64(ptr), uint64(len(xs))))
	if got != ptr+8 {
		t.Fatalf("max = %#x, want %#x", got, ptr+8)
	}
	if v, _ := mem.ReadU32(got); int32(v) != 9 {
		t.Fatalf("*max = %d, want 9", int32(v))
	}

	if got := call(t, inst, "max", 0, 0); got != 0 {
		t.Fatalf("max(empty) = %#x, want null", got)
	}
}

func TestABI_ConcatFree(t *testing.T) {
	e, inst := loadGuest(t)

	a := guestString(t, inst, "Hello, ")
	b := guestString(t, inst, "World!")

	p := uint32(call(t, inst, "concat", uint64(a), uint64(b)))
	if p == 0 {
		t.Fatal("concat returned null")
	}
	got, err := boundary.ReadCharP(inst.Memory(), p)
	if err != nil || got != "Hello, World!" {
		t.Fatalf("concat = (%q, %v)", got, err)
	}

	arena := e.alloc.(*boundary.Arena)
	before := arena.InUse()
	call(t, inst, "free_char_p", uint64(p))
	call(t, inst, "free_char_p", 0)
	if arena.InUse() != before-1 {
		t.Fatalf("InUse = %d, want %d", arena.InUse(), before-1)
	}
}

func TestABI_ConcatNull(t *testing.T) {
	_, inst := loadGuest(t)
	b := guestString(t, inst, "x")
	if got := call(t, inst, "concat", 0, uint64(b)); got != 0 {
		t.Fatalf("concat(null, x) = %#x, want null", got)
	}
}

func TestABI_Realloc(t *testing.T) {
	_, inst := loadGuest(t)
	mem := inst.Memory()

	p := guestString(t, inst, "abc")
	q := uint32(call(t, inst, "cabi_realloc", uint64(p), 4, 1, 16))
	if q == 0 {
		t.Fatal("grow returned null")
	}
	if s, err := boundary.ReadCharP(mem, q); err != nil || s != "abc" {
		t.Fatalf("grown contents = (%q, %v)", s, err)
	}
	if got := call(t, inst, "cabi_realloc", uint64(q), 16, 1, 0); got != 0 {
		t.Fatalf("shrink to zero = %#x, want null", got)
	}
}

func TestABI_Async(t *testing.T) {
	_, inst := loadGuest(t)
	if got := api.DecodeI32(call(t, inst, "async_get_ft")); got != 42 {
		t.Fatalf("async_get_ft = %d, want 42", got)
	}
	if got := api.DecodeI32(call(t, inst, "test_spawner")); got != -1 {
		t.Fatalf("test_spawner without executor = %d, want -1", got)
	}
}

func TestABI_TestSpawner(t *testing.T) {
	l := executor.NewLocal()
	defer l.Close(context.Background())
	h := l.Handle()
	defer h.Release()

	_, inst := loadGuest(t, WithExecutor(h))
	if got := api.DecodeI32(call(t, inst, "test_spawner")); got != 42 {
		t.Fatalf("test_spawner = %d, want 42", got)
	}
}

func TestResolve_CallerMemory(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer r.Close(ctx)

	bare, err := r.InstantiateWithConfig(ctx, wasmtest.Guest{}.Encode(), wazero.NewModuleConfig().WithName("bare"))
	if err != nil {
		t.Fatalf("Instantiate bare: %v", err)
	}
	withMem, err := r.InstantiateWithConfig(ctx, wasmtest.Guest{Pages: 1}.Encode(), wazero.NewModuleConfig().WithName("mem"))
	if err != nil {
		t.Fatalf("Instantiate mem: %v", err)
	}

	e := New(nil, nil)
	if _, _, err := e.resolve(bare); !stderrors.Is(err, errors.NotInitialized(errors.PhaseHost, "")) {
		t.Fatalf("resolve without memory or binding: err = %v, want not initialized", err)
	}

	bound := boundary.NewLinearMemory(65536)
	if err := e.Bind(bound, nil); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	tests := []struct {
		name    string
		mod     api.Module
		useBind bool
	}{
		{"nil module", nil, true},
		{"module without memory", bare, true},
		{"module with memory", withMem, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem, alloc, err := e.resolve(tt.mod)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if alloc == nil {
				t.Fatal("resolve returned no allocator")
			}
			if got := mem == ffiruntime.Memory(bound); got != tt.useBind {
				t.Fatalf("resolved to bound memory = %v, want %v", got, tt.useBind)
			}
		})
	}
}

func TestBind_NilMemory(t *testing.T) {
	e := New(nil, nil)
	var none *boundary.Wrapper
	for name, mem := range map[string]ffiruntime.Memory{"nil": nil, "nil wrapper": none} {
		if err := e.Bind(mem, nil); !stderrors.Is(err, errors.NilPointer(errors.PhaseHost, "")) {
			t.Errorf("Bind(%s): err = %v, want nil pointer", name, err)
		}
	}
}

func TestABI_MaxThroughHostModule(t *testing.T) {
	e, inst := loadGuest(t)
	mem := inst.Memory()

	xs := []int32{-27, -42, 9, -8}
	ref, err := boundary.WriteI32s(mem, e.alloc, xs)
	if err != nil {
		t.Fatalf("WriteI32s: %v", err)
	}
	got := uint32(call(t, inst, "max", uint64(ref.Ptr), uint64(ref.Len)))
	if got != ref.ElemAddr(2, 4) {
		t.Fatalf("max = %#x, want %#x", got, ref.ElemAddr(2, 4))
	}
}
