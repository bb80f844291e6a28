package closure

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/wippyai/ffi-runtime/vptr"
)

func TestArcFn_RetainReleaseSymmetry(t *testing.T) {
	tests := []struct {
		name   string
		clones int
	}{
		{"original only", 0},
		{"one clone", 1},
		{"many clones", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var drops atomic.Int32
			f := NewArcFn0(func() int { return 7 }, OnDrop(func() { drops.Add(1) }))

			refs := []ArcFn0[int]{f}
			for i := 0; i < tt.clones; i++ {
				refs = append(refs, f.Clone())
			}
			for i, r := range refs {
				if got := r.Call(); got != 7 {
					t.Fatalf("Call = %d, want 7", got)
				}
				if drops.Load() != 0 {
					t.Fatalf("destroyed after %d releases", i)
				}
				r.Release()
			}
			if drops.Load() != 1 {
				t.Fatalf("destroyed %d times, want 1", drops.Load())
			}
		})
	}
}

func TestArcFn1_Call(t *testing.T) {
	isEven := NewArcFn1(func(x int32) bool { return x%2 == 0 })
	defer isEven.Release()

	tests := []struct {
		in   int32
		want bool
	}{
		{0, true},
		{3, false},
		{-4, true},
	}
	for _, tt := range tests {
		if got := isEven.Call(tt.in); got != tt.want {
			t.Errorf("Call(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestArcFn2_Call(t *testing.T) {
	add := NewArcFn2(func(a, b int) int { return a + b })
	c := add.Clone()
	add.Release()
	if got := c.Call(2, 40); got != 42 {
		t.Fatalf("Call = %d, want 42", got)
	}
	c.Release()
}

func TestArcFn_ConcurrentCall(t *testing.T) {
	var calls atomic.Int64
	var drops atomic.Int32
	f := NewArcFn0(func() vptr.Void {
		calls.Add(1)
		return vptr.Void{}
	}, OnDrop(func() { drops.Add(1) }))

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		c := f.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer c.Release()
			for j := 0; j < 100; j++ {
				c.Call()
			}
		}()
	}
	wg.Wait()
	f.Release()

	if calls.Load() != workers*100 {
		t.Errorf("calls = %d, want %d", calls.Load(), workers*100)
	}
	if drops.Load() != 1 {
		t.Errorf("destroyed %d times, want 1", drops.Load())
	}
}

func TestArcFn_SharedVTable(t *testing.T) {
	a := NewArcFn1(func(int) int { return 1 })
	b := NewArcFn1(func(int) int { return 2 })
	defer a.Release()
	defer b.Release()

	if a.VTable != b.VTable {
		t.Error("closures of one shape should share a vtable")
	}
	if a.Ptr == b.Ptr {
		t.Error("closures should have distinct handles")
	}
}

func TestBoxFn_CallConsumes(t *testing.T) {
	var calls, drops atomic.Int32
	f := NewBoxFn1(func(s string) int {
		calls.Add(1)
		if drops.Load() != 0 {
			t.Error("environment destroyed before the call returned")
		}
		return len(s)
	}, OnDrop(func() { drops.Add(1) }))

	if got := f.Call("hello"); got != 5 {
		t.Fatalf("Call = %d, want 5", got)
	}
	if calls.Load() != 1 || drops.Load() != 1 {
		t.Fatalf("calls=%d drops=%d, want 1/1", calls.Load(), drops.Load())
	}

	defer func() {
		if recover() == nil {
			t.Fatal("second Call should fault")
		}
	}()
	f.Call("again")
}

func TestArcFn_StaleCallFaults(t *testing.T) {
	released := NewArcFn0(func() string { return "released" })
	released.Release()

	live := NewArcFn0(func() string { return "live" })
	defer live.Release()

	if got := live.Call(); got != "live" {
		t.Fatalf("Call = %q, want live", got)
	}

	var got string
	defer func() {
		if recover() == nil {
			t.Fatalf("call through released closure returned %q", got)
		}
	}()
	got = released.Call()
}

func TestBoxFn_FreeWithoutCall(t *testing.T) {
	var calls, drops atomic.Int32
	f := NewBoxFn0(func() vptr.Void {
		calls.Add(1)
		return vptr.Void{}
	}, OnDrop(func() { drops.Add(1) }))

	f.Free()
	if calls.Load() != 0 {
		t.Fatal("Free invoked the closure")
	}
	if drops.Load() != 1 {
		t.Fatalf("destroyed %d times, want 1", drops.Load())
	}
}

func TestScoped1(t *testing.T) {
	var got []string
	var leaked RefFn1[string, vptr.Void]

	Scoped1(func(s string) vptr.Void {
		got = append(got, s)
		return vptr.Void{}
	}, func(cb RefFn1[string, vptr.Void]) {
		cb.Call("Hello, World!")
		leaked = cb
	})

	if len(got) != 1 || got[0] != "Hello, World!" {
		t.Fatalf("got %v", got)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("calling a revoked borrow should fault")
		}
	}()
	leaked.Call("late")
}

func TestNoLeaks(t *testing.T) {
	before := shared.Live() + owned.Live() + borrowed.Live()

	a := NewArcFn0(func() int { return 0 })
	a.Clone().Release()
	a.Release()
	NewBoxFn0(func() int { return 0 }).Call()
	NewBoxFn1(func(int) int { return 0 }).Free()
	Scoped1(func(int) int { return 0 }, func(RefFn1[int, int]) {})

	if after := shared.Live() + owned.Live() + borrowed.Live(); after != before {
		t.Fatalf("live closures = %d, want %d", after, before)
	}
}
