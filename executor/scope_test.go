package executor

import (
	"context"
	"testing"

	"github.com/wippyai/ffi-runtime/vptr"
)

func TestEnterCurrent(t *testing.T) {
	a := NewLocal(WithName("a"))
	b := NewLocal(WithName("b"))
	defer a.Close(context.Background())
	defer b.Close(context.Background())
	ea, eb := a.Handle(), b.Handle()
	defer ea.Release()
	defer eb.Release()

	if _, ok := Current(); ok {
		t.Fatal("Current without Enter")
	}

	ga := Enter(ea)
	gb := Enter(eb)

	cur, ok := Current()
	if !ok || cur != eb {
		t.Fatalf("Current = %v, want b", cur)
	}
	cur.Release()

	// Out of order drop removes the right scope
	ga.Drop()
	cur, ok = Current()
	if !ok || cur != eb {
		t.Fatalf("Current after dropping a = %v, want b", cur)
	}
	cur.Release()

	gb.Drop()
	if _, ok := Current(); ok {
		t.Fatal("Current after all guards dropped")
	}
}

func TestFromContext(t *testing.T) {
	l := NewLocal()
	defer l.Close(context.Background())
	ex := l.Handle()
	defer ex.Release()

	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("FromContext on empty context")
	}

	got, ok := FromContext(WithExecutor(context.Background(), ex))
	if !ok || got != ex {
		t.Fatalf("FromContext = %v", got)
	}
	got.Release()

	g := Enter(ex)
	defer g.Drop()
	got, ok = FromContext(context.Background())
	if !ok || got != ex {
		t.Fatal("FromContext should fall back to the entered executor")
	}
	got.Release()
}

func TestDynEnter_PoolRefBalance(t *testing.T) {
	if executorVTable.Enter == nil {
		t.Fatal("executor vtable has no Enter slot")
	}

	p, err := NewPool(DefaultConfig())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer p.Close(context.Background())
	ex := p.Handle()
	defer ex.Release()

	before := executors.Refs(ex.Ptr)

	guards := make([]vptr.DropGlue, 0, 3)
	for i := 0; i < 3; i++ {
		guards = append(guards, ex.DynEnter())
		if got, want := executors.Refs(ex.Ptr), before+int32(i+1); got != want {
			t.Fatalf("refs after %d enters = %d, want %d", i+1, got, want)
		}
	}

	cur, ok := Current()
	if !ok || cur != ex {
		t.Fatalf("Current = %v, want pool", cur)
	}
	cur.Release()

	for _, g := range guards {
		g.Drop()
	}
	if got := executors.Refs(ex.Ptr); got != before {
		t.Fatalf("refs after guards dropped = %d, want %d", got, before)
	}
	if _, ok := Current(); ok {
		t.Fatal("Current after all guards dropped")
	}
}
