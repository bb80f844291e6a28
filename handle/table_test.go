package handle

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnHandleEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func TestTable_InsertGetRemove(t *testing.T) {
	tbl := NewTable()

	h := tbl.Insert(7, "value")
	if h == 0 {
		t.Fatal("Insert returned null handle")
	}

	if v, ok := tbl.GetKind(h, 7); !ok || v != "value" {
		t.Fatalf("GetKind = (%v, %v)", v, ok)
	}
	if _, ok := tbl.GetKind(h, 8); ok {
		t.Fatal("GetKind with wrong kind should fail")
	}

	if _, ok := tbl.Remove(h); !ok {
		t.Fatal("Remove failed")
	}
	if tbl.Len() != 0 {
		t.Fatalf("Len = %d, want 0", tbl.Len())
	}
}

func TestTable_Observers(t *testing.T) {
	tbl := NewTable()
	rec := &recorder{}

	// Events before subscription are not delivered
	h0 := tbl.Insert(1, "early")

	tbl.Subscribe(rec)
	h := tbl.Insert(1, "x")
	tbl.Emit(Event{Type: EventRetained, Handle: h, Kind: 1})
	tbl.Emit(Event{Type: EventReleased, Handle: h, Kind: 1})
	tbl.Remove(h)

	got := rec.types()
	want := []EventType{EventCreated, EventRetained, EventReleased, EventDropped}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	tbl.Unsubscribe(rec)
	tbl.Remove(h0)
	if len(rec.types()) != len(want) {
		t.Error("events delivered after Unsubscribe")
	}
}

func TestTable_RemoveRunsDropper(t *testing.T) {
	tbl := NewTable()
	dropped := 0

	h := tbl.Insert(1, dropCounter{n: &dropped})
	tbl.Remove(h)
	tbl.Remove(h)

	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
}

func TestTable_ClearAndClose(t *testing.T) {
	tbl := NewTable()
	dropped := 0
	for i := 0; i < 4; i++ {
		tbl.Insert(1, dropCounter{n: &dropped})
	}

	tbl.Clear()
	if dropped != 4 || tbl.Len() != 0 {
		t.Fatalf("after Clear: dropped=%d len=%d", dropped, tbl.Len())
	}

	tbl.Close()
	if h := tbl.Insert(1, "late"); h != 0 {
		t.Errorf("Insert after Close = %d, want 0", h)
	}
}

func TestTyped(t *testing.T) {
	tbl := NewTable()
	ints := NewTyped[int](tbl, 1)
	strs := NewTyped[string](tbl, 2)

	hi := ints.Insert(42)
	hs := strs.Insert("s")

	if v, ok := ints.Get(hi); !ok || v != 42 {
		t.Errorf("ints.Get = (%v, %v)", v, ok)
	}
	if _, ok := ints.Get(hs); ok {
		t.Error("typed Get should reject a handle of another kind")
	}
	if _, ok := ints.Remove(hs); ok {
		t.Error("typed Remove should reject a handle of another kind")
	}
	if ints.Len() != 1 || strs.Len() != 1 {
		t.Errorf("Len: ints=%d strs=%d", ints.Len(), strs.Len())
	}

	if v, ok := ints.Remove(hi); !ok || v != 42 {
		t.Errorf("Remove = (%v, %v)", v, ok)
	}
	if tbl.Len() != 1 {
		t.Errorf("table Len = %d, want 1", tbl.Len())
	}
}

func TestLogObserver(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tbl := NewTable()
	tbl.Subscribe(NewLogObserver(zap.New(core), map[uint32]string{3: "closure.arc"}))

	h := tbl.Insert(3, struct{}{})
	tbl.Remove(h)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2", len(entries))
	}
	if entries[0].Message != "handle created" || entries[1].Message != "handle dropped" {
		t.Errorf("messages = %q, %q", entries[0].Message, entries[1].Message)
	}
	if entries[0].ContextMap()["kind_name"] != "closure.arc" {
		t.Errorf("kind_name = %v", entries[0].ContextMap()["kind_name"])
	}
}
