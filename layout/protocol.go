package layout

// Entry is one named protocol type with its computed layout.
type Entry struct {
	Type Type
	Name string
	Info Info
}

// PollFuture is the poll result enum.
var PollFuture = &Enum{
	Name:   "PollFuture",
	Cases:  []string{"Completed", "Pending"},
	Values: []int64{0, -1},
}

// Virtual pointer shapes, slots in published order.
var (
	ArcDynFn   = &VirtualPtr{Name: "ArcDynFn", Slots: []string{"call", "release", "retain"}}
	BoxDynFn   = &VirtualPtr{Name: "BoxDynFn", Slots: []string{"call", "free"}}
	RefDynFn   = &VirtualPtr{Name: "RefDynFn", Slots: []string{"call"}}
	FfiFuture  = &VirtualPtr{Name: "FfiFuture", Slots: []string{"poll", "drop"}}
	FfiContext = &VirtualPtr{Name: "FfiContext", Slots: []string{"wake", "get_waker"}}
	Executor   = &VirtualPtr{Name: "Executor", Slots: []string{
		"retain", "release", "spawn", "spawn_blocking", "block_on", "enter",
	}}
	DropGlue = &VirtualPtr{Name: "DropGlue", Slots: []string{"release"}}
	DynDrop  = &VirtualPtr{Name: "DynDrop", Slots: []string{"release", "retain"}}
)

// Primitive boundary shapes.
var (
	CharP    Type = CString{}
	SliceI32 Type = Slice{Elem: I32}
	OptI32   Type = Optional{Elem: I32}
)

// Protocol returns the layouts of the protocol's own types for a target with
// the given pointer size.
func Protocol(ptrSize uint32) ([]Entry, error) {
	types := []struct {
		name string
		typ  Type
	}{
		{"PollFuture", PollFuture},
		{"ArcDynFn", ArcDynFn},
		{"BoxDynFn", BoxDynFn},
		{"RefDynFn", RefDynFn},
		{"FfiFuture", FfiFuture},
		{"FfiContext", FfiContext},
		{"Executor", Executor},
		{"DropGlue", DropGlue},
		{"DynDrop", DynDrop},
		{"char_p", CharP},
		{"slice_ref<i32>", SliceI32},
		{"option<&i32>", OptI32},
	}

	c := NewCalculator(ptrSize)
	out := make([]Entry, 0, len(types))
	for _, t := range types {
		info, err := c.Calculate(t.typ)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Name: t.name, Type: t.typ, Info: info})
	}
	return out, nil
}
