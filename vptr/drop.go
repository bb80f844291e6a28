package vptr

// DropVTable is the drop-glue vtable: a single release slot.
type DropVTable struct {
	Release func(Erased)
}

// DropGlue is a pure lifetime guard. Dropping it runs the producer's cleanup.
// The zero DropGlue is a no-op guard.
type DropGlue struct {
	VirtualPtr[DropVTable]
}

// Drop releases the guard. It must be called at most once.
func (g DropGlue) Drop() {
	if g.VTable == nil {
		return
	}
	g.VTable.Release(g.Ptr)
}

var guards = NewHeap[Void]("vptr.drop_glue")

var dropGlueVTable = DropVTable{
	Release: func(p Erased) { guards.Free(p) },
}

// NewDropGlue returns a guard that runs fn when dropped.
func NewDropGlue(fn func()) DropGlue {
	p := guards.Alloc(Void{}, fn)
	return DropGlue{FromRawParts(p, &dropGlueVTable)}
}

// DynDropVTable is the shared drop-glue vtable.
type DynDropVTable struct {
	Release func(Erased)
	Retain  func(Erased)
}

// DynDrop is a cloneable drop guard: the cleanup runs when the last clone is
// dropped.
type DynDrop struct {
	VirtualPtr[DynDropVTable]
}

var sharedGuards = NewHeap[Void]("vptr.dyn_drop")

var dynDropVTable = DynDropVTable{
	Release: func(p Erased) { sharedGuards.Release(p) },
	Retain:  func(p Erased) { sharedGuards.Retain(p) },
}

// NewDynDrop returns a shared guard that runs fn after the last Drop.
func NewDynDrop(fn func()) DynDrop {
	p := sharedGuards.Alloc(Void{}, fn)
	return DynDrop{FromRawParts(p, &dynDropVTable)}
}

// Clone retains the guard and returns a second holder.
func (d DynDrop) Clone() DynDrop {
	d.VTable.Retain(d.Ptr)
	return d
}

// Drop releases this holder.
func (d DynDrop) Drop() {
	d.VTable.Release(d.Ptr)
}
