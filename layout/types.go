package layout

import (
	"fmt"
	"strings"
)

// Type describes a value as it crosses the boundary.
type Type interface {
	String() string
	isType()
}

// Scalar is a fixed-size primitive.
type Scalar uint8

const (
	invalidScalar Scalar = iota
	U8
	I8
	U16
	I16
	U32
	I32
	U64
	I64
	F32
	F64
	Bool
	Char  // unicode scalar value, 4 bytes
	Usize // pointer sized
	Isize // pointer sized
)

var scalarNames = [...]string{
	invalidScalar: "invalid",
	U8:            "u8",
	I8:            "i8",
	U16:           "u16",
	I16:           "i16",
	U32:           "u32",
	I32:           "i32",
	U64:           "u64",
	I64:           "i64",
	F32:           "f32",
	F64:           "f64",
	Bool:          "bool",
	Char:          "char",
	Usize:         "usize",
	Isize:         "isize",
}

func (s Scalar) String() string {
	if int(s) < len(scalarNames) {
		return scalarNames[s]
	}
	return fmt.Sprintf("scalar(%d)", uint8(s))
}

func (Scalar) isType() {}

// Signed reports whether s is a signed integer.
func (s Scalar) Signed() bool {
	switch s {
	case I8, I16, I32, I64, Isize:
		return true
	}
	return false
}

// Ptr is a raw pointer. A nil Elem is an untyped pointer.
type Ptr struct {
	Elem Type
}

func (p Ptr) String() string {
	if p.Elem == nil {
		return "*void"
	}
	return "*" + p.Elem.String()
}

func (Ptr) isType() {}

// FuncPtr is a function pointer; in wasm32 a table index.
type FuncPtr struct {
	Name string
}

func (f FuncPtr) String() string {
	if f.Name == "" {
		return "fn"
	}
	return "fn " + f.Name
}

func (FuncPtr) isType() {}

// CString is a borrowed or owned nul-terminated byte string.
type CString struct{}

func (CString) String() string { return "char_p" }
func (CString) isType()        {}

// Slice is a length-carrying sequence: {ptr, len}.
type Slice struct {
	Elem Type
}

func (s Slice) String() string { return "[" + s.Elem.String() + "]" }
func (Slice) isType()          {}

// Optional is a nullable pointer to Elem.
type Optional struct {
	Elem Type
}

func (o Optional) String() string { return "?" + o.Elem.String() }
func (Optional) isType()          {}

// Array is a raw fixed-size array. Inside a struct it must be the only field
// of a wrapper struct; see WrapArray.
type Array struct {
	Elem Type
	Len  uint32
}

func (a Array) String() string { return fmt.Sprintf("[%s; %d]", a.Elem, a.Len) }
func (Array) isType()          {}

// Field is a named struct member.
type Field struct {
	Type Type
	Name string
}

// Struct is laid out in declared field order with natural alignment.
type Struct struct {
	Name   string
	Fields []Field
}

func (s *Struct) String() string {
	if s.Name != "" {
		return "struct " + s.Name
	}
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return "struct { " + strings.Join(parts, ", ") + " }"
}

func (*Struct) isType() {}

// Enum is a field-less enumeration. Values holds explicit discriminants, one
// per case; nil means implicit values starting at 0. Repr forces the
// representation when non-zero.
type Enum struct {
	Name   string
	Cases  []string
	Values []int64
	Repr   Scalar
}

func (e *Enum) String() string { return "enum " + e.Name }
func (*Enum) isType()          {}

// VirtualPtr is an erased handle followed by its vtable slots, inlined.
type VirtualPtr struct {
	Name  string
	Slots []string
}

func (v *VirtualPtr) String() string { return "VirtualPtr<" + v.Name + ">" }
func (*VirtualPtr) isType()          {}

// Struct returns the plain struct v is laid out as.
func (v *VirtualPtr) Struct() *Struct {
	slots := make([]Field, len(v.Slots))
	for i, s := range v.Slots {
		slots[i] = Field{Name: s, Type: FuncPtr{Name: s}}
	}
	return &Struct{
		Name: "VirtualPtr<" + v.Name + ">",
		Fields: []Field{
			{Name: "ptr", Type: Ptr{}},
			{Name: "vtable", Type: &Struct{Name: v.Name + "VTable", Fields: slots}},
		},
	}
}

// WrapArray returns the single-field wrapper struct a fixed-size array is
// carried in when nested inside another struct.
func WrapArray(name string, elem Type, n uint32) *Struct {
	return &Struct{
		Name:   name,
		Fields: []Field{{Name: "array", Type: Array{Elem: elem, Len: n}}},
	}
}
