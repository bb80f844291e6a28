package layout

import (
	"math"
	"strconv"

	"github.com/wippyai/ffi-runtime/errors"
)

// Info is the binary layout of a type.
type Info struct {
	FieldOffs map[string]uint32
	Size      uint32
	Align     uint32
}

// Calculator computes layouts for one target. PtrSize is 4 for wasm32 and 8
// for native 64-bit targets.
type Calculator struct {
	cache   map[Type]Info
	PtrSize uint32
}

func NewCalculator(ptrSize uint32) *Calculator {
	return &Calculator{
		PtrSize: ptrSize,
		cache:   make(map[Type]Info),
	}
}

// Calculate returns the layout of t. It fails on nil types, invalid enums, a
// raw array outside its wrapper struct, and sizes that overflow 32 bits.
func (c *Calculator) Calculate(t Type) (Info, error) {
	return c.calculate(t, nil)
}

func (c *Calculator) calculate(t Type, path []string) (Info, error) {
	switch typ := t.(type) {
	case nil:
		return Info{}, errors.InvalidData(errors.PhaseLayout, path, "missing type")
	case Scalar:
		return c.scalar(typ, path)
	case Ptr, Optional, CString, FuncPtr:
		return Info{Size: c.PtrSize, Align: c.PtrSize}, nil
	case Slice:
		return Info{
			Size:      2 * c.PtrSize,
			Align:     c.PtrSize,
			FieldOffs: map[string]uint32{"ptr": 0, "len": c.PtrSize},
		}, nil
	case Array:
		return c.array(typ, path)
	case *Enum:
		repr, err := EnumRepr(typ)
		if err != nil {
			return Info{}, err
		}
		return c.scalar(repr, path)
	case *Struct:
		return c.structure(typ, path)
	case *VirtualPtr:
		if cached, ok := c.cache[typ]; ok {
			return cached, nil
		}
		info, err := c.structure(typ.Struct(), path)
		if err == nil {
			c.cache[typ] = info
		}
		return info, err
	default:
		return Info{}, errors.Unsupported(errors.PhaseLayout, "type "+t.String())
	}
}

func (c *Calculator) scalar(s Scalar, path []string) (Info, error) {
	switch s {
	case U8, I8, Bool:
		return Info{Size: 1, Align: 1}, nil
	case U16, I16:
		return Info{Size: 2, Align: 2}, nil
	case U32, I32, F32, Char:
		return Info{Size: 4, Align: 4}, nil
	case U64, I64, F64:
		return Info{Size: 8, Align: 8}, nil
	case Usize, Isize:
		return Info{Size: c.PtrSize, Align: c.PtrSize}, nil
	default:
		return Info{}, errors.InvalidData(errors.PhaseLayout, path, "invalid scalar "+s.String())
	}
}

func (c *Calculator) array(a Array, path []string) (Info, error) {
	elem, err := c.calculate(a.Elem, append(path, "[]"))
	if err != nil {
		return Info{}, err
	}
	size, ok := safeMul(AlignTo(elem.Size, elem.Align), a.Len)
	if !ok {
		return Info{}, errors.Overflow(errors.PhaseLayout, a.Len, a.String())
	}
	return Info{Size: size, Align: elem.Align}, nil
}

func (c *Calculator) structure(s *Struct, path []string) (Info, error) {
	if cached, ok := c.cache[s]; ok {
		return cached, nil
	}
	if len(s.Fields) == 0 {
		return Info{Size: 0, Align: 1}, nil
	}

	fieldOffs := make(map[string]uint32, len(s.Fields))
	maxAlign := uint32(1)
	offset := uint32(0)

	for i, field := range s.Fields {
		name := field.Name
		if name == "" {
			name = strconv.Itoa(i)
		}
		fieldPath := append(append([]string(nil), path...), name)

		if _, raw := field.Type.(Array); raw && len(s.Fields) > 1 {
			return Info{}, errors.InvalidData(errors.PhaseLayout, fieldPath,
				"fixed-size array must be the only field of its wrapper struct")
		}

		fieldLayout, err := c.calculate(field.Type, fieldPath)
		if err != nil {
			return Info{}, err
		}

		offset = AlignTo(offset, fieldLayout.Align)
		fieldOffs[name] = offset

		if fieldLayout.Align > maxAlign {
			maxAlign = fieldLayout.Align
		}

		var ok bool
		if offset, ok = safeAdd(offset, fieldLayout.Size); !ok {
			return Info{}, errors.Overflow(errors.PhaseLayout, s.String(), "u32")
		}
	}

	info := Info{
		Size:      AlignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: fieldOffs,
	}
	c.cache[s] = info
	return info, nil
}

// AlignTo rounds offset up to a multiple of align, which must be a power of two.
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

func safeMul(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

func safeAdd(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}
