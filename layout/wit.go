package layout

import (
	"strconv"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/ffi-runtime/errors"
)

// FromWIT maps a WIT type onto its boundary type. Strings and lists become
// length-carrying slices and options become nullable pointers. Variants,
// results and resources have no plain boundary form and are rejected.
func FromWIT(t wit.Type) (Type, error) {
	return fromWIT(t, map[*wit.TypeDef]Type{})
}

func fromWIT(t wit.Type, seen map[*wit.TypeDef]Type) (Type, error) {
	switch typ := t.(type) {
	case wit.U8:
		return U8, nil
	case wit.S8:
		return I8, nil
	case wit.U16:
		return U16, nil
	case wit.S16:
		return I16, nil
	case wit.U32:
		return U32, nil
	case wit.S32:
		return I32, nil
	case wit.U64:
		return U64, nil
	case wit.S64:
		return I64, nil
	case wit.F32:
		return F32, nil
	case wit.F64:
		return F64, nil
	case wit.Bool:
		return Bool, nil
	case wit.Char:
		return Char, nil
	case wit.String:
		return Slice{Elem: U8}, nil
	case *wit.TypeDef:
		if cached, ok := seen[typ]; ok {
			return cached, nil
		}
		out, err := fromTypeDef(typ, seen)
		if err != nil {
			return nil, err
		}
		seen[typ] = out
		return out, nil
	default:
		return nil, errors.Unsupported(errors.PhaseLayout, "wit type")
	}
}

func fromTypeDef(t *wit.TypeDef, seen map[*wit.TypeDef]Type) (Type, error) {
	name := ""
	if t.Name != nil {
		name = *t.Name
	}

	switch kind := t.Kind.(type) {
	case *wit.Record:
		s := &Struct{Name: name, Fields: make([]Field, 0, len(kind.Fields))}
		for _, f := range kind.Fields {
			ft, err := fromWIT(f.Type, seen)
			if err != nil {
				return nil, err
			}
			s.Fields = append(s.Fields, Field{Name: f.Name, Type: ft})
		}
		return s, nil
	case *wit.Tuple:
		s := &Struct{Name: name, Fields: make([]Field, 0, len(kind.Types))}
		for i, et := range kind.Types {
			ft, err := fromWIT(et, seen)
			if err != nil {
				return nil, err
			}
			s.Fields = append(s.Fields, Field{Name: strconv.Itoa(i), Type: ft})
		}
		return s, nil
	case *wit.Enum:
		e := &Enum{Name: name, Cases: make([]string, len(kind.Cases))}
		for i, c := range kind.Cases {
			e.Cases[i] = c.Name
		}
		return e, nil
	case *wit.Flags:
		switch n := len(kind.Flags); {
		case n <= 8:
			return U8, nil
		case n <= 16:
			return U16, nil
		case n <= 32:
			return U32, nil
		case n <= 64:
			return U64, nil
		default:
			return nil, errors.Unsupported(errors.PhaseLayout, "flags wider than 64 bits")
		}
	case *wit.List:
		et, err := fromWIT(kind.Type, seen)
		if err != nil {
			return nil, err
		}
		return Slice{Elem: et}, nil
	case *wit.Option:
		et, err := fromWIT(kind.Type, seen)
		if err != nil {
			return nil, err
		}
		return Optional{Elem: et}, nil
	case *wit.Variant:
		return nil, errors.Unsupported(errors.PhaseLayout, "variant "+name+" has no plain boundary form")
	case *wit.Result:
		return nil, errors.Unsupported(errors.PhaseLayout, "result "+name+" has no plain boundary form")
	case wit.Type:
		return fromWIT(kind, seen)
	default:
		return nil, errors.Unsupported(errors.PhaseLayout, "wit definition "+name)
	}
}
