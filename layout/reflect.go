package layout

import (
	"reflect"

	"github.com/wippyai/ffi-runtime/errors"
)

// FromGo derives the boundary type of a Go mirror type so its Go layout can be
// checked against Calculate. Go slices, strings, maps, channels and
// interfaces have no boundary form.
func FromGo(t reflect.Type) (Type, error) {
	return fromGo(t, map[reflect.Type]*Struct{})
}

func fromGo(t reflect.Type, seen map[reflect.Type]*Struct) (Type, error) {
	switch t.Kind() {
	case reflect.Bool:
		return Bool, nil
	case reflect.Int8:
		return I8, nil
	case reflect.Uint8:
		return U8, nil
	case reflect.Int16:
		return I16, nil
	case reflect.Uint16:
		return U16, nil
	case reflect.Int32:
		return I32, nil
	case reflect.Uint32:
		return U32, nil
	case reflect.Int64:
		return I64, nil
	case reflect.Uint64:
		return U64, nil
	case reflect.Int:
		return Isize, nil
	case reflect.Uint, reflect.Uintptr:
		return Usize, nil
	case reflect.Float32:
		return F32, nil
	case reflect.Float64:
		return F64, nil
	case reflect.UnsafePointer:
		return Ptr{}, nil
	case reflect.Func:
		return FuncPtr{Name: t.String()}, nil
	case reflect.Pointer:
		if s, ok := seen[t.Elem()]; ok {
			return Ptr{Elem: s}, nil
		}
		elem, err := fromGo(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		return Ptr{Elem: elem}, nil
	case reflect.Array:
		elem, err := fromGo(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		return Array{Elem: elem, Len: uint32(t.Len())}, nil
	case reflect.Struct:
		s := &Struct{Name: t.Name(), Fields: make([]Field, 0, t.NumField())}
		seen[t] = s
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			ft, err := fromGo(f.Type, seen)
			if err != nil {
				return nil, errors.New(errors.PhaseLayout, errors.KindUnsupported).
					Path(t.String(), f.Name).
					Cause(err).
					Detail("field type %s", f.Type).
					Build()
			}
			s.Fields = append(s.Fields, Field{Name: f.Name, Type: ft})
		}
		return s, nil
	default:
		return nil, errors.Unsupported(errors.PhaseLayout, "go type "+t.String())
	}
}
