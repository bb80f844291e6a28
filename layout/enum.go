package layout

import (
	"math"

	"github.com/wippyai/ffi-runtime/errors"
)

// EnumRepr returns the integer type an enum is carried as.
//
// Without explicit values the enum uses the smallest unsigned type that holds
// its case count, so 256 cases need a u16. With explicit values it uses the smallest type that holds
// all of them, signed if any is negative. A non-zero Repr wins if it can hold
// every value.
func EnumRepr(e *Enum) (Scalar, error) {
	if e.Values != nil && len(e.Values) != len(e.Cases) {
		return invalidScalar, errors.New(errors.PhaseLayout, errors.KindInvalidData).
			Type(e.String()).
			Detail("%d values for %d cases", len(e.Values), len(e.Cases)).
			Build()
	}

	// the type must hold the case count itself, not only the last index
	lo, hi := int64(0), int64(len(e.Cases))
	if e.Values != nil {
		seen := make(map[int64]string, len(e.Values))
		lo, hi = math.MaxInt64, math.MinInt64
		for i, v := range e.Values {
			if prev, dup := seen[v]; dup {
				return invalidScalar, errors.New(errors.PhaseLayout, errors.KindInvalidEnum).
					Type(e.String()).
					Value(v).
					Detail("cases %s and %s share discriminant %d", prev, e.Cases[i], v).
					Build()
			}
			seen[v] = e.Cases[i]
			lo, hi = min(lo, v), max(hi, v)
		}
		if len(e.Values) == 0 {
			lo, hi = 0, 0
		}
	}

	if e.Repr != invalidScalar {
		if !fits(e.Repr, lo, hi) {
			return invalidScalar, errors.Overflow(errors.PhaseLayout, hi, e.Repr.String())
		}
		return e.Repr, nil
	}

	candidates := []Scalar{U8, U16, U32, U64}
	if lo < 0 {
		candidates = []Scalar{I8, I16, I32, I64}
	}
	for _, s := range candidates {
		if fits(s, lo, hi) {
			return s, nil
		}
	}
	return I64, nil
}

func fits(s Scalar, lo, hi int64) bool {
	switch s {
	case U8:
		return lo >= 0 && hi <= math.MaxUint8
	case U16:
		return lo >= 0 && hi <= math.MaxUint16
	case U32:
		return lo >= 0 && hi <= math.MaxUint32
	case U64:
		return lo >= 0
	case I8:
		return lo >= math.MinInt8 && hi <= math.MaxInt8
	case I16:
		return lo >= math.MinInt16 && hi <= math.MaxInt16
	case I32:
		return lo >= math.MinInt32 && hi <= math.MaxInt32
	case I64:
		return true
	}
	return false
}

// Discriminant returns the value of the named case.
func (e *Enum) Discriminant(name string) (int64, bool) {
	for i, c := range e.Cases {
		if c == name {
			if e.Values == nil {
				return int64(i), true
			}
			return e.Values[i], true
		}
	}
	return 0, false
}
