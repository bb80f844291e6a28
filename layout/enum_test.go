package layout

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/ffi-runtime/errors"
)

func TestEnumRepr(t *testing.T) {
	cases := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = "c"
		}
		return out
	}
	many := cases(300)

	tests := []struct {
		name    string
		enum    *Enum
		want    Scalar
		wantErr errors.Kind
	}{
		{"implicit two", &Enum{Cases: []string{"A", "B"}}, U8, ""},
		{"implicit empty", &Enum{}, U8, ""},
		{"implicit 255", &Enum{Cases: cases(255)}, U8, ""},
		{"implicit 256", &Enum{Cases: cases(256)}, U16, ""},
		{"implicit 300", &Enum{Cases: many}, U16, ""},
		{"implicit 256 forced u8", &Enum{Cases: cases(256), Repr: U8}, 0, errors.KindOverflow},
		{"poll future", PollFuture, I8, ""},
		{"bar", &Enum{Name: "Bar", Cases: []string{"A", "B"}, Values: []int64{43, 42}}, U8, ""},
		{"bar forced i8", &Enum{Name: "Bar", Cases: []string{"A", "B"}, Values: []int64{43, 42}, Repr: I8}, I8, ""},
		{"triforce", &Enum{Name: "Triforce", Cases: []string{"Din", "Farore", "Naryu"}, Values: []int64{3, 1, 2}}, U8, ""},
		{"negative wide", &Enum{Cases: []string{"A"}, Values: []int64{-200}}, I16, ""},
		{"u32 range", &Enum{Cases: []string{"A", "B"}, Values: []int64{0, 70000}}, U32, ""},
		{"i64 range", &Enum{Cases: []string{"A", "B"}, Values: []int64{-1, 1 << 40}}, I64, ""},
		{"duplicate", &Enum{Cases: []string{"A", "B"}, Values: []int64{1, 1}}, 0, errors.KindInvalidEnum},
		{"count mismatch", &Enum{Cases: []string{"A", "B"}, Values: []int64{1}}, 0, errors.KindInvalidData},
		{"repr too small", &Enum{Cases: many, Repr: U8}, 0, errors.KindOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EnumRepr(tt.enum)
			if tt.wantErr != "" {
				var e *errors.Error
				if !stderrors.As(err, &e) || e.Kind != tt.wantErr {
					t.Fatalf("EnumRepr() error = %v, want kind %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("EnumRepr() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EnumRepr() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnum_Discriminant(t *testing.T) {
	tri := &Enum{Cases: []string{"Din", "Farore", "Naryu"}, Values: []int64{3, 1, 2}}
	if v, ok := tri.Discriminant("Farore"); !ok || v != 1 {
		t.Errorf("Discriminant(Farore) = (%d, %v)", v, ok)
	}
	implicit := &Enum{Cases: []string{"A", "B"}}
	if v, ok := implicit.Discriminant("B"); !ok || v != 1 {
		t.Errorf("Discriminant(B) = (%d, %v)", v, ok)
	}
	if _, ok := implicit.Discriminant("C"); ok {
		t.Error("Discriminant(C) should be absent")
	}
}
