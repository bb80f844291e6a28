package boundary

import (
	"reflect"

	"github.com/tetratelabs/wazero/api"

	ffiruntime "github.com/wippyai/ffi-runtime"
	"github.com/wippyai/ffi-runtime/errors"
)

// Wrap adapts wazero linear memory to ffiruntime.Memory. It returns nil for
// a nil memory, including the typed nil wazero's Module.Memory reports for a
// module that declares none.
func Wrap(mem api.Memory) *Wrapper {
	if isNil(mem) {
		return nil
	}
	return &Wrapper{Mem: mem}
}

func isNil(mem api.Memory) bool {
	if mem == nil {
		return true
	}
	v := reflect.ValueOf(mem)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

var (
	_ ffiruntime.Memory      = (*Wrapper)(nil)
	_ ffiruntime.MemorySizer = (*Wrapper)(nil)
)

// Wrapper adapts wazero api.Memory to ffiruntime.Memory.
type Wrapper struct {
	Mem api.Memory
}

func (m *Wrapper) Size() uint32 { return m.Mem.Size() }

func (m *Wrapper) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseBoundary, offset, length)
	}
	return data, nil
}

func (m *Wrapper) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseBoundary, offset, uint32(len(data)))
	}
	return nil
}

func (m *Wrapper) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.Mem.ReadByte(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseBoundary, offset, 1)
	}
	return v, nil
}

func (m *Wrapper) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.Mem.ReadUint16Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseBoundary, offset, 2)
	}
	return v, nil
}

func (m *Wrapper) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.Mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseBoundary, offset, 4)
	}
	return v, nil
}

func (m *Wrapper) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.Mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseBoundary, offset, 8)
	}
	return v, nil
}

func (m *Wrapper) WriteU8(offset uint32, value uint8) error {
	if !m.Mem.WriteByte(offset, value) {
		return errors.OutOfBounds(errors.PhaseBoundary, offset, 1)
	}
	return nil
}

func (m *Wrapper) WriteU16(offset uint32, value uint16) error {
	if !m.Mem.WriteUint16Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseBoundary, offset, 2)
	}
	return nil
}

func (m *Wrapper) WriteU32(offset uint32, value uint32) error {
	if !m.Mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseBoundary, offset, 4)
	}
	return nil
}

func (m *Wrapper) WriteU64(offset uint32, value uint64) error {
	if !m.Mem.WriteUint64Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseBoundary, offset, 8)
	}
	return nil
}
