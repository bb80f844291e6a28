package boundary

import (
	"encoding/binary"
	"sync"

	ffiruntime "github.com/wippyai/ffi-runtime"
	"github.com/wippyai/ffi-runtime/errors"
)

var (
	_ ffiruntime.Memory      = (*LinearMemory)(nil)
	_ ffiruntime.MemorySizer = (*LinearMemory)(nil)
)

// LinearMemory is a fixed-size Go-backed plain memory with the same
// little-endian addressing as wasm linear memory. Read returns a copy.
type LinearMemory struct {
	buf []byte
	mu  sync.RWMutex
}

// NewLinearMemory allocates size bytes of zeroed memory.
func NewLinearMemory(size uint32) *LinearMemory {
	return &LinearMemory{buf: make([]byte, size)}
}

func (m *LinearMemory) Size() uint32 { return uint32(len(m.buf)) }

func (m *LinearMemory) span(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.buf)) {
		return nil, errors.OutOfBounds(errors.PhaseBoundary, offset, length)
	}
	return m.buf[offset:end], nil
}

func (m *LinearMemory) Read(offset uint32, length uint32) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.span(offset, length)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (m *LinearMemory) Write(offset uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.span(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

func (m *LinearMemory) ReadU8(offset uint32) (uint8, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.span(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *LinearMemory) ReadU16(offset uint32) (uint16, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.span(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (m *LinearMemory) ReadU32(offset uint32) (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.span(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *LinearMemory) ReadU64(offset uint32) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.span(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *LinearMemory) WriteU8(offset uint32, value uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.span(offset, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

func (m *LinearMemory) WriteU16(offset uint32, value uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.span(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

func (m *LinearMemory) WriteU32(offset uint32, value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.span(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

func (m *LinearMemory) WriteU64(offset uint32, value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.span(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}
