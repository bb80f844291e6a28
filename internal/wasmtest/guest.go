// Package wasmtest builds minimal core wasm guests for tests: a memory plus
// imported functions re-exported under the same names. Calling a re-export
// calls the host function with the host module as the calling module, so host
// code cannot reach the guest's memory through it and needs it bound.
package wasmtest

import "github.com/tetratelabs/wazero/api"

const (
	sectionType   = 1
	sectionImport = 2
	sectionMemory = 5
	sectionExport = 7

	kindFunc   = 0x00
	kindMemory = 0x02

	funcTypeByte = 0x60
)

// Func is a host function the guest imports and re-exports.
type Func struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// Guest describes a guest module.
type Guest struct {
	// Module the functions are imported from.
	Module string
	Funcs  []Func
	// Pages of exported memory named "memory". Zero means no memory.
	Pages uint32
}

// Encode returns the guest's wasm binary.
func (g Guest) Encode() []byte {
	w := &writer{}
	w.WriteBytes([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})

	if len(g.Funcs) > 0 {
		sec := &writer{}
		sec.WriteU32(uint32(len(g.Funcs)))
		for _, f := range g.Funcs {
			sec.Byte(funcTypeByte)
			sec.WriteU32(uint32(len(f.Params)))
			sec.WriteBytes(f.Params)
			sec.WriteU32(uint32(len(f.Results)))
			sec.WriteBytes(f.Results)
		}
		w.section(sectionType, sec)

		sec = &writer{}
		sec.WriteU32(uint32(len(g.Funcs)))
		for i, f := range g.Funcs {
			sec.WriteName(g.Module)
			sec.WriteName(f.Name)
			sec.Byte(kindFunc)
			sec.WriteU32(uint32(i))
		}
		w.section(sectionImport, sec)
	}

	if g.Pages > 0 {
		sec := &writer{}
		sec.WriteU32(1)
		sec.Byte(0x00) // min only
		sec.WriteU32(g.Pages)
		w.section(sectionMemory, sec)
	}

	exports := len(g.Funcs)
	if g.Pages > 0 {
		exports++
	}
	if exports > 0 {
		sec := &writer{}
		sec.WriteU32(uint32(exports))
		for i, f := range g.Funcs {
			sec.WriteName(f.Name)
			sec.Byte(kindFunc)
			sec.WriteU32(uint32(i))
		}
		if g.Pages > 0 {
			sec.WriteName("memory")
			sec.Byte(kindMemory)
			sec.WriteU32(0)
		}
		w.section(sectionExport, sec)
	}

	return w.Bytes()
}
