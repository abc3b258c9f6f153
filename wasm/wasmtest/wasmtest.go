// Package wasmtest assembles small binary modules for tests.
package wasmtest

import (
	"github.com/wippyai/wasm-repl/wasm"
	"github.com/wippyai/wasm-repl/wasm/internal/binary"
)

// Value types as encoded in the binary format.
const (
	I32       byte = 0x7F
	I64       byte = 0x7E
	F32       byte = 0x7D
	F64       byte = 0x7C
	FuncRef   byte = 0x70
	ExternRef byte = 0x6F
)

// Instruction opcodes used by fixtures.
const (
	OpUnreachable byte = 0x00
	OpNop         byte = 0x01
	OpCall        byte = 0x10
	OpDrop        byte = 0x1A
	OpLocalGet    byte = 0x20
	OpGlobalGet   byte = 0x23
	OpGlobalSet   byte = 0x24
	OpI32Load     byte = 0x28
	OpI32Const    byte = 0x41
	OpI64Const    byte = 0x42
	OpI32Add      byte = 0x6A
	OpI32DivS     byte = 0x6D
	OpI64Add      byte = 0x7C
	OpF32Add      byte = 0x92
	OpEnd         byte = 0x0B
)

// FuncType is a function signature.
type FuncType struct {
	Params  []byte
	Results []byte
}

// Func is a defined function. Body excludes the trailing end opcode.
type Func struct {
	Locals []byte
	Body   []byte
	Type   uint32
}

// Global is a defined global. Init excludes the trailing end opcode.
type Global struct {
	Init    []byte
	Type    byte
	Mutable bool
}

// Module describes a fixture module.
type Module struct {
	Start    *uint32
	Types    []FuncType
	Imports  []wasm.Import
	Funcs    []Func
	Globals  []Global
	Exports  []wasm.Export
	Memories []uint32
}

// FuncImport returns a function import of the given type index.
func FuncImport(module, name string, typeIdx uint32) wasm.Import {
	w := binary.NewWriter()
	w.WriteU32(typeIdx)
	return wasm.Import{Module: module, Name: name, Kind: wasm.KindFunc, Desc: w.Bytes()}
}

// GlobalImport returns a global import.
func GlobalImport(module, name string, valType byte, mutable bool) wasm.Import {
	mut := byte(0)
	if mutable {
		mut = 1
	}
	return wasm.Import{Module: module, Name: name, Kind: wasm.KindGlobal, Desc: []byte{valType, mut}}
}

// MemoryImport returns a memory import with only a minimum.
func MemoryImport(module, name string, minPages uint32) wasm.Import {
	w := binary.NewWriter()
	w.Byte(0)
	w.WriteU32(minPages)
	return wasm.Import{Module: module, Name: name, Kind: wasm.KindMemory, Desc: w.Bytes()}
}

// FuncExport exports function idx under name.
func FuncExport(name string, idx uint32) wasm.Export {
	return wasm.Export{Name: name, Kind: wasm.KindFunc, Index: idx}
}

// GlobalExport exports global idx under name.
func GlobalExport(name string, idx uint32) wasm.Export {
	return wasm.Export{Name: name, Kind: wasm.KindGlobal, Index: idx}
}

// I32Const encodes i32.const v.
func I32Const(v int32) []byte {
	w := binary.NewWriter()
	w.Byte(OpI32Const)
	w.WriteS64(int64(v))
	return w.Bytes()
}

// I64Const encodes i64.const v.
func I64Const(v int64) []byte {
	w := binary.NewWriter()
	w.Byte(OpI64Const)
	w.WriteS64(v)
	return w.Bytes()
}

// Ops concatenates instruction fragments.
func Ops(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Module returns the decoded form of the fixture.
func (m Module) Module() *wasm.Module {
	out := &wasm.Module{Imports: m.Imports, Exports: m.Exports}
	add := func(id byte, payload []byte) {
		out.Sections = append(out.Sections, wasm.Section{ID: id, Payload: payload})
	}

	if len(m.Types) > 0 {
		w := binary.NewWriter()
		w.WriteU32(uint32(len(m.Types)))
		for _, t := range m.Types {
			w.Byte(0x60)
			w.WriteU32(uint32(len(t.Params)))
			w.WriteBytes(t.Params)
			w.WriteU32(uint32(len(t.Results)))
			w.WriteBytes(t.Results)
		}
		add(wasm.SectionType, w.Bytes())
	}
	if len(m.Imports) > 0 {
		add(wasm.SectionImport, wasm.EncodeImports(m.Imports))
	}
	if len(m.Funcs) > 0 {
		w := binary.NewWriter()
		w.WriteU32(uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			w.WriteU32(f.Type)
		}
		add(wasm.SectionFunction, w.Bytes())
	}
	if len(m.Memories) > 0 {
		w := binary.NewWriter()
		w.WriteU32(uint32(len(m.Memories)))
		for _, pages := range m.Memories {
			w.Byte(0)
			w.WriteU32(pages)
		}
		add(wasm.SectionMemory, w.Bytes())
	}
	if len(m.Globals) > 0 {
		w := binary.NewWriter()
		w.WriteU32(uint32(len(m.Globals)))
		for _, g := range m.Globals {
			w.Byte(g.Type)
			if g.Mutable {
				w.Byte(1)
			} else {
				w.Byte(0)
			}
			w.WriteBytes(g.Init)
			w.Byte(OpEnd)
		}
		add(wasm.SectionGlobal, w.Bytes())
	}
	if len(m.Exports) > 0 {
		add(wasm.SectionExport, wasm.EncodeExports(m.Exports))
	}
	if m.Start != nil {
		w := binary.NewWriter()
		w.WriteU32(*m.Start)
		add(wasm.SectionStart, w.Bytes())
	}
	if len(m.Funcs) > 0 {
		w := binary.NewWriter()
		w.WriteU32(uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			body := binary.NewWriter()
			body.WriteU32(uint32(len(f.Locals)))
			for _, l := range f.Locals {
				body.WriteU32(1)
				body.Byte(l)
			}
			body.WriteBytes(f.Body)
			body.Byte(OpEnd)
			w.WriteU32(uint32(body.Len()))
			w.WriteBytes(body.Bytes())
		}
		add(wasm.SectionCode, w.Bytes())
	}
	return out
}

// Bytes encodes the fixture.
func (m Module) Bytes() []byte {
	return m.Module().Encode()
}

// Uint32 returns a pointer to v, for Module.Start.
func Uint32(v uint32) *uint32 {
	return &v
}
