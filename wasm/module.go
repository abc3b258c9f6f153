package wasm

import "github.com/wippyai/wasm-repl/wasm/internal/binary"

// Module is a binary module decoded down to its section framing, with the
// import and export tables lifted out. Section payloads alias the input.
type Module struct {
	Sections []Section
	Imports  []Import
	Exports  []Export
}

// Section is one top-level section in file order.
type Section struct {
	// Name is set for custom sections only; it is also part of Payload.
	Name    string
	Payload []byte
	ID      byte
}

// Import is one entry of the import section.
type Import struct {
	Module string
	Name   string
	// Desc holds the descriptor bytes that follow the kind byte, verbatim.
	Desc []byte
	Kind byte
}

// Export is one entry of the export section.
type Export struct {
	Name  string
	Index uint32
	Kind  byte
}

// FindExport returns the export with the given name and kind.
func (m *Module) FindExport(name string, kind byte) (Export, bool) {
	for _, e := range m.Exports {
		if e.Name == name && e.Kind == kind {
			return e, true
		}
	}
	return Export{}, false
}

// Encode serializes the module. Sections are written back in their
// original order, so a decoded module encodes to its input bytes.
func (m *Module) Encode() []byte {
	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)
	for _, s := range m.Sections {
		w.Section(s.ID, s.Payload)
	}
	return w.Bytes()
}

// RewriteImports returns a copy of m whose import section names the module
// chosen by rename for each import. Descriptors and every other section are
// carried over unchanged.
func (m *Module) RewriteImports(rename func(i int, imp Import) string) *Module {
	out := &Module{
		Sections: make([]Section, len(m.Sections)),
		Imports:  make([]Import, len(m.Imports)),
		Exports:  m.Exports,
	}
	copy(out.Sections, m.Sections)
	for i, imp := range m.Imports {
		imp.Module = rename(i, imp)
		out.Imports[i] = imp
	}
	for i := range out.Sections {
		if out.Sections[i].ID == SectionImport {
			out.Sections[i].Payload = EncodeImports(out.Imports)
		}
	}
	return out
}

// EncodeImports builds an import section payload.
func EncodeImports(imports []Import) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(imports)))
	for _, imp := range imports {
		w.WriteName(imp.Module)
		w.WriteName(imp.Name)
		w.Byte(imp.Kind)
		w.WriteBytes(imp.Desc)
	}
	return w.Bytes()
}

// EncodeExports builds an export section payload.
func EncodeExports(exports []Export) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(exports)))
	for _, e := range exports {
		w.WriteName(e.Name)
		w.Byte(e.Kind)
		w.WriteU32(e.Index)
	}
	return w.Bytes()
}
