package wasm

import (
	"errors"
	"io"

	"github.com/wippyai/wasm-repl/wasm/internal/binary"
)

// Decoding errors. Messages follow the wording conformance scripts expect
// from assert_malformed.
var (
	ErrInvalidMagic      = errors.New("magic header not detected")
	ErrInvalidVersion    = errors.New("unknown binary version")
	ErrUnexpectedEnd     = binary.ErrUnexpectedEnd
	ErrSectionID         = errors.New("malformed section id")
	ErrSectionOrder      = errors.New("unexpected content after last section")
	ErrSectionSize       = errors.New("section size mismatch")
	ErrImportKind        = errors.New("malformed import kind")
	ErrExportKind        = errors.New("malformed export kind")
	ErrMutability        = errors.New("malformed mutability")
	ErrLimits            = errors.New("integer too large")
	ErrDuplicateExport   = errors.New("duplicate export name")
	ErrMalformedName     = binary.ErrInvalidName
	ErrIntegerOverflow   = binary.ErrOverflow
	ErrUnknownHeapPrefix = errors.New("malformed reference type")
)

// ParseModule decodes the section framing of a binary module along with its
// import and export sections. Function bodies and type definitions are left
// to the engine's validator.
func ParseModule(data []byte) (*Module, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", 0, ErrUnexpectedEnd)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", 0, ErrUnexpectedEnd)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	m := &Module{}
	var lastOrder int
	for {
		id, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, r.WrapError("section header", 0, err)
		}

		if id != SectionCustom {
			order := sectionOrder(id)
			if order == 0 {
				return nil, r.WrapError("section header", 0, ErrSectionID)
			}
			if order <= lastOrder {
				return nil, r.WrapError("section header", 0, ErrSectionOrder)
			}
			lastOrder = order
		}

		size, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("section size", 0, err)
		}
		base := r.Position()
		payload, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, r.WrapError("section data", 0, err)
		}

		sec := Section{ID: id, Payload: payload}
		sr := binary.NewReader(payload)
		switch id {
		case SectionCustom:
			name, err := sr.ReadName()
			if err != nil {
				return nil, sr.WrapError("custom section", base, err)
			}
			sec.Name = name
		case SectionImport:
			if err := parseImportSection(sr, m); err != nil {
				return nil, sr.WrapError("import section", base, err)
			}
		case SectionExport:
			if err := parseExportSection(sr, m); err != nil {
				return nil, sr.WrapError("export section", base, err)
			}
		}
		m.Sections = append(m.Sections, sec)
	}
	return m, nil
}

func parseImportSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		var imp Import
		if imp.Module, err = r.ReadName(); err != nil {
			return err
		}
		if imp.Name, err = r.ReadName(); err != nil {
			return err
		}
		if imp.Kind, err = r.ReadByte(); err != nil {
			return ErrUnexpectedEnd
		}
		start := r.Position()
		if err := skipImportDesc(r, imp.Kind); err != nil {
			return err
		}
		imp.Desc = r.Since(start)
		m.Imports = append(m.Imports, imp)
	}
	if r.Len() != 0 {
		return ErrSectionSize
	}
	return nil
}

func parseExportSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, count)
	for i := uint32(0); i < count; i++ {
		var exp Export
		if exp.Name, err = r.ReadName(); err != nil {
			return err
		}
		if exp.Kind, err = r.ReadByte(); err != nil {
			return ErrUnexpectedEnd
		}
		if exp.Kind > KindTag {
			return ErrExportKind
		}
		if exp.Index, err = r.ReadU32(); err != nil {
			return err
		}
		if _, dup := seen[exp.Name]; dup {
			return ErrDuplicateExport
		}
		seen[exp.Name] = struct{}{}
		m.Exports = append(m.Exports, exp)
	}
	if r.Len() != 0 {
		return ErrSectionSize
	}
	return nil
}

func skipImportDesc(r *binary.Reader, kind byte) error {
	switch kind {
	case KindFunc:
		_, err := r.ReadU32()
		return err
	case KindTable:
		if err := skipRefType(r); err != nil {
			return err
		}
		return skipLimits(r)
	case KindMemory:
		return skipLimits(r)
	case KindGlobal:
		if err := skipValType(r); err != nil {
			return err
		}
		mut, err := r.ReadByte()
		if err != nil {
			return ErrUnexpectedEnd
		}
		if mut > 1 {
			return ErrMutability
		}
		return nil
	case KindTag:
		if _, err := r.ReadByte(); err != nil {
			return ErrUnexpectedEnd
		}
		_, err := r.ReadU32()
		return err
	default:
		return ErrImportKind
	}
}

func skipValType(r *binary.Reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return ErrUnexpectedEnd
	}
	if b == refNullPrefix || b == refPrefix {
		_, err = r.ReadS64()
	}
	return err
}

func skipRefType(r *binary.Reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return ErrUnexpectedEnd
	}
	switch {
	case b == refNullPrefix || b == refPrefix:
		_, err = r.ReadS64()
		return err
	case b >= 0x69 && b <= 0x74:
		return nil
	default:
		return ErrUnknownHeapPrefix
	}
}

func skipLimits(r *binary.Reader) error {
	flags, err := r.ReadByte()
	if err != nil {
		return ErrUnexpectedEnd
	}
	if flags > LimitsHasMax|LimitsShared|LimitsMemory64 {
		return ErrLimits
	}
	read := func() error {
		if flags&LimitsMemory64 != 0 {
			_, err := r.ReadU64()
			return err
		}
		_, err := r.ReadU32()
		return err
	}
	if err := read(); err != nil {
		return err
	}
	if flags&LimitsHasMax != 0 {
		return read()
	}
	return nil
}
