// Package value converts between protocol text and typed WebAssembly values.
package value

import (
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-repl/errors"
)

// Type is a value type, encoded as in the binary format.
type Type byte

const (
	I32       Type = Type(api.ValueTypeI32)
	I64       Type = Type(api.ValueTypeI64)
	F32       Type = Type(api.ValueTypeF32)
	F64       Type = Type(api.ValueTypeF64)
	FuncRef   Type = 0x70
	ExternRef Type = Type(api.ValueTypeExternref)
)

func (t Type) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case FuncRef:
		return "funcref"
	case ExternRef:
		return "externref"
	default:
		return "unknown"
	}
}

// IsRef reports whether t is a reference type.
func (t Type) IsRef() bool {
	return t == FuncRef || t == ExternRef
}

// FromAPI converts an engine value type. Types the protocol cannot carry,
// such as v128, are rejected.
func FromAPI(t api.ValueType) (Type, error) {
	switch v := Type(t); v {
	case I32, I64, F32, F64, FuncRef, ExternRef:
		return v, nil
	default:
		return 0, errors.New(errors.PhaseInvoke, errors.KindUnsupported).
			Value(t).
			Detail("value type 0x%02x", byte(t)).
			Build()
	}
}

// FromAPITypes converts a signature's types.
func FromAPITypes(ts []api.ValueType) ([]Type, error) {
	out := make([]Type, len(ts))
	for i, t := range ts {
		v, err := FromAPI(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// RefState distinguishes the three states of a reference value.
type RefState uint8

const (
	// RefNull is the null reference.
	RefNull RefState = iota
	// RefZero is a non-null reference whose payload is zero.
	RefZero
	// RefConcrete is a non-null reference with a non-zero payload.
	RefConcrete
)

// Ref is a reference value.
type Ref struct {
	Addr  uint64
	State RefState
}

// refZeroBits stands in for RefZero at the engine boundary, where zero
// already means null.
const refZeroBits uint64 = math.MaxUint64

// Value is a typed value. Bits carries numeric payloads, floats as their
// raw bit pattern; Ref carries reference payloads.
type Value struct {
	Bits uint64
	Ref  Ref
	Type Type
}

// I32Value returns an i32 value.
func I32Value(v uint32) Value { return Value{Type: I32, Bits: uint64(v)} }

// I64Value returns an i64 value.
func I64Value(v uint64) Value { return Value{Type: I64, Bits: v} }

// F32Value returns an f32 value from its bit pattern.
func F32Value(bits uint32) Value { return Value{Type: F32, Bits: uint64(bits)} }

// F64Value returns an f64 value from its bit pattern.
func F64Value(bits uint64) Value { return Value{Type: F64, Bits: bits} }

// RefValue returns a reference value of type t.
func RefValue(t Type, r Ref) Value { return Value{Type: t, Ref: r} }

// Null returns the null reference of type t.
func Null(t Type) Value { return RefValue(t, Ref{State: RefNull}) }

// Encode converts v to the engine's stack representation.
// A funcref can only be passed as null: the engine resolves function
// references itself and a number cannot name one.
func (v Value) Encode() (uint64, error) {
	if !v.Type.IsRef() {
		return v.Bits, nil
	}
	if v.Type == FuncRef && v.Ref.State != RefNull {
		return 0, errors.Unsupported(errors.PhaseInvoke, "non-null funcref argument")
	}
	switch v.Ref.State {
	case RefNull:
		return 0, nil
	case RefZero:
		return refZeroBits, nil
	default:
		return v.Ref.Addr, nil
	}
}

// Decode converts a raw engine stack value of type t.
func Decode(t Type, raw uint64) Value {
	switch t {
	case I32, F32:
		return Value{Type: t, Bits: uint64(uint32(raw))}
	case FuncRef, ExternRef:
		switch {
		case raw == 0:
			return Null(t)
		case raw == refZeroBits && t == ExternRef:
			return RefValue(t, Ref{State: RefZero})
		default:
			return RefValue(t, Ref{State: RefConcrete, Addr: raw})
		}
	default:
		return Value{Type: t, Bits: raw}
	}
}
