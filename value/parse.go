package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-repl/errors"
)

// Parse reads text as a value of type t.
//
// Numeric types take an unsigned integer, in hex with a 0x prefix, octal
// with a leading 0, decimal otherwise, and reinterpret its bits at the
// type's width. Reference types take "null", "0" for the present-but-zero
// reference, or any other integer as a concrete reference.
func Parse(t Type, text string) (Value, error) {
	switch t {
	case I32, F32:
		n, err := parseUint(text, 32)
		if err != nil {
			return Value{}, errors.InvalidFormat(errors.PhaseProtocol, text, err.Error())
		}
		return Value{Type: t, Bits: n}, nil
	case I64, F64:
		n, err := parseUint(text, 64)
		if err != nil {
			return Value{}, errors.InvalidFormat(errors.PhaseProtocol, text, err.Error())
		}
		return Value{Type: t, Bits: n}, nil
	case FuncRef, ExternRef:
		return parseRef(t, text)
	default:
		return Value{}, errors.Unsupported(errors.PhaseProtocol, "value type "+t.String())
	}
}

func parseRef(t Type, text string) (Value, error) {
	if text == "null" {
		return Null(t), nil
	}
	n, err := parseUint(text, 64)
	if err != nil {
		return Value{}, errors.InvalidFormat(errors.PhaseProtocol, text, err.Error())
	}
	switch n {
	case 0:
		return RefValue(t, Ref{State: RefZero}), nil
	case math.MaxUint64:
		return Value{}, errors.InvalidFormat(errors.PhaseProtocol, text, "reserved reference value")
	default:
		return RefValue(t, Ref{State: RefConcrete, Addr: n}), nil
	}
}

// parseUint accepts digits only: no sign, no underscores, no 0b/0o prefixes.
func parseUint(s string, bits int) (uint64, error) {
	base := 10
	digits := s
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		base, digits = 16, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, digits = 8, s[1:]
	}
	if digits == "" {
		return 0, strconv.ErrSyntax
	}
	n, err := strconv.ParseUint(digits, base, bits)
	if err != nil {
		return 0, err.(*strconv.NumError).Err
	}
	return n, nil
}
