package value

import (
	"strconv"
	"strings"
)

// EmptyStack is rendered for a result type with no values.
const EmptyStack = "<Empty Stack>"

// String renders v as "value:type". i32 and f32 print their bits as an
// unsigned 32-bit integer, i64 and f64 as an unsigned 64-bit integer.
func (v Value) String() string {
	var b strings.Builder
	v.appendTo(&b)
	return b.String()
}

func (v Value) appendTo(b *strings.Builder) {
	switch v.Type {
	case I32, F32:
		b.WriteString(strconv.FormatUint(uint64(uint32(v.Bits)), 10))
	case FuncRef, ExternRef:
		switch v.Ref.State {
		case RefNull:
			b.WriteString("null")
		case RefZero:
			b.WriteByte('0')
		default:
			b.WriteString(strconv.FormatUint(v.Ref.Addr, 10))
		}
	default:
		b.WriteString(strconv.FormatUint(v.Bits, 10))
	}
	b.WriteByte(':')
	b.WriteString(v.Type.String())
}

// Render joins values with ", " in declared order.
func Render(vals []Value) string {
	if len(vals) == 0 {
		return EmptyStack
	}
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteString(", ")
		}
		v.appendTo(&b)
	}
	return b.String()
}
