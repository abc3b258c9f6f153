package value

import (
	"strconv"
	"strings"

	"github.com/wippyai/wasm-repl/errors"
)

// Unescape decodes a name token. Double quotes delimit segments and are
// dropped; \xHH inserts the byte HH and works inside or outside quotes.
// Any other backslash escape, a short \x escape or an unterminated quote
// is an error.
func Unescape(token string) (string, error) {
	var b strings.Builder
	b.Grow(len(token))
	inQuote := false
	for i := 0; i < len(token); {
		c := token[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			i++
		case c == '\\':
			if i+1 >= len(token) || token[i+1] != 'x' {
				return "", errors.InvalidFormat(errors.PhaseProtocol, token, "unsupported escape")
			}
			if i+4 > len(token) {
				return "", errors.InvalidFormat(errors.PhaseProtocol, token, "truncated \\x escape")
			}
			n, err := strconv.ParseUint(token[i+2:i+4], 16, 8)
			if err != nil {
				return "", errors.InvalidFormat(errors.PhaseProtocol, token, "malformed \\x escape")
			}
			b.WriteByte(byte(n))
			i += 4
		default:
			b.WriteByte(c)
			i++
		}
	}
	if inQuote {
		return "", errors.InvalidFormat(errors.PhaseProtocol, token, "unterminated quote")
	}
	return b.String(), nil
}
