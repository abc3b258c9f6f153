package repl

import (
	"bufio"
	"encoding/hex"
	stderrors "errors"
	"io"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-repl/errors"
)

// hexChunk caps the up-front allocation for announced module sizes.
const hexChunk = 64 << 10

// parseByteCount accepts a strict decimal count.
func parseByteCount(s string) (int, error) {
	s = strings.TrimRight(s, " ")
	if s == "" || s[0] < '0' || s[0] > '9' {
		return 0, errors.InvalidInput(errors.PhaseProtocol, "byte count must be decimal")
	}
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, errors.InvalidInput(errors.PhaseProtocol, "byte count must be decimal")
	}
	return int(n), nil
}

// readHex reads n bytes encoded as 2n hex digits followed by a newline.
func readHex(br *bufio.Reader, n int) ([]byte, error) {
	buf := make([]byte, 0, min(n, hexChunk))
	var pair, b [2]byte
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(br, pair[:]); err != nil {
			return nil, errors.IO(errors.PhaseIO, "read module bytes", err)
		}
		if _, err := hex.Decode(b[:1], pair[:]); err != nil {
			return nil, errors.InvalidFormat(errors.PhaseProtocol, string(pair[:]), "malformed hex byte")
		}
		buf = append(buf, b[0])
	}
	c, err := br.ReadByte()
	if err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.IO(errors.PhaseIO, "read module bytes", err)
	}
	if err != nil || c != '\n' {
		return nil, errors.InvalidInput(errors.PhaseProtocol, "missing newline after module bytes")
	}
	return buf, nil
}
