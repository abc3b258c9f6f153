package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/sys"
)

// TrapID identifies the cause of a trap. The numeric value appears in
// trap reports.
type TrapID uint32

const (
	TrapMisc TrapID = iota
	TrapDivByZero
	TrapIntegerOverflow
	TrapOutOfBoundsMemoryAccess
	TrapOutOfBoundsTableAccess
	TrapCallIndirectOutOfBoundsTableAccess
	TrapCallIndirectNullFuncref
	TrapCallIndirectFunctypeMismatch
	TrapUnreachable
	TrapInvalidConversionToInteger
	TrapVoluntaryExit
	TrapVoluntaryThreadExit
	TrapOutOfBoundsDataAccess
	TrapOutOfBoundsElementAccess
	TrapTooManyFrames
	TrapTooManyStackvals
	TrapUnalignedAtomic
)

// Phrases match the text conformance scripts expect from assert_trap.
var trapPhrases = map[TrapID]string{
	TrapDivByZero:                          "integer divide by zero",
	TrapIntegerOverflow:                    "integer overflow",
	TrapOutOfBoundsMemoryAccess:            "out of bounds memory access",
	TrapOutOfBoundsDataAccess:              "out of bounds memory access",
	TrapOutOfBoundsTableAccess:             "out of bounds table access",
	TrapOutOfBoundsElementAccess:           "out of bounds table access",
	TrapCallIndirectNullFuncref:            "uninitialized element",
	TrapTooManyFrames:                      "stack overflow",
	TrapTooManyStackvals:                   "stack overflow",
	TrapCallIndirectOutOfBoundsTableAccess: "undefined element",
	TrapCallIndirectFunctypeMismatch:       "indirect call type mismatch",
	TrapUnreachable:                        "unreachable executed",
	TrapInvalidConversionToInteger:         "invalid conversion to integer",
}

// Phrase returns the canonical text for id, or "unknown".
func (id TrapID) Phrase() string {
	if p, ok := trapPhrases[id]; ok {
		return p
	}
	return "unknown"
}

// Trap is a classified execution failure.
type Trap struct {
	// Message is the engine's free-form text, possibly empty.
	Message string
	ID      TrapID
	// ExitCode is set for TrapVoluntaryExit.
	ExitCode uint32
}

func (t *Trap) Error() string {
	if t.ID == TrapVoluntaryExit {
		return fmt.Sprintf("voluntary exit (%d)", t.ExitCode)
	}
	if t.Message == "" {
		return "trap: " + t.ID.Phrase()
	}
	return fmt.Sprintf("trap: %s: %s", t.ID.Phrase(), t.Message)
}

// Exit reports whether the trap is a deliberate exit request.
func (t *Trap) Exit() bool {
	return t.ID == TrapVoluntaryExit
}

// Report renders the trap line printed to the protocol stream.
func (t *Trap) Report() string {
	msg := t.Message
	if msg == "" {
		msg = "no message"
	}
	return fmt.Sprintf("Error: [trap] %s (%d): %s", t.ID.Phrase(), uint32(t.ID), msg)
}

const (
	wasmErrorPrefix = "wasm error: "
	recoveredSuffix = " (recovered by wazero)"
)

// wazero runtime error texts, matched as prefixes of the message.
var wazeroTraps = []struct {
	text string
	id   TrapID
}{
	{"integer divide by zero", TrapDivByZero},
	{"integer overflow", TrapIntegerOverflow},
	{"out of bounds memory access", TrapOutOfBoundsMemoryAccess},
	// wazero reports call_indirect on an out-of-range index and on a null
	// entry with this same text, so neither "undefined element" nor
	// "uninitialized element" is produced.
	{"invalid table access", TrapOutOfBoundsTableAccess},
	{"indirect call type mismatch", TrapCallIndirectFunctypeMismatch},
	{"unreachable", TrapUnreachable},
	{"invalid conversion to integer", TrapInvalidConversionToInteger},
	{"stack overflow", TrapTooManyFrames},
	{"unaligned atomic", TrapUnalignedAtomic},
}

// FromError classifies err as a trap. It returns false for errors that did
// not come from guest execution, such as link failures.
func FromError(err error) (*Trap, bool) {
	if err == nil {
		return nil, false
	}
	var t *Trap
	if errors.As(err, &t) {
		return t, true
	}
	var exit *sys.ExitError
	if errors.As(err, &exit) {
		return &Trap{ID: TrapVoluntaryExit, ExitCode: exit.ExitCode(), Message: exit.Error()}, true
	}

	text := err.Error()
	if i := strings.Index(text, wasmErrorPrefix); i >= 0 {
		msg := firstLine(text[i+len(wasmErrorPrefix):])
		trap := &Trap{ID: TrapMisc, Message: msg}
		for _, w := range wazeroTraps {
			if strings.HasPrefix(msg, w.text) {
				trap.ID = w.id
				break
			}
		}
		return trap, true
	}

	// panics raised by host functions
	if line := firstLine(text); strings.HasSuffix(line, recoveredSuffix) {
		return &Trap{ID: TrapMisc, Message: strings.TrimSuffix(line, recoveredSuffix)}, true
	}
	return nil, false
}

// ExitCode returns the exit code carried by a voluntary exit trap in err.
func ExitCode(err error) (uint32, bool) {
	t, ok := FromError(err)
	if !ok || !t.Exit() {
		return 0, false
	}
	return t.ExitCode, true
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
