package session

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/wippyai/wasm-repl/engine"
	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/value"
)

// Load stages as printed in diagnostics.
const (
	stageLoad        = "load error"
	stageValidation  = "validation error"
	stageInstantiate = "instantiation error"
)

// printer writes protocol lines.
type printer struct {
	w io.Writer
}

func (p printer) result(vals []value.Value) {
	fmt.Fprintf(p.w, "Result: %s\n", value.Render(vals))
}

func (p printer) trap(t *engine.Trap) {
	fmt.Fprintln(p.w, t.Report())
}

// stage prints "<stage>: <message>", using "no message" when err has no text.
func (p printer) stage(stage string, err error) {
	fmt.Fprintf(p.w, "%s: %s\n", stage, diagnostic(err))
}

// diagnostic extracts the human-facing text of err. Structured errors
// contribute their detail only.
func diagnostic(err error) string {
	if err == nil {
		return "no message"
	}
	msg := err.Error()
	var e *errors.Error
	if stderrors.As(err, &e) && e.Detail != "" {
		msg = e.Detail
	}
	if msg == "" {
		return "no message"
	}
	return msg
}
