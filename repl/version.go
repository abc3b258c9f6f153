package repl

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-repl/engine"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// versionInfo lists key/value pairs describing the build and engine.
func versionInfo(eng *engine.Engine) [][2]string {
	backend := "compiler"
	if eng.Interpreter() {
		backend = "interpreter"
	}
	return [][2]string{
		{"wazero", engine.Version()},
		{"go", runtime.Version()},
		{"platform", runtime.GOOS + "/" + runtime.GOARCH},
		{"pointer size", strconv.Itoa(strconv.IntSize / 8)},
		{"backend", backend},
		{"features", eng.Features().String()},
	}
}

func (r *REPL) printVersion() {
	title := "wasm-repl spec-test interpreter"
	if r.cfg.Styled {
		title = titleStyle.Render(title)
	}
	fmt.Fprintln(r.cfg.Out, title)
	for _, kv := range versionInfo(r.sess.Engine()) {
		key := kv[0]
		if r.cfg.Styled {
			key = keyStyle.Render(key)
		}
		fmt.Fprintf(r.cfg.Out, "%s = %s\n", key, kv[1])
	}
}
