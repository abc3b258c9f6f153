package engine

import (
	"fmt"
	"io"
	"strings"
)

// Config holds configuration for engine creation
type Config struct {
	// Stdout and Stderr receive guest output written through WASI.
	// Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// Args is the WASI argv seen by guests, program name first.
	Args []string

	// Env holds KEY=VALUE pairs visible to guests through WASI.
	Env []string

	// Dirs are host directories preopened for guests. An entry of the form
	// "host:guest" mounts host at guest; otherwise the path serves as both.
	Dirs []string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// Interpreter selects wazero's interpreter instead of the compiler.
	Interpreter bool

	// EnableThreads enables the WebAssembly threads proposal (experimental).
	EnableThreads bool
}

func (c *Config) validate() error {
	for _, kv := range c.Env {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			return fmt.Errorf("invalid environment entry %q: want KEY=VALUE", kv)
		}
	}
	for _, d := range c.Dirs {
		if host, _ := splitMount(d); host == "" {
			return fmt.Errorf("invalid directory mount %q", d)
		}
	}
	return nil
}

// splitMount splits a "host:guest" preopen entry.
func splitMount(entry string) (host, guest string) {
	host, guest, ok := strings.Cut(entry, ":")
	if !ok || guest == "" {
		return host, host
	}
	return host, guest
}
