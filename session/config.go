package session

import (
	"io"
	"os"

	"github.com/wippyai/wasm-repl/engine"
)

// DefaultCapacity bounds the module and registration tables.
const DefaultCapacity = 500

// Config holds session configuration.
type Config struct {
	// Out receives protocol output: results, traps and stage diagnostics.
	// Defaults to os.Stdout.
	Out io.Writer

	// Engine configures the underlying runtime. Nil uses defaults.
	Engine *engine.Config

	// MaxModules bounds the module table. 0 means DefaultCapacity.
	MaxModules int

	// MaxRegistrations bounds the registration table. 0 means DefaultCapacity.
	MaxRegistrations int

	// DisableWriter makes Save fail as unsupported.
	DisableWriter bool

	// PrintStats logs timing for every invocation.
	PrintStats bool
}

func (c *Config) setDefaults() {
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.MaxModules <= 0 {
		c.MaxModules = DefaultCapacity
	}
	if c.MaxRegistrations <= 0 {
		c.MaxRegistrations = DefaultCapacity
	}
}
