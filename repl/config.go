package repl

import (
	"io"
	"os"
)

// DefaultPrompt is printed as "<prompt>> " before each line.
const DefaultPrompt = "wasm-repl"

// Config holds REPL configuration.
type Config struct {
	// In supplies command lines and load-hex data. Defaults to os.Stdin.
	In io.Reader

	// Out receives protocol output. Defaults to os.Stdout.
	Out io.Writer

	// Err receives reports of unknown subcommands. Defaults to os.Stderr.
	Err io.Writer

	// Prompt defaults to DefaultPrompt.
	Prompt string

	// HidePrompt suppresses the prompt, for readers that print their own.
	HidePrompt bool

	// WASI re-links the WASI host after :init.
	WASI bool

	// Styled renders the :version banner with terminal styling.
	Styled bool
}

func (c *Config) setDefaults() {
	if c.In == nil {
		c.In = os.Stdin
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Err == nil {
		c.Err = os.Stderr
	}
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
}
