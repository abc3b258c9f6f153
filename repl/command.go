package repl

import (
	"strings"

	"github.com/wippyai/wasm-repl/errors"
)

type commandKind int

const (
	cmdIgnored commandKind = iota
	cmdVersion
	cmdInit
	cmdSubcommand
)

// command is one parsed input line. Fields are owned copies and never alias
// the line buffer.
type command struct {
	err    error
	name   string // first token, e.g. ":invoke" or ":module"
	module string // target module, empty for the most recent one
	sub    string // subcommand without the leading colon
	arg    string
	kind   commandKind
	hasArg bool
}

// nextToken splits s at the first space after skipping leading spaces.
// rest excludes the separating space.
func nextToken(s string) (tok, rest string) {
	s = strings.TrimLeft(s, " ")
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func parseLine(line string) command {
	line = strings.TrimRight(line, "\r\n")
	name, rest := nextToken(line)
	if name == "" || name[0] != ':' {
		return command{kind: cmdIgnored}
	}
	cmd := command{name: strings.Clone(name)}

	switch name {
	case ":version":
		cmd.kind = cmdVersion
		return cmd
	case ":init":
		cmd.kind = cmdInit
		return cmd
	case ":module":
		cmd.kind = cmdSubcommand
		mod, tail := nextToken(rest)
		sub, tail := nextToken(tail)
		if mod == "" || sub == "" {
			cmd.err = errors.InvalidInput(errors.PhaseProtocol, "usage: :module <name> <subcommand> <args>")
			return cmd
		}
		cmd.module = strings.Clone(mod)
		cmd.sub = strings.Clone(sub)
		rest = tail
	default:
		cmd.kind = cmdSubcommand
		cmd.sub = strings.Clone(name[1:])
	}

	rest = strings.TrimLeft(rest, " ")
	if rest != "" {
		cmd.arg = strings.Clone(rest)
		cmd.hasArg = true
	}
	return cmd
}

// fields splits invoke arguments on spaces.
func fields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ' ' })
}
