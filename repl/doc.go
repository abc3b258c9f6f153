// Package repl reads spec-test commands one line at a time and drives a
// session.Session with them.
//
// Lines look like
//
//	:version
//	:init
//	:load <path>
//	:load-hex <byte-count>
//	:invoke <func> [args...]
//	:register <name>
//	:save <path>
//	:global-get <name>
//	:module <name> <subcommand> <args>
//
// A subcommand without :module targets the most recently loaded module.
// Failures print "Error: command '<cmd>' failed with <code>" and the loop
// continues; only end of input or a guest's voluntary exit stops it.
package repl
