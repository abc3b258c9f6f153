// Package session implements the state behind the spec-test REPL.
//
// A Session owns a bounded table of loaded modules, the registration names
// bound with Register, and an ordered chain of import providers searched
// most-recent-first. Loading a module runs three stages, each reported
// with its own diagnostic line on failure:
//
//	load error           the binary could not be decoded
//	validation error     the engine rejected the module
//	instantiation error  an import is unresolved or linking failed
//
// Reset releases everything exactly once and verifies the acquisition
// ledger, returning the session to its freshly created state.
package session
