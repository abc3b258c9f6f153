// Package engine wraps the wazero runtime for a single REPL session.
//
// It exposes the three engine stages the session drives (Compile for
// validation, Instantiate for linking and start execution, and function
// calls through the returned api.Module) plus the WASI preview1 host
// module. Every instance is given a private name from NextName so that
// several modules can be registered under the same public name; the
// session rewrites import sections to point at those private names.
//
// Errors coming back from wazero are classified by FromError into Trap
// values carrying a numeric TrapID, the free-form engine message and, for
// proc_exit, the guest's exit code.
package engine
