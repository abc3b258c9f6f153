package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in command processing the error occurred
type Phase string

const (
	PhaseProtocol    Phase = "protocol"    // command line / argument handling
	PhaseDecode      Phase = "decode"      // binary module decoding
	PhaseValidate    Phase = "validate"    // module validation
	PhaseLink        Phase = "link"        // import resolution
	PhaseInstantiate Phase = "instantiate" // module instantiation
	PhaseInvoke      Phase = "invoke"      // function invocation
	PhaseHost        Phase = "host"        // host (WASI) provider setup
	PhaseIO          Phase = "io"          // file and stdin access
	PhaseRuntime     Phase = "runtime"     // session bookkeeping
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidFormat  Kind = "invalid_format"
	KindInvalidData    Kind = "invalid_data"
	KindTypeMismatch   Kind = "type_mismatch"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindOverflow       Kind = "overflow"
	KindUnsupported    Kind = "unsupported"
	KindAllocation     Kind = "allocation"
	KindIO             Kind = "io"
	KindMissingImport  Kind = "missing_import"
	KindInstantiation  Kind = "instantiation"
	KindAlreadyLinked  Kind = "already_linked"
	KindTrap           Kind = "trap"
	KindLeak           Kind = "resource_leak"
)

// Code is an errno-style status reported by the command loop.
type Code int

// Values follow Linux errno numbering so the text protocol matches what
// conformance drivers already expect.
const (
	ENOENT    Code = 2
	EIO       Code = 5
	ENOMEM    Code = 12
	EFAULT    Code = 14
	EBUSY     Code = 16
	EINVAL    Code = 22
	EPROTO    Code = 71
	EOVERFLOW Code = 75
	ENOTSUP   Code = 95
)

var kindCodes = map[Kind]Code{
	KindInvalidInput:   EPROTO,
	KindInvalidFormat:  EINVAL,
	KindInvalidData:    EINVAL,
	KindTypeMismatch:   EINVAL,
	KindNotFound:       ENOENT,
	KindNotInitialized: EPROTO,
	KindOverflow:       EOVERFLOW,
	KindUnsupported:    ENOTSUP,
	KindAllocation:     ENOMEM,
	KindIO:             EIO,
	KindMissingImport:  ENOENT,
	KindInstantiation:  EINVAL,
	KindAlreadyLinked:  EPROTO,
	KindTrap:           EFAULT,
	KindLeak:           EBUSY,
}

// Error is the structured error type used throughout the session engine
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Code returns the errno-style status for the error's kind.
func (e *Error) Code() Code {
	if c, ok := kindCodes[e.Kind]; ok {
		return c
	}
	return EIO
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the subject path, e.g. module name then export name
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// CodeOf extracts the status code carried by err.
// Errors that did not originate here report EIO.
func CodeOf(err error) Code {
	if err == nil {
		return 0
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code()
	}
	return EIO
}

// IsKind reports whether any error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// Convenience constructors for common error patterns

// InvalidInput creates a protocol error for a malformed or incomplete command
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidFormat creates a format error for text that does not parse
func InvalidFormat(phase Phase, text string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidFormat,
		Detail: fmt.Sprintf("%q: %s", text, detail),
		Value:  text,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// NotInitialized creates a not-initialized error for missing module/instance
func NotInitialized(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("no %s loaded", what),
	}
}

// Overflow creates a capacity error for a bounded table
func Overflow(phase Phase, table string, capacity int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("%s table full (capacity %d)", table, capacity),
		Value:  capacity,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// IO wraps a file or stream failure
func IO(phase Phase, what string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		Detail: what,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingImport creates an unresolved import error
func MissingImport(module, name string) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindMissingImport,
		Path:   []string{module, name},
		Detail: fmt.Sprintf("unknown import %q %q", module, name),
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}
