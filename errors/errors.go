package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse       Phase = "parse"       // binary decoding
	PhaseValidate    Phase = "validate"    // module validation
	PhaseModule      Phase = "module"      // module handle operations
	PhaseInstantiate Phase = "instantiate" // module instantiation
	PhaseExecute     Phase = "execute"     // function execution
	PhaseMemory      Phase = "memory"      // linear memory access
	PhaseConfig      Phase = "config"      // configuration loading
	PhaseLoad        Phase = "load"        // reading module files
)

// Kind categorizes the error
type Kind string

// Engine-reported kinds, decoded from the engine error record.
const (
	KindMalformedModule        Kind = "malformed_module"
	KindInvalidModule          Kind = "invalid_module"
	KindInstantiationFailed    Kind = "instantiation_failed"
	KindMemoryAllocationFailed Kind = "memory_allocation_failed"
	KindOther                  Kind = "other"
	KindUnknown                Kind = "unknown"
)

// Kinds detected by the wrapper itself.
const (
	KindFunctionNotFound          Kind = "function_not_found"
	KindArgumentCountMismatch     Kind = "argument_count_mismatch"
	KindArgumentTypeMismatch      Kind = "argument_type_mismatch"
	KindNoMemoryAvailable         Kind = "no_memory_available"
	KindInvalidMemoryOffsetOrSize Kind = "invalid_memory_offset_or_size"
	KindTrapped                   Kind = "trapped"
	KindReleased                  Kind = "released"
	KindInvalidInput              Kind = "invalid_input"
)

// Sentinels for errors.Is checks that only care about the kind.
var (
	ErrMalformedModule           = &Error{Kind: KindMalformedModule}
	ErrInvalidModule             = &Error{Kind: KindInvalidModule}
	ErrInstantiationFailed       = &Error{Kind: KindInstantiationFailed}
	ErrMemoryAllocationFailed    = &Error{Kind: KindMemoryAllocationFailed}
	ErrOther                     = &Error{Kind: KindOther}
	ErrUnknown                   = &Error{Kind: KindUnknown}
	ErrFunctionNotFound          = &Error{Kind: KindFunctionNotFound}
	ErrArgumentCountMismatch     = &Error{Kind: KindArgumentCountMismatch}
	ErrArgumentTypeMismatch      = &Error{Kind: KindArgumentTypeMismatch}
	ErrNoMemoryAvailable         = &Error{Kind: KindNoMemoryAvailable}
	ErrInvalidMemoryOffsetOrSize = &Error{Kind: KindInvalidMemoryOffsetOrSize}
	ErrTrapped                   = &Error{Kind: KindTrapped}
	ErrReleased                  = &Error{Kind: KindReleased}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Func     string
	Expected string
	Actual   string
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Func != "" {
		b.WriteString(" at ")
		b.WriteString(e.Func)
	}

	if e.Expected != "" || e.Actual != "" {
		b.WriteString(": expected ")
		b.WriteString(orNone(e.Expected))
		b.WriteString(", got ")
		b.WriteString(orNone(e.Actual))
	}

	if e.Detail != "" {
		if e.Expected != "" || e.Actual != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches any phase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Phase == "" || e.Phase == t.Phase
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return stderrors.Is(err, &Error{Kind: kind})
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

// Func sets the function name the error refers to
func (b *Builder) Func(name string) *Builder {
	b.err.Func = name
	return b
}

// Expected sets the expected type or value description
func (b *Builder) Expected(s string) *Builder {
	b.err.Expected = s
	return b
}

// Actual sets the actual type or value description
func (b *Builder) Actual(s string) *Builder {
	b.err.Actual = s
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

// Convenience constructors for common error patterns

// Engine creates an error decoded from an engine error record
func Engine(phase Phase, kind Kind, message string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: message,
	}
}

// UnknownCode creates the fallback error for an error code outside the known set
func UnknownCode(phase Phase, code uint32, message string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknown,
		Detail: fmt.Sprintf("unrecognized engine error code %d: %s", code, message),
		Value:  code,
	}
}

// FunctionNotFound creates a missing export error
func FunctionNotFound(name string) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindFunctionNotFound,
		Func:   name,
		Detail: fmt.Sprintf("no exported function named %q", name),
	}
}

// ArgumentCountMismatch creates an arity error
func ArgumentCountMismatch(name string, want, got int) *Error {
	return &Error{
		Phase:    PhaseExecute,
		Kind:     KindArgumentCountMismatch,
		Func:     name,
		Expected: fmt.Sprintf("%d arguments", want),
		Actual:   fmt.Sprintf("%d arguments", got),
		Value:    got,
	}
}

// ArgumentTypeMismatch creates a per-position type error
func ArgumentTypeMismatch(name string, position int, want, got string) *Error {
	return &Error{
		Phase:    PhaseExecute,
		Kind:     KindArgumentTypeMismatch,
		Func:     name,
		Expected: want,
		Actual:   got,
		Detail:   fmt.Sprintf("argument %d", position),
		Value:    position,
	}
}

// Trapped creates an execution trap error
func Trapped(name string) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindTrapped,
		Func:   name,
		Detail: "execution trapped",
	}
}

// NoMemoryAvailable creates an error for an instance without linear memory
func NoMemoryAvailable() *Error {
	return &Error{
		Phase:  PhaseMemory,
		Kind:   KindNoMemoryAvailable,
		Detail: "instance has no linear memory",
	}
}

// InvalidMemoryOffsetOrSize creates a memory range error
func InvalidMemoryOffsetOrSize(offset uint32, length, size uint64) *Error {
	return &Error{
		Phase:  PhaseMemory,
		Kind:   KindInvalidMemoryOffsetOrSize,
		Detail: fmt.Sprintf("range [%d, %d+%d) outside memory of %d bytes", offset, offset, length, size),
		Value:  offset,
	}
}

// Released creates a use-after-release error
func Released(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReleased,
		Detail: fmt.Sprintf("%s already released or consumed", what),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
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

// MissingImport represents a single unresolved import
type MissingImport struct {
	Module string // e.g., "env"
	Name   string // e.g., "memory"
	Kind   string // function, table, memory or global
}

// MissingImportsError is attached to instantiation failures of modules that declare imports.
// Host imports are never provided, so every declared import is listed.
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error listing the given imports
func NewMissingImportsError(imports ...MissingImport) *MissingImportsError {
	return &MissingImportsError{Imports: imports}
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[instantiate] missing_import: no imports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d import(s):\n", len(e.Imports)))

	// Group by module for cleaner output
	byModule := make(map[string][]MissingImport)
	var order []string
	for _, imp := range e.Imports {
		if _, exists := byModule[imp.Module]; !exists {
			order = append(order, imp.Module)
		}
		byModule[imp.Module] = append(byModule[imp.Module], imp)
	}

	for _, mod := range order {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, imp := range byModule[mod] {
			b.WriteString("    - ")
			b.WriteString(imp.Name)
			if imp.Kind != "" {
				b.WriteString(" (")
				b.WriteString(imp.Kind)
				b.WriteByte(')')
			}
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	_, ok := target.(*MissingImportsError)
	return ok
}
