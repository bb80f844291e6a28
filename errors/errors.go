package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which layer of the bridge produced the error
type Phase string

const (
	PhaseLayout   Phase = "layout"   // boundary layout computation
	PhaseDispatch Phase = "dispatch" // vtable dispatch and closures
	PhasePoll     Phase = "poll"     // future polling
	PhaseExecutor Phase = "executor" // executor bridge
	PhaseBoundary Phase = "boundary" // plain memory access
	PhaseHost     Phase = "host"     // host function binding
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfBounds    Kind = "out_of_bounds"
	KindAllocation     Kind = "allocation"
	KindInvalidData    Kind = "invalid_data"
	KindUnsupported    Kind = "unsupported"
	KindNilPointer     Kind = "nil_pointer"
	KindInvalidEnum    Kind = "invalid_enum"
	KindNotFound       Kind = "not_found"
	KindInvalidInput   Kind = "invalid_input"
	KindRegistration   Kind = "registration"
	KindInstantiation  Kind = "instantiation"
	KindCanceled       Kind = "canceled"
	KindPanicked       Kind = "panicked"
	KindClosed         Kind = "closed"
	KindIncomplete     Kind = "incomplete"
	KindOverflow       Kind = "overflow"
	KindNotInitialized Kind = "not_initialized"
)

// Error is the structured error type used across the runtime
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string // boundary type, e.g. "ArcFn1[int32,bool]" or "struct point"
	Slot   string // vtable slot or exported symbol
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

	hasSubject := e.Type != "" || e.Slot != ""
	if hasSubject {
		b.WriteString(": ")
		switch {
		case e.Type != "" && e.Slot != "":
			b.WriteString(e.Type)
			b.WriteString("::")
			b.WriteString(e.Slot)
		case e.Type != "":
			b.WriteString(e.Type)
		default:
			b.WriteString(e.Slot)
		}
	}

	if e.Detail != "" {
		if hasSubject {
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

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// Two errors match when phase and kind are equal; a target with an empty
// phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
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

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Type sets the boundary type name
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Slot sets the vtable slot or symbol name
func (b *Builder) Slot(s string) *Builder {
	b.err.Slot = s
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

// Kind-only targets for errors.Is, matching in any phase.
var (
	ErrCanceled   = &Error{Kind: KindCanceled}
	ErrPanicked   = &Error{Kind: KindPanicked}
	ErrClosed     = &Error{Kind: KindClosed}
	ErrIncomplete = &Error{Kind: KindIncomplete}
)

// Convenience constructors for common error patterns

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// OutOfBounds creates a memory bounds error
func OutOfBounds(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("offset %d length %d out of bounds", offset, length),
		Value:  offset,
	}
}

// NilPointer creates a null pointer error for a boundary type
func NilPointer(phase Phase, typeName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Type:   typeName,
		Detail: "null pointer",
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

// InvalidEnum creates an invalid discriminant error
func InvalidEnum(phase Phase, value any, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEnum,
		Type:   enumType,
		Detail: fmt.Sprintf("invalid discriminant %v", value),
		Value:  value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Type:   target,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
		Value:  value,
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

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
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

// Registration creates a host registration error
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Slot:   namespace + "#" + name,
		Detail: "register host function",
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// Panicked converts a recovered panic value into an error.
// Producer panics must never unwind across the bridge; executors recover
// them and complete the task with this error instead.
func Panicked(phase Phase, slot string, recovered any) *Error {
	e := &Error{
		Phase:  phase,
		Kind:   KindPanicked,
		Slot:   slot,
		Detail: fmt.Sprintf("panic: %v", recovered),
		Value:  recovered,
	}
	if err, ok := recovered.(error); ok {
		e.Cause = err
	}
	return e
}

// Canceled creates a cancellation error
func Canceled(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCanceled,
		Detail: detail,
	}
}

// Closed creates an error for operations on a closed component
func Closed(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", component),
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
