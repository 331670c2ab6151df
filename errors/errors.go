package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the capture pipeline the error occurred
type Phase string

const (
	PhaseAttach  Phase = "attach"  // capability negotiation, option parsing
	PhaseSession Phase = "session" // output sink lifecycle
	PhaseResolve Phase = "resolve" // host runtime metadata queries
	PhaseEncode  Phase = "encode"  // record serialization
)

// Kind categorizes the error
type Kind string

const (
	KindIO       Kind = "io"       // output sink open/write/flush failure
	KindOverflow Kind = "overflow" // value outside the serializable range
	KindMetadata Kind = "metadata" // unexpected host runtime query failure
	KindClock    Kind = "clock"    // timestamp source failure
	KindUsage    Kind = "usage"    // malformed attach options
)

// Error is the structured error type used throughout the capture agent
type Error struct {
	Phase  Phase
	Kind   Kind
	Detail string
	Cause  error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

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

// Convenience constructors for common error patterns

// IO creates an output-sink failure error
func IO(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		Detail: detail,
		Cause:  cause,
	}
}

// Overflow creates an error for a value outside the serializable range
func Overflow(phase Phase, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: detail,
	}
}

// Metadata creates an error for a host runtime query that failed for a
// reason other than the expected shutdown condition
func Metadata(query string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindMetadata,
		Detail: query,
		Cause:  cause,
	}
}

// Clock creates a timestamp source failure error
func Clock(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseSession,
		Kind:   KindClock,
		Detail: detail,
		Cause:  cause,
	}
}

// Usage creates an attach-option error
func Usage(detail string) *Error {
	return &Error{
		Phase:  PhaseAttach,
		Kind:   KindUsage,
		Detail: detail,
	}
}

// Wrap wraps an existing error with phase and kind context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
