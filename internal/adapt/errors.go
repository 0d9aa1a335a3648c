package adapt

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Error kinds for the adapt package.
//
// Every error returned by Adapt, Interpolate and the built-in adapters wraps
// exactly one of these, so callers can branch with errors.Is():
//
//	if errors.Is(err, adapt.ErrAdaptation) {
//	    // register an adapter for the offending type and retry
//	}
var (
	// ErrAdaptation is returned when no adapter is registered for a value's type.
	ErrAdaptation = errors.New("adapt: no adapter for type")

	// ErrEncoding is returned when a value cannot be represented in the
	// client encoding, or its bytes are not valid UTF-8 to begin with.
	ErrEncoding = errors.New("adapt: cannot encode value")

	// ErrValue is returned when a value is structurally invalid for its
	// adapter (NaN under FloatReject, NUL bytes in text, an empty tuple).
	ErrValue = errors.New("adapt: invalid value")

	// ErrRecursion is returned when nesting exceeds the registry's MaxDepth.
	ErrRecursion = errors.New("adapt: nesting too deep")
)

// Error describes a failed adaptation: which kind of failure, where in a
// nested value it happened and the Go type of the offending value.
type Error struct {
	// Kind is one of ErrAdaptation, ErrEncoding, ErrValue or ErrRecursion.
	Kind error

	// Path is the index path from the outermost sequence (or argument list)
	// down to the failing element. Empty for top-level scalars.
	Path []int

	// Type is the Go type of the offending value, as printed by %T.
	Type string

	// Detail is a short human-readable reason.
	Detail string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Type != "" {
		b.WriteString(" ")
		b.WriteString(e.Type)
	}
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		for _, i := range e.Path {
			fmt.Fprintf(&b, "[%d]", i)
		}
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newError(kind error, v any, detail string) *Error {
	return &Error{Kind: kind, Type: typeName(v), Detail: detail}
}

func valueError(v any, format string, args ...any) *Error {
	return newError(ErrValue, v, fmt.Sprintf(format, args...))
}

func encodingError(v any, format string, args ...any) *Error {
	return newError(ErrEncoding, v, fmt.Sprintf(format, args...))
}

// atIndex prefixes the index i to the path of err. Errors that do not come
// from this package (custom adapters, driver.Valuer) are classified as
// ErrValue with the original error kept as Cause.
func atIndex(err error, i int, v any) error {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: ErrValue, Type: typeName(v), Cause: err}
	}
	e.Path = append([]int{i}, e.Path...)
	if e.Type == "" {
		e.Type = typeName(v)
	}
	return e
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
