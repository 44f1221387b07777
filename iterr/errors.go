// Package iterr defines the iterator's error taxonomy (spec §7): a closed
// set of distinct, typed error kinds rather than string-matched errors.
// Every kind wraps a github.com/pkg/errors-produced error so the usual
// stack-carrying %+v formatting still works, while callers can use
// errors.As to reach the *Error, or Is to test its Kind.
package iterr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies one of the distinct error categories of spec §7.
type Kind int8

const (
	_ Kind = iota
	FlagConflict
	ShapeMismatch
	BroadcastDenied
	AxisMapInvalid
	CastNotPermitted
	AlignmentRequired
	BufferWriteMerge
	SubtypeShapeConflict
	ReadOnlyOperand
	TypeError
	CapabilityMissing
	EmptyIteration
)

func (k Kind) String() string {
	switch k {
	case FlagConflict:
		return "FlagConflict"
	case ShapeMismatch:
		return "ShapeMismatch"
	case BroadcastDenied:
		return "BroadcastDenied"
	case AxisMapInvalid:
		return "AxisMapInvalid"
	case CastNotPermitted:
		return "CastNotPermitted"
	case AlignmentRequired:
		return "AlignmentRequired"
	case BufferWriteMerge:
		return "BufferWriteMerge"
	case SubtypeShapeConflict:
		return "SubtypeShapeConflict"
	case ReadOnlyOperand:
		return "ReadOnlyOperand"
	case TypeError:
		return "TypeError"
	case CapabilityMissing:
		return "CapabilityMissing"
	case EmptyIteration:
		return "EmptyIteration"
	default:
		return "Unknown"
	}
}

// Error is a taxonomy-tagged error: Kind lets a caller errors.As and branch
// on the category; the wrapped cause carries the human-readable detail and
// (via github.com/pkg/errors) a stack trace.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.cause) }

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.cause }

// Format forwards to the wrapped github.com/pkg/errors cause so %+v prints a
// stack trace, matching how the rest of this module formats errors.
func (e *Error) Format(s fmt.State, verb rune) {
	if formatter, ok := e.cause.(fmt.Formatter); ok {
		formatter.Format(s, verb)
		return
	}
	fmt.Fprint(s, e.Error())
}

// New builds a Kind-tagged error with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, cause: errors.Errorf(format, args...)}
}

// Wrap tags an existing error with a Kind, preserving it as the cause.
func Wrap(kind Kind, cause error, format string, args ...any) error {
	return &Error{Kind: kind, cause: errors.Wrapf(cause, format, args...)}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind == kind
	}
	return false
}
