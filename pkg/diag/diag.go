// Package diag defines the translation error taxonomy shared by the
// type conversion and operator translation engines.
package diag

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a translation failure
type Kind int

const (
	// Unsupported is a type or operator with no target mapping.
	Unsupported Kind = iota
	// ContextViolation is an operation the current expression context forbids,
	// such as wrapping arithmetic inside a constant expression.
	ContextViolation
	// InvariantViolation indicates a driver or ordering bug.
	InvariantViolation
	// NameCollision is a second declaration of an already named id.
	NameCollision
)

func (k Kind) String() string {
	names := []string{"unsupported", "context violation", "invariant violation", "name collision"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// Fatal reports whether errors of this kind abort the whole run.
func (k Kind) Fatal() bool {
	return k == InvariantViolation || k == NameCollision
}

// Loc is a source position in the translated C program
type Loc struct {
	File   string
	Line   int
	Column int
}

func (l Loc) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Error is a translation error. Loc is nil when the failing construct
// has no known source position.
type Error struct {
	Kind  Kind
	Loc   *Loc
	Msg   string
	cause error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Msg
	if e.Loc != nil {
		msg = e.Loc.String() + ": " + msg
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Newf creates an error of the given kind with a stack trace attached.
func Newf(kind Kind, format string, args ...any) error {
	return errors.WithStack(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// Unsupportedf reports a construct with no target mapping.
func Unsupportedf(format string, args ...any) error {
	return Newf(Unsupported, format, args...)
}

// ContextViolationf reports an operation forbidden by the expression context.
func ContextViolationf(format string, args ...any) error {
	return Newf(ContextViolation, format, args...)
}

// Invariantf reports a broken driver invariant.
func Invariantf(format string, args ...any) error {
	return Newf(InvariantViolation, format, args...)
}

// Wrap classifies an arbitrary error under kind.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{Kind: kind, Msg: msg, cause: err})
}

// At attaches loc to err if the underlying *Error has no location yet.
func At(err error, loc *Loc) error {
	if err == nil || loc == nil {
		return err
	}
	var de *Error
	if errors.As(err, &de) && de.Loc == nil {
		l := *loc
		de.Loc = &l
		return err
	}
	return err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// IsFatal reports whether err must abort the translation run. Errors that
// are not *Error values are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	kind, ok := KindOf(err)
	return !ok || kind.Fatal()
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
