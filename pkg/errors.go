package dupelink

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so they can be reported and counted
type ErrorKind string

// Error kinds
const (
	ErrTraversal       ErrorKind = "TraversalError"   // entry inaccessible while walking
	ErrHashUnavailable ErrorKind = "HashUnavailable"  // digest algorithm missing
	ErrRead            ErrorKind = "ReadError"        // stream read failure while hashing
	ErrReplacement     ErrorKind = "ReplacementError" // delete/symlink failure
	ErrRootInvalid     ErrorKind = "RootInvalid"      // scan root missing or inaccessible
	ErrConfig          ErrorKind = "ConfigError"      // configuration cannot be loaded or is invalid
)

// Error is a failure tied to a path and an error kind
type Error struct {
	Kind ErrorKind
	Path string
	Op   string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, KindError(ErrRead)) works
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind && t.Path == "" && t.Op == "" && t.Err == nil
	}
	return false
}

// Message returns the cause without the kind and path prefix
func (e *Error) Message() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Op
	}
}

// KindError returns a bare sentinel for errors.Is comparisons
func KindError(kind ErrorKind) error {
	return &Error{Kind: kind}
}

// newError wraps err with a kind, a path and a short description of the operation
func newError(kind ErrorKind, path, op string, err error) *Error {
	return &Error{Kind: kind, Path: path, Op: op, Err: err}
}

// newErrorf builds an Error whose cause is a formatted message
func newErrorf(kind ErrorKind, path, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or the empty kind if err is not an *Error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
