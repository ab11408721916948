// Package errors augments the standard errors
// with a Wrap() method, so that sentinel errors may carry context
// about the operation that failed without resorting
// to fmt.Errorf("%w", err).
package errors

import (
	stderr "errors"
	"fmt"
)

var _ error = New("")

// New builds a new Error from a message
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Error augments the standard error interface with a Wrap method.
//
// Unlike github.com/pkg/errors, wrapping composes errors from errors,
// not from text.
type Error struct {
	msg string
	err error
}

// Error message, including the wrapped error if any
func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap a nested error.
//
// The receiver is cloned so that package-level sentinel errors
// remain untouched by wrapping.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err}
}

// WrapMessage wraps a contextual message, e.g. the dataset or file
// the operation was acting upon, formatted in fmt.Sprintf style.
func (e *Error) WrapMessage(format string, args ...interface{}) *Error {
	return e.Wrap(stderr.New(fmt.Sprintf(format, args...)))
}

// Is reports whether this error matches target
func (e *Error) Is(target error) bool {
	if o, ok := target.(*Error); ok {
		return e == o || e.msg == o.msg
	}
	return false
}

// As finds the first error in err's chain that matches target
// (a shortcut to the standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to the standard lib errors.Is)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
