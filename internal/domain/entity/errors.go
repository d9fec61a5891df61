package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by adapters and services.
type ErrorKind string

const (
	KindInvalidInput        ErrorKind = "InvalidInput"
	KindUpstreamUnavailable ErrorKind = "UpstreamUnavailable"
	KindUpstreamError       ErrorKind = "UpstreamError"
	KindNotFound            ErrorKind = "NotFound"
)

// Error is an operation failure carrying its kind.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("failed to get %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as an operation failure of the given kind.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// InvalidInput builds a KindInvalidInput error with a formatted message.
func InvalidInput(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Err: fmt.Errorf(format, args...)}
}

// NotFound builds a KindNotFound error with a formatted message.
func NotFound(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first classified error in the chain.
// Unclassified errors are reported as KindUpstreamError.
func KindOf(err error) ErrorKind {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	var explorerErr *ExplorerError
	if errors.As(err, &explorerErr) {
		return explorerErr.Kind()
	}
	return KindUpstreamError
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
