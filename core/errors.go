package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ebogdum/drivefs/backends"
	"github.com/ebogdum/drivefs/internal/pathutil"
)

// ErrKind categorises engine failures so callers can react without
// inspecting backend-specific errors.
type ErrKind int

const (
	KindUnknown         ErrKind = iota
	KindInvalidArgument         // malformed key, empty name, folder where a file is required
	KindNotFound                // source object or prefix does not exist
	KindAlreadyExists           // rename target is taken
	KindForbidden               // key resolved outside the caller's scope
	KindBusy                    // another mutation holds the prefix lock
	KindTimeout                 // context deadline or cancellation
	KindBackend                 // storage protocol failure
	KindPartialFailure          // multi-object operation left some objects unprocessed
)

func (k ErrKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindForbidden:
		return "forbidden"
	case KindBusy:
		return "busy"
	case KindTimeout:
		return "timeout"
	case KindBackend:
		return "backend_error"
	case KindPartialFailure:
		return "partial_failure"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every Engine operation
type Error struct {
	Kind    ErrKind
	Op      string
	Key     string // key relative to the user's scope
	Message string
	Cause   error

	// Result carries the counts of multi-object operations that failed part way
	Result *BatchResult
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Op)
	if e.Key != "" {
		fmt.Fprintf(&b, " %q", e.Key)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrKind, op, key, msg string) *Error {
	return &Error{Kind: kind, Op: op, Key: key, Message: msg}
}

// classify turns a lower-level error into an *Error. Errors that already
// carry a kind pass through unchanged.
func classify(op, key string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	kind := KindBackend
	switch {
	case errors.Is(err, backends.ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = KindTimeout
	case errors.Is(err, pathutil.ErrInvalidPath), errors.Is(err, pathutil.ErrTraversal):
		kind = KindInvalidArgument
	}
	return &Error{Kind: kind, Op: op, Key: key, Cause: err}
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ResultOf returns the BatchResult attached to err, if any
func ResultOf(err error) *BatchResult {
	var e *Error
	if errors.As(err, &e) {
		return e.Result
	}
	return nil
}

// IsInvalidArgument reports whether err was caused by bad input from the caller.
func IsInvalidArgument(err error) bool { return KindOf(err) == KindInvalidArgument }

// IsNotFound reports whether err represents a missing object or prefix.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsAlreadyExists reports whether a rename target was taken.
func IsAlreadyExists(err error) bool { return KindOf(err) == KindAlreadyExists }

// IsForbidden reports whether a key escaped the caller's scope.
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }

// IsBusy reports whether a concurrent mutation holds the lock.
func IsBusy(err error) bool { return KindOf(err) == KindBusy }

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }

// IsBackend reports whether err is a storage failure.
func IsBackend(err error) bool { return KindOf(err) == KindBackend }

// IsPartialFailure reports whether a multi-object operation stopped part way.
func IsPartialFailure(err error) bool { return KindOf(err) == KindPartialFailure }
