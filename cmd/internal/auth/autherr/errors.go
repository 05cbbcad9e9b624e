// Package autherr is the error taxonomy shared by the auth packages.
//
// Every failure that crosses a package boundary carries one of the sentinel
// kinds below; the HTTP layer maps kinds to status codes and never inspects
// messages.
package autherr

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrClient         = errors.New("client_error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrConflict       = errors.New("conflict")
	ErrInfrastructure = errors.New("infrastructure")
)

// Error is a typed operation error.
// Msg is safe to show to clients; Err is internal detail and is never rendered
// outside development.
type Error struct {
	Op        string
	Kind      error
	Msg       string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %v: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Client builds a ClientError (400).
func Client(op, msg string) error {
	return &Error{Op: op, Kind: ErrClient, Msg: msg}
}

// Unauthorized builds an Unauthorized error (401).
func Unauthorized(op, msg string) error {
	return &Error{Op: op, Kind: ErrUnauthorized, Msg: msg}
}

// NotFound builds a NotFound error (404).
func NotFound(op, msg string) error {
	return &Error{Op: op, Kind: ErrNotFound, Msg: msg}
}

// Conflict builds a Conflict error (409).
func Conflict(op, msg string) error {
	return &Error{Op: op, Kind: ErrConflict, Msg: msg}
}

// Infrastructure wraps a store/transport failure. Deadlines and cancellations
// are marked retryable.
func Infrastructure(op string, err error) error {
	return &Error{
		Op:        op,
		Kind:      ErrInfrastructure,
		Msg:       "service temporarily unavailable",
		Err:       err,
		Retryable: errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled),
	}
}

// Retryable builds an Infrastructure error that callers may retry.
func Retryable(op string, err error) error {
	return &Error{Op: op, Kind: ErrInfrastructure, Msg: "service temporarily unavailable", Err: err, Retryable: true}
}

// KindOf returns the sentinel kind of err, defaulting to ErrInfrastructure for
// errors that carry no kind.
func KindOf(err error) error {
	for _, k := range []error{ErrClient, ErrUnauthorized, ErrNotFound, ErrConflict, ErrInfrastructure} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInfrastructure
}

// Message returns the client-safe message of err, or def.
func Message(err error, def string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return def
}

// IsRetryable reports whether err is an infrastructure error worth retrying.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return errors.Is(err, context.DeadlineExceeded)
}
