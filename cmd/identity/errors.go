package identity

import (
	"errors"
	"fmt"

	"authcore/cmd/internal/auth/autherr"
)

// ErrInvalidInput marks malformed store input.
var ErrInvalidInput = errors.New("invalid_input")

// OpError is a typed operation error with a stable Op + Kind contract for callers/tests.
// Msg may include human-readable context; never secrets.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e OpError) Unwrap() error { return e.Kind }

// ConflictError reports a uniqueness conflict for a logical field
// ("email", "phone_number").
type ConflictError struct {
	Op    string
	Field string
}

func (e ConflictError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Op, autherr.ErrConflict)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, autherr.ErrConflict, e.Field)
}

func (e ConflictError) Unwrap() error { return autherr.ErrConflict }

// NotFoundError reports a missing principal.
type NotFoundError struct {
	Op  string
	Key string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Op, autherr.ErrNotFound)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, autherr.ErrNotFound, e.Key)
}

func (e NotFoundError) Unwrap() error { return autherr.ErrNotFound }

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err represents a missing principal.
func IsNotFound(err error) bool { return errors.Is(err, autherr.ErrNotFound) }

// IsInvalidInput reports whether err represents ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

func invalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}
