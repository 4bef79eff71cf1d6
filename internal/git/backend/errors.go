package backend

import (
	"errors"
	"fmt"
)

// ErrUnavailable classifies failures of the version control backend (I/O
// errors, corrupt or missing objects, a failing git executable). It is never
// used for lookups that simply find nothing.
var ErrUnavailable = errors.New("version control backend unavailable")

// Error wraps a backend failure with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrUnavailable
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Op: op, Err: err}
}
