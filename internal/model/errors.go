package model

import (
	"errors"
	"fmt"
)

// Domain errors. These are part of the domain language; the transport layer
// maps them to caller-facing status codes.
var (
	ErrDuplicateEmail = errors.New("email already exists")
	ErrNotFound       = errors.New("account not found")
	ErrInvalidValue   = errors.New("value is not a valid role or status")
)

// StorageError wraps a failure reported by the account store. It is not
// disambiguated further; callers treat it as an internal failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("account store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
