package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not allowed")
	ErrValidation   = errors.New("validation failed")
	// ErrStoreFailure marks a persistence error the caller may retry.
	ErrStoreFailure = errors.New("store failure")
	// ErrConflict is returned when a uniqueness constraint rejects a write.
	ErrConflict = errors.New("conflict")
)

func failure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreFailure, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// errHasChildren mirrors the foreign key violation Postgres reports when a
// parent row is removed before its replies.
var errHasChildren = errors.New("comment still has replies")
