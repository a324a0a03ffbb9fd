package store

import (
	"errors"
	"fmt"
)

// ErrCodePersistence identifies backing-store failures for one artifact.
const ErrCodePersistence = "PERSISTENCE"

// PersistenceError wraps a backing-store failure for one artifact operation.
type PersistenceError struct {
	// Op is the store operation: save, delete, find, set_state.
	Op       string
	Kind     string
	Location string
	Err      error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s: %s %s:%s: %v", ErrCodePersistence, e.Op, e.Kind, e.Location, e.Err)
	}
	if e.Kind != "" {
		return fmt.Sprintf("%s: %s %s: %v", ErrCodePersistence, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrCodePersistence, e.Op, e.Err)
}

// Unwrap returns the underlying database error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Code returns the error category.
func (e *PersistenceError) Code() string {
	return ErrCodePersistence
}

// IsPersistenceError returns true if err is or wraps a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func persistenceErr(op, kind, location string, err error) error {
	return &PersistenceError{Op: op, Kind: kind, Location: location, Err: err}
}
