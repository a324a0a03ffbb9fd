package synchronizer

import (
	"errors"
	"fmt"
)

// ErrCodeRunInProgress identifies a run request rejected because another run
// is active.
const ErrCodeRunInProgress = "RUN_IN_PROGRESS"

// RunInProgressError is returned by Runner.Run while another run is active.
// It is not fatal: the caller simply skips or defers the trigger.
type RunInProgressError struct {
	// RunID identifies the active run.
	RunID string
}

// Error implements the error interface.
func (e *RunInProgressError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: synchronization run %s is active", ErrCodeRunInProgress, e.RunID)
	}
	return fmt.Sprintf("%s: a synchronization run is active", ErrCodeRunInProgress)
}

// Code returns the error category.
func (e *RunInProgressError) Code() string {
	return ErrCodeRunInProgress
}

// IsRunInProgress returns true if err is or wraps a RunInProgressError.
func IsRunInProgress(err error) bool {
	var re *RunInProgressError
	return errors.As(err, &re)
}
