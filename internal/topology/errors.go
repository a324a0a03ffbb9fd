package topology

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCodeDependencyStall identifies a batch that could not be fully depleted.
const ErrCodeDependencyStall = "DEPENDENCY_STALL"

// DependencyStallError reports the wrappers left when no remaining wrapper
// could be processed: members of a dependency cycle, or dependents of a failed
// or blocked artifact. It terminates one batch only.
type DependencyStallError struct {
	Kind      string
	Flow      Flow
	Locations []string
}

// Error implements the error interface.
func (e *DependencyStallError) Error() string {
	prefix := ErrCodeDependencyStall
	if e.Kind != "" {
		prefix += ": " + e.Kind
	}
	return fmt.Sprintf("%s %s flow stalled on %d artifact(s): %s",
		prefix, e.Flow, len(e.Locations), strings.Join(e.Locations, ", "))
}

// Code returns the error category.
func (e *DependencyStallError) Code() string {
	return ErrCodeDependencyStall
}

// IsStallError returns true if err is or wraps a DependencyStallError.
func IsStallError(err error) bool {
	var se *DependencyStallError
	return errors.As(err, &se)
}
