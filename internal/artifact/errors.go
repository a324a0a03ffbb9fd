package artifact

import (
	"errors"
	"fmt"
)

// ErrCodeMalformed identifies parse-time failures of a single declaration.
const ErrCodeMalformed = "MALFORMED_ARTIFACT"

// MalformedArtifactError reports a declaration that could not be parsed.
// It isolates exactly one repository location; the rest of the run proceeds.
type MalformedArtifactError struct {
	Kind     string
	Location string
	Reason   string
	Err      error
}

// Error implements the error interface.
func (e *MalformedArtifactError) Error() string {
	msg := fmt.Sprintf("%s: %s %s", ErrCodeMalformed, e.Kind, e.Location)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying decode error.
func (e *MalformedArtifactError) Unwrap() error {
	return e.Err
}

// Code returns the error category.
func (e *MalformedArtifactError) Code() string {
	return ErrCodeMalformed
}

// NewMalformedError creates a MalformedArtifactError.
func NewMalformedError(kind, location, reason string, err error) *MalformedArtifactError {
	return &MalformedArtifactError{Kind: kind, Location: location, Reason: reason, Err: err}
}

// IsMalformed returns true if err is or wraps a MalformedArtifactError.
func IsMalformed(err error) bool {
	var me *MalformedArtifactError
	return errors.As(err, &me)
}

// AsMalformed converts any parse error into a MalformedArtifactError,
// keeping an existing one as is.
func AsMalformed(kind, location string, err error) *MalformedArtifactError {
	var me *MalformedArtifactError
	if errors.As(err, &me) {
		return me
	}
	return NewMalformedError(kind, location, "", err)
}
