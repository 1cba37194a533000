// Package organizer relocates and renames newly created files.
package organizer

import (
	"errors"
	"fmt"
)

// ProcessErrorType represents the type of processor error.
type ProcessErrorType string

const (
	// IoFailure indicates a filesystem operation failed: a directory could not
	// be read, or the rename itself was refused (cross-device, permission).
	IoFailure ProcessErrorType = "IO_FAILURE"
	// PreconditionViolation indicates the input cannot be handled, such as a
	// colliding filename that has no extension to keep.
	PreconditionViolation ProcessErrorType = "PRECONDITION_VIOLATION"
)

// ErrNoExtension is returned by the timestamp namer for filenames without an extension.
var ErrNoExtension = errors.New("filename has no extension")

// ProcessError represents a failure of a single processor invocation.
// A path that vanished before the processor got to it is not an error.
type ProcessError struct {
	Type      ProcessErrorType
	Processor string
	Path      string
	Err       error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %s (%v)", e.Type, e.Processor, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s %s", e.Type, e.Processor, e.Path)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
