package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is reported when the user refuses location or
	// notification permission.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrReference is returned when an image is attached to a point that does
	// not exist (or no longer exists).
	ErrReference = errors.New("referenced point does not exist")

	ErrPointNotFound = errors.New("point not found")
	ErrImageNotFound = errors.New("image not found")

	// ErrValidation marks caller input that was rejected before touching
	// storage. It is always wrapped with the offending detail.
	ErrValidation = errors.New("invalid input")
)

// StorageError wraps an I/O failure in the point store. The operation was
// aborted and nothing was written.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorage reports whether err carries a *StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// SinkError wraps a failure to raise or cancel a notification.
type SinkError struct {
	Op     string
	Handle string
	Err    error
}

func (e *SinkError) Error() string {
	if e.Handle == "" {
		return fmt.Sprintf("notification %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("notification %s %s failed: %v", e.Op, e.Handle, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
