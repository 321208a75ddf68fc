package repository

import (
	"errors"
	"fmt"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("item not found")
)

// ConnectionError reports that the store handle could not be built or that a
// request never produced a response (refused, DNS, timeout, cancellation).
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: store unavailable: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// StoreError is a non-success answer from the store other than "not found".
type StoreError struct {
	Op     string
	Status int
	Type   string
	Reason string
}

func (e *StoreError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: store returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: store returned status %d: %s: %s", e.Op, e.Status, e.Type, e.Reason)
}

// SerializationError means a document could not be mapped to or from the
// Item shape.
type SerializationError struct {
	Op  string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s: serialization: %v", e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// IsConnection reports whether err is, or wraps, a *ConnectionError.
func IsConnection(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
