package store

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a local lookup miss, distinct from any network failure.
var ErrNotFound = errors.New("not found")

// NotFoundError identifies which local resource was missing.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
