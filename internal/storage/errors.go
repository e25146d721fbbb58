package storage

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("storage object not found")

// WriteError is returned when a backend rejects an upload.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
