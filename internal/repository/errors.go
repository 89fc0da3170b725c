package repository

import "fmt"

// StorageError wraps a backing-store fault with the operation that hit it.
// It is never used for not-found, which repositories report as a nil result.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
