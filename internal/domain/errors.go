package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage is matched by every *StorageError.
	ErrStorage = errors.New("storage failure")
	// ErrOwnerRequired is returned when a call has no owner id.
	ErrOwnerRequired = errors.New("owner id is required")
	// ErrNoAccountDirectory is returned when the repository keeps no account directory.
	ErrNoAccountDirectory = errors.New("repository has no account directory")
)

// StorageError reports a record store failure. For ingestion, Persisted
// counts the records that were durably written before the failure.
type StorageError struct {
	Op        string
	Persisted int
	Err       error
}

func (e *StorageError) Error() string {
	if e.Persisted > 0 {
		return fmt.Sprintf("%s: %v (%d record(s) persisted before failure)", e.Op, e.Err, e.Persisted)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrStorage and the underlying adapter error.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}
