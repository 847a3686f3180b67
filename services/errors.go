package services

import (
	"errors"
	"fmt"

	"github.com/execdash/execdash/storage"
	"github.com/execdash/execdash/store"
)

// Common errors
var (
	ErrUnauthenticated = errors.New("no resolved profile for the session")
	ErrForbidden       = errors.New("forbidden: you don't have permission to perform this action")
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrCreateFailed    = errors.New("failed to record resource")
)

// StorageReason classifies an object storage failure.
type StorageReason string

const (
	StoragePermission StorageReason = "permission"
	StorageIntegrity  StorageReason = "integrity"
	StorageGeneric    StorageReason = "generic"
)

// StorageError is returned when object storage rejected a write or sign.
type StorageError struct {
	Reason StorageReason
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s error: %v", e.Reason, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func newStorageError(err error) *StorageError {
	switch {
	case errors.Is(err, storage.ErrPermission):
		return &StorageError{Reason: StoragePermission, Err: err}
	case errors.Is(err, storage.ErrIntegrity):
		return &StorageError{Reason: StorageIntegrity, Err: err}
	default:
		return &StorageError{Reason: StorageGeneric, Err: err}
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
