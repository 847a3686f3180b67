package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Common errors
var (
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("record already exists")
	ErrForeignKey = errors.New("referenced record does not exist")
	ErrPermission = errors.New("rejected by row-level policy")
)

// Postgres SQLSTATE codes the core distinguishes.
const (
	pqUniqueViolation       = "23505"
	pqForeignKeyViolation   = "23503"
	pqInsufficientPrivilege = "42501"
)

// classify maps driver errors onto the sentinels above, keeping the original
// error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %w", ErrForeignKey, err)
	case pqInsufficientPrivilege:
		return fmt.Errorf("%w: %w", ErrPermission, err)
	}
	return err
}
