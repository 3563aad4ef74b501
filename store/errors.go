package store

import (
	"errors"
	"fmt"
)

var (
	// ErrConditionalCheckFailed is returned by adapters when a write precondition is rejected.
	ErrConditionalCheckFailed = errors.New("dynamoid: conditional check failed")

	// ErrRecordNotUnique is returned when a new document's key already exists.
	ErrRecordNotUnique = errors.New("dynamoid: record not unique")

	// ErrStaleObject is returned when the stored lock version differs from the expected one.
	ErrStaleObject = errors.New("dynamoid: stale object")

	// ErrNotFound is returned when a document doesn't exist.
	ErrNotFound = errors.New("dynamoid: document not found")

	// ErrTableNotFound is returned by adapters when a table doesn't exist.
	ErrTableNotFound = errors.New("dynamoid: table not found")

	// ErrUndeclaredAttribute is returned when an operation names an attribute the schema doesn't declare.
	ErrUndeclaredAttribute = errors.New("dynamoid: attribute not declared")

	// ErrMissingHashKey is returned when an operation needs a key the document doesn't have.
	ErrMissingHashKey = errors.New("dynamoid: document has no hash key")
)

// Operation names reported by StaleObjectError.
const (
	OpPersist = "persist"
	OpUpdate  = "update"
	OpDelete  = "delete"
)

// RecordNotUniqueError is returned when creating a document whose key is
// already taken.
type RecordNotUniqueError struct {
	Document *Document
	Err      error
}

func (e *RecordNotUniqueError) Error() string {
	return fmt.Sprintf("dynamoid: attempted to create a record that already exists: %v", e.Err)
}

func (e *RecordNotUniqueError) Unwrap() error { return e.Err }

// Is matches ErrRecordNotUnique.
func (e *RecordNotUniqueError) Is(target error) bool { return target == ErrRecordNotUnique }

// StaleObjectError is returned when a lock version precondition fails.
type StaleObjectError struct {
	Document  *Document
	Operation string
}

func (e *StaleObjectError) Error() string {
	return fmt.Sprintf("dynamoid: attempted to %s a stale object", e.Operation)
}

// Is matches ErrStaleObject.
func (e *StaleObjectError) Is(target error) bool { return target == ErrStaleObject }
