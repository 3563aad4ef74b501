package schema

import "errors"

var (
	// ErrUnknownFieldType is returned when a field declares a type outside the known set.
	ErrUnknownFieldType = errors.New("dynamoid: unknown field type")

	// ErrDefaultOnCustomType is returned when a custom-typed field declares a default value.
	ErrDefaultOnCustomType = errors.New("dynamoid: custom type fields do not support default values")

	// ErrMissingCustomType is returned when a TypeCustom field has no CustomType.
	ErrMissingCustomType = errors.New("dynamoid: custom field has no type")

	// ErrInvalidKeyType is returned when a field type has no store category.
	ErrInvalidKeyType = errors.New("dynamoid: field type cannot be used as a key")

	// ErrEmptyFieldName is returned for a field without a name.
	ErrEmptyFieldName = errors.New("dynamoid: field name is empty")

	// ErrDuplicateField is returned when two fields share a name.
	ErrDuplicateField = errors.New("dynamoid: duplicate field")

	// ErrInvalidLockVersion is returned when lock_version is not an integer field.
	ErrInvalidLockVersion = errors.New("dynamoid: lock_version must be an integer field")
)
