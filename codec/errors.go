package codec

import (
	"errors"
	"fmt"

	"github.com/thoran/Dynamoid/schema"
)

var (
	// ErrSerializationUnsupported is returned when neither a custom value nor its type can be dumped.
	ErrSerializationUnsupported = errors.New("dynamoid: serialization not supported")

	// ErrInvalidBoolean is returned when a boolean attribute is not one of "t", "f", true, false.
	ErrInvalidBoolean = errors.New("dynamoid: boolean value is neither true nor false")

	// ErrInvalidNumber is returned when a numeric attribute cannot be parsed.
	ErrInvalidNumber = errors.New("dynamoid: invalid number")

	// ErrInvalidTime is returned when a datetime attribute is not a time or a number.
	ErrInvalidTime = errors.New("dynamoid: invalid datetime")
)

// UnsupportedTypeError reports a custom value that has no dump capability
// on either the value or its declared type.
type UnsupportedTypeError struct {
	TypeName string
	Value    any
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("dynamoid: %s does not support serialization of %T value %v", e.TypeName, e.Value, e.Value)
}

// Is matches ErrSerializationUnsupported.
func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrSerializationUnsupported
}

func unknownType(f schema.Field) error {
	return fmt.Errorf("%w: field %q has type %s", schema.ErrUnknownFieldType, f.Name, f.Type)
}
