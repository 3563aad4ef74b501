// Package schema declares the attributes a document type persists.
package schema

import "fmt"

// Type is the declared type of an attribute.
type Type int

const (
	// TypeString stores text.
	TypeString Type = iota + 1

	// TypeInteger stores whole numbers in the numeric category.
	TypeInteger

	// TypeNumber stores exact decimal numbers.
	TypeNumber

	// TypeArray stores an ordered sequence of scalars.
	TypeArray

	// TypeSet stores an unordered collection of unique scalars.
	TypeSet

	// TypeDatetime stores an instant as seconds since the epoch.
	TypeDatetime

	// TypeBoolean stores "t" or "f".
	TypeBoolean

	// TypeSerialized stores any value as structured text.
	TypeSerialized

	// TypeCustom delegates conversion to a CustomType.
	TypeCustom
)

var typeNames = map[Type]string{
	TypeString:     "string",
	TypeInteger:    "integer",
	TypeNumber:     "number",
	TypeArray:      "array",
	TypeSet:        "set",
	TypeDatetime:   "datetime",
	TypeBoolean:    "boolean",
	TypeSerialized: "serialized",
	TypeCustom:     "custom",
}

// String returns the type name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t is one of the declared types.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Category is the native attribute category of the key/value store.
type Category string

const (
	CategoryString Category = "S"
	CategoryNumber Category = "N"
	CategoryBinary Category = "B"
)

// Default is a field's default value: either a literal or a provider
// evaluated each time the default is needed. The zero Default is unset.
type Default struct {
	literal  any
	provider func() any
	set      bool
}

// Literal returns a Default that always yields v.
func Literal(v any) Default {
	return Default{literal: v, set: true}
}

// Provider returns a Default that calls fn on every resolution.
func Provider(fn func() any) Default {
	return Default{provider: fn, set: fn != nil}
}

// IsSet reports whether a default was declared.
func (d Default) IsSet() bool {
	return d.set
}

// Resolve returns the default value, calling the provider if there is one.
func (d Default) Resolve() any {
	if !d.set {
		return nil
	}
	if d.provider != nil {
		return d.provider()
	}
	return d.literal
}

// Serializer converts values of a serialized field to and from text.
type Serializer interface {
	Marshal(v any) (string, error)
	Unmarshal(data string) (any, error)
}

// CustomType describes an extensible attribute type. The optional
// TypeDumper, TypeLoader and Categorizer interfaces add capabilities.
type CustomType interface {
	// TypeName identifies the type in error messages.
	TypeName() string
}

// TypeDumper is implemented by custom types that can convert any of their
// values to a storable scalar.
type TypeDumper interface {
	Dump(v any) (any, error)
}

// TypeLoader is implemented by custom types that can rebuild a value from its
// storable form.
type TypeLoader interface {
	Load(v any) (any, error)
}

// Categorizer is implemented by custom types that want a specific store
// category when used as a key. Custom types default to CategoryString.
type Categorizer interface {
	Category() Category
}

// Storable is implemented by values that convert themselves to a storable
// scalar. It takes precedence over TypeDumper.
type Storable interface {
	ToStorable() (any, error)
}

// Field declares a single attribute.
type Field struct {
	Name    string
	Type    Type
	Default Default

	// Serializer overrides the YAML serializer of a TypeSerialized field.
	Serializer Serializer

	// Custom is required for TypeCustom fields.
	Custom CustomType
}

// Category maps the field type to the store's native category.
func (f Field) Category() (Category, error) {
	switch f.Type {
	case TypeCustom:
		if c, ok := f.Custom.(Categorizer); ok {
			return c.Category(), nil
		}
		return CategoryString, nil
	case TypeInteger, TypeNumber, TypeDatetime:
		return CategoryNumber, nil
	case TypeString, TypeSerialized:
		return CategoryString, nil
	default:
		return "", fmt.Errorf("%w: field %q has type %s", ErrInvalidKeyType, f.Name, f.Type)
	}
}

// validate checks the declaration independent of any value.
func (f Field) validate() error {
	if f.Name == "" {
		return ErrEmptyFieldName
	}
	if !f.Type.Valid() {
		return fmt.Errorf("%w: field %q has type %s", ErrUnknownFieldType, f.Name, f.Type)
	}
	if f.Type == TypeCustom {
		if f.Custom == nil {
			return fmt.Errorf("%w: field %q", ErrMissingCustomType, f.Name)
		}
		if f.Default.IsSet() {
			return fmt.Errorf("%w: field %q", ErrDefaultOnCustomType, f.Name)
		}
	}
	return nil
}
