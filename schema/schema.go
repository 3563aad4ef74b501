package schema

import "fmt"

// Well-known attribute names.
const (
	DefaultHashKey  = "id"
	LockVersionAttr = "lock_version"
	CreatedAtAttr   = "created_at"
	UpdatedAtAttr   = "updated_at"
)

// Definition describes a document type before validation.
type Definition struct {
	// Table is the table name, without any namespace prefix.
	Table string

	// HashKey names the partition key attribute.
	// Default: "id"
	HashKey string

	// RangeKey names the optional sort key attribute.
	RangeKey string

	// Fields are the declared attributes. A hash key missing from Fields is
	// declared as a string.
	Fields []Field

	// Timestamps declares created_at and updated_at datetime fields and has
	// Save maintain them.
	Timestamps bool
}

// Schema is a validated, immutable set of field declarations.
type Schema struct {
	table      string
	hashKey    string
	rangeKey   string
	timestamps bool
	fields     []Field
	byName     map[string]int
}

// New validates def and returns the schema.
func New(def Definition) (*Schema, error) {
	s := &Schema{
		table:      def.Table,
		hashKey:    def.HashKey,
		rangeKey:   def.RangeKey,
		timestamps: def.Timestamps,
		byName:     make(map[string]int, len(def.Fields)+3),
	}
	if s.hashKey == "" {
		s.hashKey = DefaultHashKey
	}

	for _, f := range def.Fields {
		if err := s.add(f); err != nil {
			return nil, err
		}
	}
	if _, ok := s.byName[s.hashKey]; !ok {
		_ = s.add(Field{Name: s.hashKey, Type: TypeString})
	}
	if def.Timestamps {
		for _, name := range []string{CreatedAtAttr, UpdatedAtAttr} {
			if _, ok := s.byName[name]; !ok {
				_ = s.add(Field{Name: name, Type: TypeDatetime})
			}
		}
	}

	if _, err := s.fields[s.byName[s.hashKey]].Category(); err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}
	if s.rangeKey != "" {
		i, ok := s.byName[s.rangeKey]
		if !ok {
			return nil, fmt.Errorf("dynamoid: range key %q is not a declared field", s.rangeKey)
		}
		if _, err := s.fields[i].Category(); err != nil {
			return nil, fmt.Errorf("range key: %w", err)
		}
	}
	if i, ok := s.byName[LockVersionAttr]; ok && s.fields[i].Type != TypeInteger {
		return nil, ErrInvalidLockVersion
	}

	return s, nil
}

// MustNew is like New but panics on error. It is meant for package-level
// schema variables.
func MustNew(def Definition) *Schema {
	s, err := New(def)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) add(f Field) error {
	if err := f.validate(); err != nil {
		return err
	}
	if _, ok := s.byName[f.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
	}
	s.byName[f.Name] = len(s.fields)
	s.fields = append(s.fields, f)
	return nil
}

// Table returns the table name.
func (s *Schema) Table() string { return s.table }

// HashKey returns the partition key attribute name.
func (s *Schema) HashKey() string { return s.hashKey }

// RangeKey returns the sort key attribute name, or "" if there is none.
func (s *Schema) RangeKey() string { return s.rangeKey }

// Timestamps reports whether created_at and updated_at are maintained.
func (s *Schema) Timestamps() bool { return s.timestamps }

// HasLockVersion reports whether the schema declares lock_version.
func (s *Schema) HasLockVersion() bool {
	_, ok := s.byName[LockVersionAttr]
	return ok
}

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the declaration for name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Declared reports whether name is a declared attribute.
func (s *Schema) Declared(name string) bool {
	_, ok := s.byName[name]
	return ok
}
