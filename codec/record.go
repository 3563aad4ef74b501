package codec

import (
	"fmt"

	"github.com/thoran/Dynamoid/schema"
)

// Record maps attribute names to store scalars.
type Record map[string]any

// Dump converts every declared attribute of attrs to its storable form.
// Declared attributes missing from attrs are present in the result as nil.
func Dump(s *schema.Schema, attrs map[string]any) (Record, error) {
	fields := s.Fields()
	out := make(Record, len(fields))
	for _, f := range fields {
		v, err := DumpField(attrs[f.Name], f)
		if err != nil {
			return nil, fmt.Errorf("dump %q: %w", f.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

// Undump rebuilds an attribute map from a store record. Every declared
// attribute is set, falling back to its default or nil; undeclared keys are
// copied through unchanged.
func Undump(s *schema.Schema, incoming Record) (map[string]any, error) {
	fields := s.Fields()
	out := make(map[string]any, len(fields)+len(incoming))
	for _, f := range fields {
		v, err := UndumpField(incoming[f.Name], f)
		if err != nil {
			return nil, fmt.Errorf("undump %q: %w", f.Name, err)
		}
		out[f.Name] = v
	}
	for k, v := range incoming {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out, nil
}
