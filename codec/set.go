package codec

import (
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
)

// Set is a collection of unique scalars. Numbers compare by value, so
// int 1 and decimal 1 are the same member. Insertion order is kept for
// deterministic output but carries no meaning.
type Set struct {
	index map[string]int
	items []any
}

// NewSet returns a set holding the unique values of vs.
func NewSet(vs ...any) Set {
	var s Set
	for _, v := range vs {
		s.Add(v)
	}
	return s
}

// Add inserts v and reports whether it was not already present.
func (s *Set) Add(v any) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	k := memberKey(v)
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, v)
	return true
}

// Len returns the number of members.
func (s Set) Len() int { return len(s.items) }

// Contains reports whether v is a member.
func (s Set) Contains(v any) bool {
	_, ok := s.index[memberKey(v)]
	return ok
}

// Values returns the members in insertion order.
func (s Set) Values() []any {
	out := make([]any, len(s.items))
	copy(out, s.items)
	return out
}

// Equal reports whether both sets have the same members.
func (s Set) Equal(o Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for k := range s.index {
		if _, ok := o.index[k]; !ok {
			return false
		}
	}
	return true
}

// Union returns a new set with the members of s and o.
func (s Set) Union(o Set) Set {
	out := NewSet(s.items...)
	for _, v := range o.items {
		out.Add(v)
	}
	return out
}

// Difference returns a new set with the members of s that are not in o.
func (s Set) Difference(o Set) Set {
	var out Set
	for _, v := range s.items {
		if !o.Contains(v) {
			out.Add(v)
		}
	}
	return out
}

// String formats the members like a slice.
func (s Set) String() string {
	return fmt.Sprintf("Set%v", s.items)
}

func memberKey(v any) string {
	switch x := v.(type) {
	case string:
		return "s:" + x
	case []byte:
		return "b:" + string(x)
	case decimal.Decimal:
		return "n:" + x.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "n:" + decimal.NewFromInt(rv.Int()).String()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "n:" + decimal.NewFromUint64(rv.Uint()).String()
	case reflect.Float32, reflect.Float64:
		return "n:" + decimal.NewFromFloat(rv.Float()).String()
	}
	return fmt.Sprintf("%T:%v", v, v)
}
