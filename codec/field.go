// Package codec converts typed attribute values to store scalars and back.
//
// Store scalars are nil, string, decimal.Decimal, []byte, []any and Set.
// Dump and undump are defined per direction against the declared type; they
// are not exact inverses for every type.
package codec

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thoran/Dynamoid/schema"
)

// Boolean markers written by DumpField.
const (
	TrueMarker  = "t"
	FalseMarker = "f"
)

// DumpField converts v to its storable form according to f.
func DumpField(v any, f schema.Field) (any, error) {
	switch f.Type {
	case schema.TypeCustom:
		return dumpCustom(v, f)
	case schema.TypeSerialized:
		if v == nil {
			return nil, nil
		}
		return serializerFor(f).Marshal(v)
	}

	if !f.Type.Valid() {
		return nil, unknownType(f)
	}
	if v == nil {
		return nil, nil
	}

	switch f.Type {
	case schema.TypeString:
		return toString(v), nil
	case schema.TypeInteger:
		d, err := toDecimal(v)
		if err != nil {
			return nil, err
		}
		return d.Truncate(0), nil
	case schema.TypeNumber, schema.TypeArray:
		return v, nil
	case schema.TypeSet:
		return toSet(v), nil
	case schema.TypeDatetime:
		return dumpTime(v)
	case schema.TypeBoolean:
		return dumpBool(v)
	}
	return nil, unknownType(f)
}

// UndumpField converts a storable value back to its in-memory form
// according to f. A nil value is replaced by the field default first.
func UndumpField(v any, f schema.Field) (any, error) {
	switch f.Type {
	case schema.TypeCustom:
		if f.Default.IsSet() {
			return nil, fmt.Errorf("%w: field %q", schema.ErrDefaultOnCustomType, f.Name)
		}
		if f.Custom == nil {
			return nil, fmt.Errorf("%w: field %q", schema.ErrMissingCustomType, f.Name)
		}
		if l, ok := f.Custom.(schema.TypeLoader); ok {
			return l.Load(v)
		}
		return v, nil
	case schema.TypeSerialized:
		if s, ok := v.(string); ok {
			return serializerFor(f).Unmarshal(s)
		}
		return v, nil
	}

	if !f.Type.Valid() {
		return nil, unknownType(f)
	}
	if v == nil {
		v = f.Default.Resolve()
	}
	if v == nil {
		return nil, nil
	}

	switch f.Type {
	case schema.TypeString:
		return toString(v), nil
	case schema.TypeInteger:
		return toInt64(v)
	case schema.TypeNumber:
		return toDecimal(v)
	case schema.TypeArray:
		return toSlice(v), nil
	case schema.TypeSet:
		return toSet(v), nil
	case schema.TypeDatetime:
		return undumpTime(v)
	case schema.TypeBoolean:
		return undumpBool(v)
	}
	return nil, unknownType(f)
}

func dumpCustom(v any, f schema.Field) (any, error) {
	if s, ok := v.(schema.Storable); ok {
		return s.ToStorable()
	}
	if d, ok := f.Custom.(schema.TypeDumper); ok {
		return d.Dump(v)
	}
	if v == nil {
		return nil, nil
	}
	name := "<nil>"
	if f.Custom != nil {
		name = f.Custom.TypeName()
	}
	return nil, &UnsupportedTypeError{TypeName: name, Value: v}
}

func serializerFor(f schema.Field) schema.Serializer {
	if f.Serializer != nil {
		return f.Serializer
	}
	return YAML{}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

var (
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

// toInt64 truncates v toward zero and fails when the result does not fit.
func toInt64(v any) (int64, error) {
	d, err := toDecimal(v)
	if err != nil {
		return 0, err
	}
	d = d.Truncate(0)
	if d.LessThan(minInt64) || d.GreaterThan(maxInt64) {
		return 0, fmt.Errorf("%w: %s is out of integer range", ErrInvalidNumber, d)
	}
	return d.IntPart(), nil
}

// Number coerces a numeric scalar, or numeric text, to a decimal.
func Number(v any) (decimal.Decimal, error) {
	return toDecimal(v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, x)
		}
		return d, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromUint64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidNumber, f)
		}
		return decimal.NewFromFloat(f), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %T is not a number", ErrInvalidNumber, v)
}

func toSlice(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case Set:
		return x.Values()
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

func toSet(v any) Set {
	if s, ok := v.(Set); ok {
		return NewSet(s.items...)
	}
	return NewSet(toSlice(v)...)
}

func dumpTime(v any) (any, error) {
	if t, ok := v.(time.Time); ok {
		return decimal.NewFromInt(t.Unix()).Add(decimal.New(int64(t.Nanosecond()), -9)), nil
	}
	d, err := toDecimal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T", ErrInvalidTime, v)
	}
	return d, nil
}

func undumpTime(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	d, err := toDecimal(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	sec := d.IntPart()
	nsec := d.Sub(decimal.NewFromInt(sec)).Shift(9).Round(0).IntPart()
	return time.Unix(sec, nsec).UTC(), nil
}

func dumpBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return TrueMarker, nil
		}
		return FalseMarker, nil
	case string:
		switch x {
		case TrueMarker, "true":
			return TrueMarker, nil
		case FalseMarker, "false":
			return FalseMarker, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidBoolean, v)
}

func undumpBool(v any) (bool, error) {
	switch v {
	case TrueMarker, true:
		return true, nil
	case FalseMarker, false:
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrInvalidBoolean, v)
}
