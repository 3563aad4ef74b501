package store

import (
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/thoran/Dynamoid/codec"
)

// MarshalRecord converts a record to a DynamoDB item. Nil values and empty
// sets are left out.
func MarshalRecord(rec codec.Record) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(rec))
	for k, v := range compactRecord(rec) {
		av, err := MarshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		item[k] = av
	}
	return item, nil
}

// UnmarshalRecord converts a DynamoDB item to a record.
func UnmarshalRecord(item map[string]types.AttributeValue) (codec.Record, error) {
	if item == nil {
		return nil, nil
	}
	rec := make(codec.Record, len(item))
	for k, av := range item {
		v, err := UnmarshalValue(av)
		if err != nil {
			return nil, fmt.Errorf("unmarshal %q: %w", k, err)
		}
		rec[k] = v
	}
	return rec, nil
}

// MarshalValue converts a store scalar to a DynamoDB attribute value.
func MarshalValue(v any) (types.AttributeValue, error) {
	switch x := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: x}, nil
	case []byte:
		return &types.AttributeValueMemberB{Value: x}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: x}, nil
	case decimal.Decimal:
		return &types.AttributeValueMemberN{Value: x.String()}, nil
	case codec.Set:
		return marshalSet(x)
	case []any:
		list := make([]types.AttributeValue, len(x))
		for i, e := range x {
			av, err := MarshalValue(e)
			if err != nil {
				return nil, err
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case map[string]any:
		m := make(map[string]types.AttributeValue, len(x))
		for k, e := range x {
			av, err := MarshalValue(e)
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}

	if isNumeric(v) {
		d, err := codec.Number(v)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberN{Value: d.String()}, nil
	}
	return attributevalue.Marshal(v)
}

func marshalSet(s codec.Set) (types.AttributeValue, error) {
	values := s.Values()
	if len(values) == 0 {
		return nil, fmt.Errorf("dynamoid: cannot store an empty set")
	}
	switch values[0].(type) {
	case string:
		out := make([]string, len(values))
		for i, v := range values {
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("dynamoid: set mixes string and %T members", v)
			}
			out[i] = str
		}
		return &types.AttributeValueMemberSS{Value: out}, nil
	case []byte:
		out := make([][]byte, len(values))
		for i, v := range values {
			b, ok := v.([]byte)
			if !ok {
				return nil, fmt.Errorf("dynamoid: set mixes binary and %T members", v)
			}
			out[i] = b
		}
		return &types.AttributeValueMemberBS{Value: out}, nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		if !isNumeric(v) {
			return nil, fmt.Errorf("dynamoid: set member %T is not a string, number or binary", v)
		}
		d, err := codec.Number(v)
		if err != nil {
			return nil, err
		}
		out[i] = d.String()
	}
	return &types.AttributeValueMemberNS{Value: out}, nil
}

// UnmarshalValue converts a DynamoDB attribute value to a store scalar.
// Numbers become decimal.Decimal and sets become codec.Set.
func UnmarshalValue(av types.AttributeValue) (any, error) {
	switch x := av.(type) {
	case *types.AttributeValueMemberS:
		return x.Value, nil
	case *types.AttributeValueMemberN:
		return parseNumber(x.Value)
	case *types.AttributeValueMemberB:
		return x.Value, nil
	case *types.AttributeValueMemberBOOL:
		return x.Value, nil
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberSS:
		s := codec.NewSet()
		for _, v := range x.Value {
			s.Add(v)
		}
		return s, nil
	case *types.AttributeValueMemberNS:
		s := codec.NewSet()
		for _, v := range x.Value {
			d, err := parseNumber(v)
			if err != nil {
				return nil, err
			}
			s.Add(d)
		}
		return s, nil
	case *types.AttributeValueMemberBS:
		s := codec.NewSet()
		for _, v := range x.Value {
			s.Add(v)
		}
		return s, nil
	case *types.AttributeValueMemberL:
		out := make([]any, len(x.Value))
		for i, e := range x.Value {
			v, err := UnmarshalValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *types.AttributeValueMemberM:
		out := make(map[string]any, len(x.Value))
		for k, e := range x.Value {
			v, err := UnmarshalValue(e)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}

	var out any
	if err := attributevalue.Unmarshal(av, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func parseNumber(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", codec.ErrInvalidNumber, s)
	}
	return d, nil
}

func isNumeric(v any) bool {
	if _, ok := v.(decimal.Decimal); ok {
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
