package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// expression collects the placeholders shared by the condition and update
// expressions of a single request.
type expression struct {
	names  map[string]string
	values map[string]types.AttributeValue
	byAttr map[string]string
}

func newExpression() *expression {
	return &expression{
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
		byAttr: make(map[string]string),
	}
}

// name returns the "#nN" placeholder for attr.
func (e *expression) name(attr string) string {
	if p, ok := e.byAttr[attr]; ok {
		return p
	}
	p := fmt.Sprintf("#n%d", len(e.byAttr))
	e.byAttr[attr] = p
	e.names[p] = attr
	return p
}

// value returns a new ":vN" placeholder bound to v.
func (e *expression) value(v any) (string, error) {
	av, err := MarshalValue(v)
	if err != nil {
		return "", err
	}
	p := fmt.Sprintf(":v%d", len(e.values))
	e.values[p] = av
	return p, nil
}

// condition renders c, or "" if it is empty.
func (e *expression) condition(c Conditions) (string, error) {
	var clauses []string
	for _, attr := range c.UnlessExists {
		clauses = append(clauses, fmt.Sprintf("attribute_not_exists(%s)", e.name(attr)))
	}

	attrs := make([]string, 0, len(c.IfEqual))
	for attr := range c.IfEqual {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	for _, attr := range attrs {
		want := c.IfEqual[attr]
		if want == nil {
			clauses = append(clauses, fmt.Sprintf("attribute_not_exists(%s)", e.name(attr)))
			continue
		}
		p, err := e.value(want)
		if err != nil {
			return "", fmt.Errorf("condition on %q: %w", attr, err)
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", e.name(attr), p))
	}
	return strings.Join(clauses, " AND "), nil
}

// update renders m as SET, ADD, DELETE and REMOVE clauses. Setting nil
// removes the attribute.
func (e *expression) update(m *Mutation) (string, error) {
	var set, add, del, remove []string
	for _, a := range m.Actions() {
		n := e.name(a.Attr)
		switch {
		case a.Kind == ActionRemove, a.Kind == ActionSet && a.Value == nil:
			remove = append(remove, n)
		case a.Kind == ActionSet:
			p, err := e.value(a.Value)
			if err != nil {
				return "", fmt.Errorf("set %q: %w", a.Attr, err)
			}
			set = append(set, fmt.Sprintf("%s = %s", n, p))
		case a.Kind == ActionAdd:
			p, err := e.value(a.Value)
			if err != nil {
				return "", fmt.Errorf("add %q: %w", a.Attr, err)
			}
			add = append(add, fmt.Sprintf("%s %s", n, p))
		case a.Kind == ActionDelete:
			p, err := e.value(a.Value)
			if err != nil {
				return "", fmt.Errorf("delete %q: %w", a.Attr, err)
			}
			del = append(del, fmt.Sprintf("%s %s", n, p))
		default:
			return "", fmt.Errorf("dynamoid: unknown update action %d", a.Kind)
		}
	}

	var sections []string
	if len(set) > 0 {
		sections = append(sections, "SET "+strings.Join(set, ", "))
	}
	if len(add) > 0 {
		sections = append(sections, "ADD "+strings.Join(add, ", "))
	}
	if len(del) > 0 {
		sections = append(sections, "DELETE "+strings.Join(del, ", "))
	}
	if len(remove) > 0 {
		sections = append(sections, "REMOVE "+strings.Join(remove, ", "))
	}
	return strings.Join(sections, " "), nil
}

// attributeNames returns the name placeholders, or nil when there are none.
// DynamoDB rejects empty placeholder maps.
func (e *expression) attributeNames() map[string]string {
	if len(e.names) == 0 {
		return nil
	}
	return e.names
}

// attributeValues returns the value placeholders, or nil when there are none.
func (e *expression) attributeValues() map[string]types.AttributeValue {
	if len(e.values) == 0 {
		return nil
	}
	return e.values
}
